//go:build cgo && !nojack

package jack

/*
#include <stdint.h>
#include <jack/jack.h>
*/
import "C"

import "github.com/jmylchreest/jacknotify/internal/notify"

// Exported entry points for the C trampolines in backend_cgo.go. They run on
// server threads: no locks beyond the registry read lock, no logging.

func controlCode(c notify.Control) C.int {
	if c == notify.Quit {
		return -1
	}
	return 0
}

//export jacknotifyThreadInit
func jacknotifyThreadInit(id C.uintptr_t) {
	if h := lookup(id); h != nil {
		h.notify.ThreadInit()
	}
}

//export jacknotifyShutdown
func jacknotifyShutdown(id C.uintptr_t, code C.jack_status_t, reason *C.char) {
	if h := lookup(id); h != nil {
		h.notify.Shutdown(notify.ClientStatus(code), C.GoString(reason))
	}
}

//export jacknotifyFreewheel
func jacknotifyFreewheel(id C.uintptr_t, starting C.int) {
	if h := lookup(id); h != nil {
		h.notify.Freewheel(starting != 0)
	}
}

//export jacknotifySampleRate
func jacknotifySampleRate(id C.uintptr_t, nframes C.jack_nframes_t) C.int {
	if h := lookup(id); h != nil {
		return controlCode(h.notify.SampleRate(notify.Frames(nframes)))
	}
	return 0
}

//export jacknotifyClientRegistration
func jacknotifyClientRegistration(id C.uintptr_t, name *C.char, reg C.int) {
	if h := lookup(id); h != nil {
		h.notify.ClientRegistration(C.GoString(name), reg != 0)
	}
}

//export jacknotifyPortRegistration
func jacknotifyPortRegistration(id C.uintptr_t, port C.jack_port_id_t, reg C.int) {
	if h := lookup(id); h != nil {
		h.notify.PortRegistration(notify.PortID(port), reg != 0)
	}
}

//export jacknotifyPortRename
func jacknotifyPortRename(id C.uintptr_t, port C.jack_port_id_t, oldName, newName *C.char) C.int {
	if h := lookup(id); h != nil {
		return controlCode(h.notify.PortRename(notify.PortID(port), C.GoString(oldName), C.GoString(newName)))
	}
	return 0
}

//export jacknotifyPortConnect
func jacknotifyPortConnect(id C.uintptr_t, a, b C.jack_port_id_t, connect C.int) {
	if h := lookup(id); h != nil {
		h.notify.PortsConnected(notify.PortID(a), notify.PortID(b), connect != 0)
	}
}

//export jacknotifyGraphOrder
func jacknotifyGraphOrder(id C.uintptr_t) C.int {
	if h := lookup(id); h != nil {
		return controlCode(h.notify.GraphReorder())
	}
	return 0
}

//export jacknotifyXRun
func jacknotifyXRun(id C.uintptr_t) C.int {
	if h := lookup(id); h != nil {
		return controlCode(h.notify.XRun())
	}
	return 0
}

//export jacknotifyProcess
func jacknotifyProcess(id C.uintptr_t, nframes C.jack_nframes_t) C.int {
	if h := lookup(id); h != nil {
		return controlCode(h.process.Process(notify.Frames(nframes)))
	}
	return 0
}

//export jacknotifyBufferSize
func jacknotifyBufferSize(id C.uintptr_t, nframes C.jack_nframes_t) C.int {
	if h := lookup(id); h != nil {
		return controlCode(h.process.BufferSize(notify.Frames(nframes)))
	}
	return 0
}
