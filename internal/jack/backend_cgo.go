//go:build cgo && !nojack

package jack

/*
#cgo pkg-config: jack
#include <stdint.h>
#include <stdlib.h>
#include <jack/jack.h>

extern void jacknotifyThreadInit(uintptr_t id);
extern void jacknotifyShutdown(uintptr_t id, jack_status_t code, char *reason);
extern void jacknotifyFreewheel(uintptr_t id, int starting);
extern int jacknotifySampleRate(uintptr_t id, jack_nframes_t nframes);
extern void jacknotifyClientRegistration(uintptr_t id, char *name, int reg);
extern void jacknotifyPortRegistration(uintptr_t id, jack_port_id_t port, int reg);
extern int jacknotifyPortRename(uintptr_t id, jack_port_id_t port, char *old_name, char *new_name);
extern void jacknotifyPortConnect(uintptr_t id, jack_port_id_t a, jack_port_id_t b, int connect);
extern int jacknotifyGraphOrder(uintptr_t id);
extern int jacknotifyXRun(uintptr_t id);
extern int jacknotifyProcess(uintptr_t id, jack_nframes_t nframes);
extern int jacknotifyBufferSize(uintptr_t id, jack_nframes_t nframes);

static void jn_thread_init(void *arg) {
	jacknotifyThreadInit((uintptr_t)arg);
}

static void jn_info_shutdown(jack_status_t code, const char *reason, void *arg) {
	jacknotifyShutdown((uintptr_t)arg, code, (char *)reason);
}

static void jn_freewheel(int starting, void *arg) {
	jacknotifyFreewheel((uintptr_t)arg, starting);
}

static int jn_sample_rate(jack_nframes_t nframes, void *arg) {
	return jacknotifySampleRate((uintptr_t)arg, nframes);
}

static void jn_client_registration(const char *name, int reg, void *arg) {
	jacknotifyClientRegistration((uintptr_t)arg, (char *)name, reg);
}

static void jn_port_registration(jack_port_id_t port, int reg, void *arg) {
	jacknotifyPortRegistration((uintptr_t)arg, port, reg);
}

static int jn_port_rename(jack_port_id_t port, const char *old_name, const char *new_name, void *arg) {
	return jacknotifyPortRename((uintptr_t)arg, port, (char *)old_name, (char *)new_name);
}

static void jn_port_connect(jack_port_id_t a, jack_port_id_t b, int connect, void *arg) {
	jacknotifyPortConnect((uintptr_t)arg, a, b, connect);
}

static int jn_graph_order(void *arg) {
	return jacknotifyGraphOrder((uintptr_t)arg);
}

static int jn_xrun(void *arg) {
	return jacknotifyXRun((uintptr_t)arg);
}

static int jn_process(jack_nframes_t nframes, void *arg) {
	return jacknotifyProcess((uintptr_t)arg, nframes);
}

static int jn_buffer_size(jack_nframes_t nframes, void *arg) {
	return jacknotifyBufferSize((uintptr_t)arg, nframes);
}

// jack_client_open is variadic and cannot be called from Go directly.
static jack_client_t *jn_open(const char *name, const char *server, jack_status_t *status) {
	jack_options_t opts = JackNoStartServer;
	if (server != NULL) {
		return jack_client_open(name, opts | JackServerName, status, server);
	}
	return jack_client_open(name, opts, status);
}

// jn_register installs every callback with id as the user argument.
// It returns the number of registrations the server rejected.
static int jn_register(jack_client_t *c, uintptr_t id) {
	void *arg = (void *)id;
	int failed = 0;

	jack_on_info_shutdown(c, jn_info_shutdown, arg);
	failed += jack_set_thread_init_callback(c, jn_thread_init, arg) != 0;
	failed += jack_set_freewheel_callback(c, jn_freewheel, arg) != 0;
	failed += jack_set_sample_rate_callback(c, jn_sample_rate, arg) != 0;
	failed += jack_set_client_registration_callback(c, jn_client_registration, arg) != 0;
	failed += jack_set_port_registration_callback(c, jn_port_registration, arg) != 0;
	failed += jack_set_port_rename_callback(c, jn_port_rename, arg) != 0;
	failed += jack_set_port_connect_callback(c, jn_port_connect, arg) != 0;
	failed += jack_set_graph_order_callback(c, jn_graph_order, arg) != 0;
	failed += jack_set_xrun_callback(c, jn_xrun, arg) != 0;
	failed += jack_set_process_callback(c, jn_process, arg) != 0;
	failed += jack_set_buffer_size_callback(c, jn_buffer_size, arg) != 0;
	return failed;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/jmylchreest/jacknotify/internal/notify"
)

// handlers is what the exported callbacks dispatch to.
type handlers struct {
	notify  notify.NotificationHandler
	process notify.ProcessHandler
}

// Callbacks carry an integer id instead of a Go pointer; the registry maps
// it back to the handlers of one client.
var (
	registryMu sync.RWMutex
	registry   = map[uintptr]*handlers{}
	nextID     uintptr
)

func register(h *handlers) uintptr {
	registryMu.Lock()
	defer registryMu.Unlock()
	nextID++
	registry[nextID] = h
	return nextID
}

func unregister(id uintptr) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, id)
}

func lookup(id C.uintptr_t) *handlers {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[uintptr(id)]
}

// cgoClient wraps a jack_client_t.
type cgoClient struct {
	client *C.jack_client_t
	id     uintptr
}

func openBackend(name string, o openOptions) (conn, notify.ClientStatus, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var cServer *C.char
	if o.ServerName != "" {
		cServer = C.CString(o.ServerName)
		defer C.free(unsafe.Pointer(cServer))
	}

	var status C.jack_status_t
	client := C.jn_open(cName, cServer, &status)
	st := notify.ClientStatus(status)
	if client == nil {
		return nil, st, fmt.Errorf("%w: jack_client_open returned no client", ErrServerUnavailable)
	}
	return &cgoClient{client: client}, st, nil
}

func (c *cgoClient) Name() string {
	return C.GoString(C.jack_get_client_name(c.client))
}

func (c *cgoClient) SampleRate() notify.Frames {
	return notify.Frames(C.jack_get_sample_rate(c.client))
}

func (c *cgoClient) BufferSize() notify.Frames {
	return notify.Frames(C.jack_get_buffer_size(c.client))
}

func (c *cgoClient) Activate(n notify.NotificationHandler, p notify.ProcessHandler) error {
	c.id = register(&handlers{notify: n, process: p})
	if failed := C.jn_register(c.client, C.uintptr_t(c.id)); failed != 0 {
		return fmt.Errorf("server rejected %d callback registrations", int(failed))
	}
	if rc := C.jack_activate(c.client); rc != 0 {
		return fmt.Errorf("jack_activate returned %d", int(rc))
	}
	return nil
}

func (c *cgoClient) Deactivate() error {
	if rc := C.jack_deactivate(c.client); rc != 0 {
		return fmt.Errorf("jack_deactivate returned %d", int(rc))
	}
	return nil
}

// Close closes the client. No callback runs once jack_client_close returns,
// so the registry entry can go.
func (c *cgoClient) Close() error {
	rc := C.jack_client_close(c.client)
	if c.id != 0 {
		unregister(c.id)
	}
	if rc != 0 {
		return fmt.Errorf("jack_client_close returned %d", int(rc))
	}
	return nil
}
