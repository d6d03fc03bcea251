package notify

import (
	"fmt"
	"strings"
)

// ClientStatus is the bit set reported by the server when opening a client
// or shutting it down. Bit values match jack_status_t.
type ClientStatus uint32

const (
	StatusFailure       ClientStatus = 0x01
	StatusInvalidOption ClientStatus = 0x02
	StatusNameNotUnique ClientStatus = 0x04
	StatusServerStarted ClientStatus = 0x08
	StatusServerFailed  ClientStatus = 0x10
	StatusServerError   ClientStatus = 0x20
	StatusNoSuchClient  ClientStatus = 0x40
	StatusLoadFailure   ClientStatus = 0x80
	StatusInitFailure   ClientStatus = 0x100
	StatusShmFailure    ClientStatus = 0x200
	StatusVersionError  ClientStatus = 0x400
	StatusBackendError  ClientStatus = 0x800
	StatusClientZombie  ClientStatus = 0x1000
)

var statusNames = []struct {
	bit  ClientStatus
	name string
}{
	{StatusFailure, "Failure"},
	{StatusInvalidOption, "InvalidOption"},
	{StatusNameNotUnique, "NameNotUnique"},
	{StatusServerStarted, "ServerStarted"},
	{StatusServerFailed, "ServerFailed"},
	{StatusServerError, "ServerError"},
	{StatusNoSuchClient, "NoSuchClient"},
	{StatusLoadFailure, "LoadFailure"},
	{StatusInitFailure, "InitFailure"},
	{StatusShmFailure, "ShmFailure"},
	{StatusVersionError, "VersionError"},
	{StatusBackendError, "BackendError"},
	{StatusClientZombie, "ClientZombie"},
}

// Has reports whether every bit in flag is set.
func (s ClientStatus) Has(flag ClientStatus) bool {
	return s&flag == flag
}

// String lists the set flags joined by "|", or "none" for an empty set.
// Unknown bits are appended in hex.
func (s ClientStatus) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	rest := s
	for _, sn := range statusNames {
		if s&sn.bit != 0 {
			parts = append(parts, sn.name)
			rest &^= sn.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}
