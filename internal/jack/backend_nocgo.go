//go:build !cgo || nojack

package jack

import "github.com/jmylchreest/jacknotify/internal/notify"

func openBackend(string, openOptions) (conn, notify.ClientStatus, error) {
	return nil, notify.StatusFailure, ErrUnsupported
}
