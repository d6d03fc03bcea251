// Package jack connects to a running JACK server and delivers its
// notifications as notify.Notification values.
//
// Activate opens a client (never auto-starting a server), registers a
// notify.ChannelHandler together with a no-op process handler and activates
// the client. The returned ActiveClient keeps the callbacks alive until it
// is closed; the returned Receiver is independent and stays readable until
// drained.
//
// Builds with cgo link against libjack through pkg-config. Builds without
// cgo, or with the nojack tag, compile a backend whose every connection
// attempt fails with ErrUnsupported.
package jack
