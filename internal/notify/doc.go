// Package notify defines the JACK notification event model and the adapter
// that turns notification callbacks into events on an unbounded,
// non-blocking, multi-producer/single-consumer channel.
//
// Nothing in this package depends on libjack; the jack package wires a
// ChannelHandler into a live client.
package notify
