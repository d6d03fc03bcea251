// Package daemon runs the consumer side of the notification stream.
// A Watcher polls the receiver on a fixed interval, stamps every event into a
// history record and hands it to the configured sinks: metrics, the terminal
// formatter, the event log and desktop notifications.
package daemon
