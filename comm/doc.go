// Package comm carries messages between the assistant's components and out
// to the user: an in-process publish/subscribe bus, a desktop notifier, and
// a notification center that deduplicates, throttles and escalates alerts.
package comm
