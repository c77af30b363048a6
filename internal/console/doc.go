// Package console defines the platform boundary of the driver runtime.
//
// A platform supplies a Source of raw input records and an Output that
// receives frames. Sources are polled by a Reader running on its own
// goroutine; records cross to the main loop through a Queue, the only
// state shared between the two.
//
// Two record types exist: bytes, for terminals that multiplex keys,
// mouse reports and query answers on a single stream, and Record, for
// platforms that deliver pre-decoded key, mouse and resize records.
package console
