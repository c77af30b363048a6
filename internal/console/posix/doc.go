// Package posix is the byte-stream console platform for unix terminals.
//
// Input is read from a raw-mode tty with a non-blocking poll; keys, mouse
// reports and query answers all arrive on that one stream and are decoded
// by the input package. Output is an ANSI writer over the same tty, which
// also carries terminal queries.
package posix
