// Package ansi implements the terminal side of the ANSI/VT byte protocol.
//
// Parser turns a raw input byte stream into tokens: decoded keys, SGR mouse
// samples, and complete control sequences that are not keys (usually answers
// to queries the program sent). Scheduler serializes those queries so that
// at most one is outstanding on the shared byte stream, and correlates each
// answer with the request by arrival order. The Append* helpers build output
// sequences without allocating.
package ansi
