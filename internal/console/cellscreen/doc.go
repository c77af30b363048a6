// Package cellscreen is the record-based console platform.
//
// It sits on a tcell screen: input arrives as pre-decoded key, mouse and
// resize records, and output is written cell by cell followed by a single
// Show. There is no raw byte stream, so terminal queries are unavailable.
package cellscreen
