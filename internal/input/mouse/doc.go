// Package mouse turns raw mouse samples into click gestures.
//
// Platform decoders report each mouse sample as an EventArgs carrying the
// full set of buttons currently held. The Interpreter tracks up to four
// buttons independently. A press opens a ButtonNarrative for that button; the
// matching release closes a click. Narratives are handed back to the caller
// as soon as they contain one completed click.
//
// Double and triple click thresholds are part of Config but the interpreter
// does not wait for them, so only single clicks are ever reported.
//
// The Interpreter is not safe for concurrent use; it is driven from the
// main loop goroutine only.
package mouse
