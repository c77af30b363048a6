// Package input decodes raw console records into key and mouse events.
//
// A Processor drains the console queue on the main loop goroutine and hands
// the records to a Decoder. Two decoders exist:
//
//   - AnsiDecoder feeds terminal bytes through the escape-sequence parser.
//     Keys and mouse reports become events; answers to outstanding queries
//     are handed to the request scheduler; anything else goes to the
//     Unexpected hook.
//   - RecordDecoder translates pre-decoded platform records.
//
// Mouse samples are delivered as they arrive and are also run through a
// mouse.Interpreter; each completed click is delivered as a second event
// carrying a Clicked flag.
//
// # Observers
//
// KeyDown, KeyUp and Mouse are observer lists. Observers run synchronously,
// in priority order, on the goroutine calling ProcessQueue. Setting Handled
// on the event stops delivery to the remaining observers.
//
//	p.KeyDown.Register(func(ev *key.Event) {
//	    if ev.Matches("<C-q>") {
//	        ev.Handled = true
//	        quit()
//	    }
//	})
package input
