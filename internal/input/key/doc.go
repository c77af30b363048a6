// Package key defines the keyboard events raised by the console driver.
//
// An Event identifies a key (a special key such as Enter or F5, or KeyRune
// with the character in Event.Rune) together with the modifier keys held
// when it was decoded. Events carry a Handled flag; observers set it to stop
// the event from reaching later observers.
//
// Key specifications used by configuration can be written as:
//
//   - Simple keys: "a", "Enter", "F5"
//   - With modifiers: "Ctrl+Q", "Alt+Left", "Ctrl+Shift+Up"
//   - Vim-style: "<C-q>", "<A-Left>", "<Esc>"
package key
