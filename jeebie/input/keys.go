package input

import "unicode"

// Key codes follow the DOM KeyboardEvent.code naming so that every backend,
// including the browser one, hands the core the same identifiers.
const (
	CodeArrowUp    = "ArrowUp"
	CodeArrowDown  = "ArrowDown"
	CodeArrowLeft  = "ArrowLeft"
	CodeArrowRight = "ArrowRight"
	CodeEnter      = "Enter"
	CodeSpace      = "Space"
	CodeEscape     = "Escape"
	CodeBackspace  = "Backspace"
	CodeTab        = "Tab"
	CodeShiftLeft  = "ShiftLeft"
	CodeShiftRight = "ShiftRight"
	CodeMinus      = "Minus"
	CodeEqual      = "Equal"
	CodeComma      = "Comma"
	CodePeriod     = "Period"
	CodeSlash      = "Slash"
	CodeSemicolon  = "Semicolon"
	CodeQuote      = "Quote"
	CodeBackquote  = "Backquote"
	CodeF12        = "F12"
)

// punctuationCodes maps unshifted and shifted punctuation to its physical key.
var punctuationCodes = map[rune]string{
	' ': CodeSpace,
	'-': CodeMinus, '_': CodeMinus,
	'=': CodeEqual, '+': CodeEqual,
	',': CodeComma, '<': CodeComma,
	'.': CodePeriod, '>': CodePeriod,
	'/': CodeSlash, '?': CodeSlash,
	';': CodeSemicolon, ':': CodeSemicolon,
	'\'': CodeQuote, '"': CodeQuote,
	'`': CodeBackquote, '~': CodeBackquote,
	'[': "BracketLeft", '{': "BracketLeft",
	']': "BracketRight", '}': "BracketRight",
	'\\': "Backslash", '|': "Backslash",
}

// RuneCode returns the key code of the physical key that types r on a US
// layout: 'z' and 'Z' are "KeyZ", '1' is "Digit1".
func RuneCode(r rune) (string, bool) {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return "Key" + string(unicode.ToUpper(r)), true
	case r >= '0' && r <= '9':
		return "Digit" + string(r), true
	}
	code, ok := punctuationCodes[r]
	return code, ok
}
