package sdl2

import (
	"strconv"

	"github.com/valerio/jeebie-host/jeebie/input"
)

// SDL scancodes are USB HID keyboard usage IDs, so the table below needs no
// cgo and can be tested in default builds.
const (
	scancodeA      = 4
	scancodeZ      = 29
	scancode1      = 30
	scancode0      = 39
	scancodeF1     = 58
	scancodeF12    = 69
	scancodeEscape = 41
	scancodeF7     = 64
	scancodeF8     = 65
)

var scancodeNames = map[uint32]string{
	40:  input.CodeEnter,
	41:  input.CodeEscape,
	42:  input.CodeBackspace,
	43:  input.CodeTab,
	44:  input.CodeSpace,
	45:  input.CodeMinus,
	46:  input.CodeEqual,
	47:  "BracketLeft",
	48:  "BracketRight",
	49:  "Backslash",
	51:  input.CodeSemicolon,
	52:  input.CodeQuote,
	53:  input.CodeBackquote,
	54:  input.CodeComma,
	55:  input.CodePeriod,
	56:  input.CodeSlash,
	79:  input.CodeArrowRight,
	80:  input.CodeArrowLeft,
	81:  input.CodeArrowDown,
	82:  input.CodeArrowUp,
	224: "ControlLeft",
	225: input.CodeShiftLeft,
	226: "AltLeft",
	228: "ControlRight",
	229: input.CodeShiftRight,
	230: "AltRight",
}

// ScancodeCode returns the key code for an SDL scancode.
func ScancodeCode(sc uint32) (string, bool) {
	switch {
	case sc >= scancodeA && sc <= scancodeZ:
		return "Key" + string(rune('A'+sc-scancodeA)), true
	case sc >= scancode1 && sc < scancode0:
		return "Digit" + strconv.Itoa(int(sc-scancode1+1)), true
	case sc == scancode0:
		return "Digit0", true
	case sc >= scancodeF1 && sc <= scancodeF12:
		return "F" + strconv.Itoa(int(sc-scancodeF1+1)), true
	}
	code, ok := scancodeNames[sc]
	return code, ok
}

// hostKey is a key the backend handles itself instead of forwarding.
type hostKey int

const (
	hostNone hostKey = iota
	hostQuit
	hostSnapshot
	hostFaster
	hostSlower
)

func hostKeyFor(sc uint32) hostKey {
	switch sc {
	case scancodeEscape:
		return hostQuit
	case scancodeF12:
		return hostSnapshot
	case scancodeF7:
		return hostFaster
	case scancodeF8:
		return hostSlower
	}
	return hostNone
}
