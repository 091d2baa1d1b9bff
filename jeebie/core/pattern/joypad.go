package pattern

import "github.com/valerio/jeebie-host/jeebie/input"

// Button is one of the eight Game Boy joypad inputs.
type Button uint8

const (
	ButtonRight Button = iota
	ButtonLeft
	ButtonUp
	ButtonDown
	ButtonA
	ButtonB
	ButtonSelect
	ButtonStart
)

// KeyMap maps key codes to joypad buttons. Codes not in the map are ignored.
var KeyMap = map[string]Button{
	input.CodeArrowRight: ButtonRight,
	input.CodeArrowLeft:  ButtonLeft,
	input.CodeArrowUp:    ButtonUp,
	input.CodeArrowDown:  ButtonDown,
	"KeyZ":               ButtonA,
	"KeyX":               ButtonB,
	input.CodeEnter:      ButtonStart,
	input.CodeShiftLeft:  ButtonSelect,
	input.CodeShiftRight: ButtonSelect,
	input.CodeBackspace:  ButtonSelect,
}

// Joypad holds button state as two active-low nibbles, like the P1 register:
// a cleared bit means the button is held.
type Joypad struct {
	dpad    uint8
	buttons uint8
	init    bool
}

func (j *Joypad) reset() {
	if !j.init {
		j.dpad, j.buttons, j.init = 0x0F, 0x0F, true
	}
}

// Press marks the button mapped to code as held. It reports the button and
// whether the code was mapped at all.
func (j *Joypad) Press(code string) (Button, bool) {
	j.reset()
	b, ok := KeyMap[code]
	if !ok {
		return 0, false
	}
	if b < ButtonA {
		j.dpad &^= 1 << b
	} else {
		j.buttons &^= 1 << (b - ButtonA)
	}
	return b, true
}

// Release marks the button mapped to code as released.
func (j *Joypad) Release(code string) {
	j.reset()
	b, ok := KeyMap[code]
	if !ok {
		return
	}
	if b < ButtonA {
		j.dpad |= 1 << b
	} else {
		j.buttons |= 1 << (b - ButtonA)
	}
}

// Held reports whether b is currently pressed.
func (j *Joypad) Held(b Button) bool {
	j.reset()
	if b < ButtonA {
		return j.dpad&(1<<b) == 0
	}
	return j.buttons&(1<<(b-ButtonA)) == 0
}

// Register returns the low nibble the P1 register would expose for the given
// selection: 0x10 reads the d-pad, 0x20 the buttons.
func (j *Joypad) Register(line uint8) uint8 {
	j.reset()
	switch line & 0x30 {
	case 0x10:
		return j.dpad
	case 0x20:
		return j.buttons
	default:
		return 0
	}
}

// Direction returns the scroll step implied by the held d-pad buttons.
func (j *Joypad) Direction() (dx, dy int) {
	if j.Held(ButtonRight) {
		dx++
	}
	if j.Held(ButtonLeft) {
		dx--
	}
	if j.Held(ButtonDown) {
		dy++
	}
	if j.Held(ButtonUp) {
		dy--
	}
	return dx, dy
}
