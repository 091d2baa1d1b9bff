package input

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type injection struct {
	down bool
	code string
}

type recordingCore struct {
	calls []injection
	err   error
}

func (r *recordingCore) KeyDown(code string) error {
	r.calls = append(r.calls, injection{down: true, code: code})
	return r.err
}

func (r *recordingCore) KeyUp(code string) error {
	r.calls = append(r.calls, injection{down: false, code: code})
	return r.err
}

func TestForwarder_DownThenUp(t *testing.T) {
	core := &recordingCore{}
	f := NewForwarder(core)

	f.KeyDown("KeyX")
	f.KeyUp("KeyX")

	assert.Equal(t, []injection{{true, "KeyX"}, {false, "KeyX"}}, core.calls)
	assert.Equal(t, uint64(2), f.Forwarded())
}

func TestForwarder_RepeatsAreNotSuppressed(t *testing.T) {
	core := &recordingCore{}
	f := NewForwarder(core)

	for i := 0; i < 5; i++ {
		f.KeyDown(CodeArrowUp)
	}

	assert.Len(t, core.calls, 5)
}

func TestForwarder_UnmappedKeysPassThrough(t *testing.T) {
	core := &recordingCore{}
	f := NewForwarder(core)

	f.KeyDown("IntlYen")
	f.KeyUp("")

	assert.Equal(t, []injection{{true, "IntlYen"}, {false, ""}}, core.calls)
}

func TestForwarder_InjectionErrorIsNotFatal(t *testing.T) {
	core := &recordingCore{err: errors.New("guest trap")}
	f := NewForwarder(core)

	assert.NotPanics(t, func() {
		f.KeyDown("KeyZ")
		f.KeyUp("KeyZ")
	})
	assert.Len(t, core.calls, 2)
}

func TestRuneCode(t *testing.T) {
	tests := []struct {
		r    rune
		code string
		ok   bool
	}{
		{'z', "KeyZ", true},
		{'Z', "KeyZ", true},
		{'7', "Digit7", true},
		{' ', CodeSpace, true},
		{'+', CodeEqual, true},
		{'_', CodeMinus, true},
		{'é', "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			code, ok := RuneCode(tt.r)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.code, code)
		})
	}
}
