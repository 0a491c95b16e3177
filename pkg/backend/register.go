package backend

import "github.com/Neburalis/physlablang/pkg/diagnostic"

// Register names one of the eight physical registers of the target stack+register
// virtual machine, in the fixed allocation order given in SPEC_FULL.md §4.6.
type Register string

const (
	RAX    Register = "RAX"
	RBX    Register = "RBX"
	RCX    Register = "RCX"
	RDX    Register = "RDX"
	RTX    Register = "RTX"
	DED    Register = "DED"
	INSIDE Register = "INSIDE"
	CURVA  Register = "CURVA"
)

var registerOrder = []Register{RAX, RBX, RCX, RDX, RTX, DED, INSIDE, CURVA}

// bindings tracks the per-function name -> register table. Names consume
// registers strictly in registerOrder, in the order they are first seen; a
// function needing a ninth distinct name fails with TooManyLocalsError.
type bindings struct {
	names []string
	index map[string]int
}

func newBindings() *bindings {
	return &bindings{index: make(map[string]int)}
}

// bind returns name's register, allocating the next free one on first sight.
func (b *bindings) bind(name, function string) (Register, error) {
	if idx, ok := b.index[name]; ok {
		return registerOrder[idx], nil
	}
	if len(b.names) >= len(registerOrder) {
		return "", &diagnostic.TooManyLocalsError{
			Function: function, Needed: len(b.names) + 1, Capacity: len(registerOrder),
		}
	}
	idx := len(b.names)
	b.names = append(b.names, name)
	b.index[name] = idx
	return registerOrder[idx], nil
}

// resolve looks up an already-bound name without allocating one.
func (b *bindings) resolve(name string) (Register, bool) {
	idx, ok := b.index[name]
	if !ok {
		return "", false
	}
	return registerOrder[idx], true
}

// temp returns a scratch register not currently bound to any name, used for
// SET_PIXEL's address computation and to discard a statement-level call's
// return value. It never grows the bindings table.
func (b *bindings) temp(function string) (Register, error) {
	if len(b.names) >= len(registerOrder) {
		return "", &diagnostic.TooManyLocalsError{
			Function: function, Needed: len(b.names) + 1, Capacity: len(registerOrder),
		}
	}
	return registerOrder[len(b.names)], nil
}
