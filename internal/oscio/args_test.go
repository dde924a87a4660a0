package oscio

import (
	"errors"
	"testing"

	"github.com/hypebeast/go-osc/osc"
)

func TestArgConversions(t *testing.T) {
	msg := osc.NewMessage("/x", int32(3), float32(2.5), float32(4), "s", int64(9), float64(1.25))

	tests := []struct {
		i       int
		asInt   int
		intErr  bool
		asFloat float64
		fltErr  bool
	}{
		{i: 0, asInt: 3, asFloat: 3},
		{i: 1, intErr: true, asFloat: 2.5},
		{i: 2, asInt: 4, asFloat: 4},
		{i: 3, intErr: true, fltErr: true},
		{i: 4, asInt: 9, asFloat: 9},
		{i: 5, intErr: true, asFloat: 1.25},
	}
	for _, tt := range tests {
		n, err := argInt(msg, tt.i)
		if tt.intErr {
			if !errors.Is(err, ErrArgs) {
				t.Errorf("argInt(%d) err = %v", tt.i, err)
			}
		} else if err != nil || n != tt.asInt {
			t.Errorf("argInt(%d) = %d, %v", tt.i, n, err)
		}

		f, err := argFloat(msg, tt.i)
		if tt.fltErr {
			if !errors.Is(err, ErrArgs) {
				t.Errorf("argFloat(%d) err = %v", tt.i, err)
			}
		} else if err != nil || f != tt.asFloat {
			t.Errorf("argFloat(%d) = %g, %v", tt.i, f, err)
		}
	}

	if err := wantArgs(msg, 5); !errors.Is(err, ErrArgs) {
		t.Errorf("wantArgs = %v", err)
	}
	if _, err := argFloats(msg, 2, 2); !errors.Is(err, ErrArgs) {
		t.Errorf("argFloats across a string = %v", err)
	}
}
