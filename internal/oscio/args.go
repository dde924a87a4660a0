package oscio

import (
	"errors"
	"fmt"
	"math"

	"github.com/hypebeast/go-osc/osc"
)

// ErrArgs marks a message whose arguments have the wrong count or type.
var ErrArgs = errors.New("malformed OSC arguments")

// wantArgs checks the argument count.
func wantArgs(msg *osc.Message, n int) error {
	if got := len(msg.Arguments); got != n {
		return fmt.Errorf("%w: %s wants %d arguments, got %d", ErrArgs, msg.Address, n, got)
	}
	return nil
}

// argFloat reads argument i as a finite float. Integers are accepted.
func argFloat(msg *osc.Message, i int) (float64, error) {
	var f float64
	switch v := msg.Arguments[i].(type) {
	case float32:
		f = float64(v)
	case float64:
		f = v
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: %s argument %d is %T, want number", ErrArgs, msg.Address, i, msg.Arguments[i])
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s argument %d is %g, want finite", ErrArgs, msg.Address, i, f)
	}
	return f, nil
}

// argInt reads argument i as an int. Floats are accepted when integral.
func argInt(msg *osc.Message, i int) (int, error) {
	switch v := msg.Arguments[i].(type) {
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	}
	f, err := argFloat(msg, i)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s argument %d is %g, want integer", ErrArgs, msg.Address, i, f)
	}
	return int(f), nil
}

// argFloats reads n consecutive numeric arguments starting at first.
func argFloats(msg *osc.Message, first, n int) ([]float64, error) {
	out := make([]float64, n)
	for k := range out {
		v, err := argFloat(msg, first+k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
