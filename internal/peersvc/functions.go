package peersvc

import (
	"encoding/json"
	"fmt"
)

// Function is a named, side-effect-free callable a CPU_TASK's Function
// field may select. There is no general sandboxed bytecode interpreter
// here — an explicit non-goal — so Program is carried opaquely and folded
// into the cache fingerprint only; Function selects among a small fixed
// registry instead.
type Function func(args []interface{}) ([]byte, error)

var builtinFunctions = map[string]Function{
	"square": func(args []interface{}) ([]byte, error) {
		x, err := floatArg(args, 0)
		if err != nil {
			return nil, err
		}
		return json.Marshal(x * x)
	},
	"add": func(args []interface{}) ([]byte, error) {
		a, err := floatArg(args, 0)
		if err != nil {
			return nil, err
		}
		b, err := floatArg(args, 1)
		if err != nil {
			return nil, err
		}
		return json.Marshal(a + b)
	},
	"echo": func(args []interface{}) ([]byte, error) {
		return json.Marshal(args)
	},
}

func floatArg(args []interface{}, idx int) (float64, error) {
	if idx >= len(args) {
		return 0, fmt.Errorf("missing argument %d", idx)
	}
	f, ok := args[idx].(float64)
	if !ok {
		return 0, fmt.Errorf("argument %d is not a number", idx)
	}
	return f, nil
}

func lookupFunction(name string) (Function, error) {
	fn, ok := builtinFunctions[name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	return fn, nil
}
