package starlark

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var fileOptions = &syntax.FileOptions{}

// wrap lets authored expressions span several lines.
func wrap(expr string) string {
	return "(" + expr + "\n)"
}

// Parse checks that expr is a well-formed Starlark expression.
func Parse(name, expr string) error {
	if _, err := fileOptions.ParseExpr(name, wrap(expr), 0); err != nil {
		return &EvalError{Name: name, Expr: expr, Message: err.Error()}
	}
	return nil
}

// Eval evaluates expr with globals on a pooled thread.
func Eval(pool *ThreadPool, name, expr string, globals starlark.StringDict) (starlark.Value, error) {
	thread := pool.Get(name)
	defer pool.Put(thread)

	v, err := starlark.EvalOptions(fileOptions, thread, name, wrap(expr), globals)
	if err != nil {
		return nil, &EvalError{Name: name, Expr: expr, Message: err.Error()}
	}
	return v, nil
}

// EvalError represents an error during Starlark expression evaluation.
type EvalError struct {
	Name    string
	Expr    string
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: error evaluating %q: %s", e.Name, e.Expr, e.Message)
}

// Tenths is the tenths(x) builtin: x rounded half away from zero to one
// decimal place. None stays None.
var Tenths = starlark.NewBuiltin("tenths", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &x); err != nil {
		return nil, err
	}
	if x == starlark.None {
		return starlark.None, nil
	}
	f, ok := starlark.AsFloat(x)
	if !ok {
		if s, isStr := x.(starlark.String); isStr {
			var parsed float64
			if _, err := fmt.Sscan(string(s), &parsed); err == nil {
				return starlark.Float(math.Round(parsed*10) / 10), nil
			}
		}
		return nil, fmt.Errorf("%s: want number, got %s", b.Name(), x.Type())
	}
	return starlark.Float(math.Round(f*10) / 10), nil
})
