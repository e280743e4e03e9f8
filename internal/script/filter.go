package script

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

const resultVar = "__result__"

// Input is the data a filter expression can read.
type Input struct {
	Subscriber string
	Path       string
	Value      any
}

// Filter is a compiled filter expression. It is safe for concurrent use.
type Filter struct {
	expr     string
	compiled *tengo.Compiled
	limits   SecurityLimits
}

// CompileFilter compiles expr once. Modules listed in limits.AllowedModules
// are available through import, e.g. `import("math").abs(value)`.
func CompileFilter(expr string, limits SecurityLimits) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, NewScriptError(ErrorTypeCompilation, expr, "filter expression is empty", nil)
	}

	startTime := time.Now()

	s := tengo.NewScript([]byte(resultVar + " := (" + expr + ")"))
	s.SetImports(stdlib.GetModuleMap(limits.AllowedModules...))
	if limits.MaxAllocs > 0 {
		s.SetMaxAllocs(limits.MaxAllocs)
	}
	for _, name := range []string{"value", "subscriber", "path"} {
		if err := s.Add(name, nil); err != nil {
			return nil, NewScriptError(ErrorTypeCompilation, expr, "failed to declare variable "+name, err)
		}
	}

	compiled, err := s.Compile()
	if err != nil {
		return nil, NewScriptError(ErrorTypeCompilation, expr, "failed to compile filter", err)
	}

	slog.Debug("Filter compiled", "expression", expr, "compilation_time", time.Since(startTime))

	return &Filter{expr: expr, compiled: compiled, limits: limits}, nil
}

// Expression returns the source text.
func (f *Filter) Expression() string {
	return f.expr
}

// Apply evaluates the expression against in and returns its result as a Go
// value. Tengo integers come back as int64 and floats as float64.
func (f *Filter) Apply(ctx context.Context, in Input) (any, error) {
	c := f.compiled.Clone()

	vars := map[string]any{
		"value":      in.Value,
		"subscriber": in.Subscriber,
		"path":       in.Path,
	}
	for name, v := range vars {
		if err := c.Set(name, v); err != nil {
			return nil, NewScriptError(ErrorTypeConversion, f.expr, "cannot pass "+name+" to filter", err)
		}
	}

	if f.limits.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.limits.MaxExecutionTime)
		defer cancel()
	}

	if err := c.RunContext(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewScriptError(ErrorTypeTimeout, f.expr, "filter timed out", err)
		}
		return nil, NewScriptError(ErrorTypeExecution, f.expr, "filter failed", err)
	}

	return c.Get(resultVar).Value(), nil
}
