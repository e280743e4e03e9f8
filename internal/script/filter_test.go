package script_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/streamhub/internal/script"
)

func apply(t *testing.T, expr string, in script.Input) (any, error) {
	t.Helper()
	f, err := script.CompileFilter(expr, script.DefaultSecurityLimits())
	require.NoError(t, err)
	return f.Apply(context.Background(), in)
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name string
		expr string
		in   script.Input
		want any
	}{
		{"double", "value * 2", script.Input{Value: 3}, int64(6)},
		{"float", "value / 2.0", script.Input{Value: 3}, 1.5},
		{"identity string", "value", script.Input{Value: "ada"}, "ada"},
		{"subscriber variable", `subscriber + ":" + value`, script.Input{Subscriber: "a", Value: "x"}, "a:x"},
		{"path variable", "path", script.Input{Path: "user.name"}, "user.name"},
		{"ternary", `value > 10 ? "big" : "small"`, script.Input{Value: 11}, "big"},
		{"map access", "value.name", script.Input{Value: map[string]any{"name": "ada"}}, "ada"},
		{"module import", `import("math").abs(value)`, script.Input{Value: -2.5}, 2.5},
		{
			"map result",
			`{doubled: value * 2}`,
			script.Input{Value: 2},
			map[string]any{"doubled": int64(4)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := apply(t, tt.expr, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileFilterErrors(t *testing.T) {
	t.Run("empty expression", func(t *testing.T) {
		_, err := script.CompileFilter("  ", script.DefaultSecurityLimits())
		var scriptErr *script.ScriptError
		require.True(t, errors.As(err, &scriptErr))
		assert.Equal(t, script.ErrorTypeCompilation, scriptErr.Type)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := script.CompileFilter("value *", script.DefaultSecurityLimits())
		var scriptErr *script.ScriptError
		require.True(t, errors.As(err, &scriptErr))
		assert.Equal(t, script.ErrorTypeCompilation, scriptErr.Type)
	})

	t.Run("module not allowed", func(t *testing.T) {
		limits := script.DefaultSecurityLimits()
		limits.AllowedModules = nil
		_, err := script.CompileFilter(`import("os").getenv("HOME")`, limits)
		assert.Error(t, err)
	})
}

func TestFilterRuntimeErrors(t *testing.T) {
	t.Run("division by zero", func(t *testing.T) {
		_, err := apply(t, "value / 0", script.Input{Value: 1})
		var scriptErr *script.ScriptError
		require.True(t, errors.As(err, &scriptErr))
		assert.Equal(t, script.ErrorTypeExecution, scriptErr.Type)
	})

	t.Run("unsupported value type", func(t *testing.T) {
		_, err := apply(t, "value", script.Input{Value: struct{}{}})
		var scriptErr *script.ScriptError
		require.True(t, errors.As(err, &scriptErr))
		assert.Equal(t, script.ErrorTypeConversion, scriptErr.Type)
	})
}

func TestFilterConcurrentUse(t *testing.T) {
	f, err := script.CompileFilter("value + 1", script.DefaultSecurityLimits())
	require.NoError(t, err)
	assert.Equal(t, "value + 1", f.Expression())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			got, err := f.Apply(context.Background(), script.Input{Value: v})
			assert.NoError(t, err)
			assert.Equal(t, int64(v+1), got)
		}(i)
	}
	wg.Wait()
}
