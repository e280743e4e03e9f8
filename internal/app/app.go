// Package app wires the application's services with a samber/do injector.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/do/v2"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"

	"github.com/nfrund/streamhub/internal/config"
	"github.com/nfrund/streamhub/internal/logging"
	"github.com/nfrund/streamhub/internal/pubsub"
	"github.com/nfrund/streamhub/internal/registry"
	"github.com/nfrund/streamhub/internal/scenario"
	"github.com/nfrund/streamhub/internal/stream"
)

// App holds the injector and the cleanups registered by its providers.
type App struct {
	injector do.Injector

	mu       sync.Mutex
	cleanups []func()
}

// New creates the application container. Services are built lazily on first
// use.
func New(cfg *config.Config) *App {
	a := &App{injector: do.New()}

	do.ProvideValue(a.injector, cfg)
	do.ProvideValue[afero.Fs](a.injector, afero.NewOsFs())
	do.Provide(a.injector, a.provideLogger)
	do.Provide(a.injector, a.provideTracer)
	do.Provide(a.injector, a.provideBridge)
	do.Provide(a.injector, a.provideRegistryOptions)
	do.Provide(a.injector, a.provideLoader)
	do.Provide(a.injector, a.provideRunner)

	return a
}

// Loader returns the scenario loader.
func (a *App) Loader() (*scenario.Loader, error) {
	return do.Invoke[*scenario.Loader](a.injector)
}

// Runner returns the scenario runner.
func (a *App) Runner() (*scenario.Runner, error) {
	return do.Invoke[*scenario.Runner](a.injector)
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return do.MustInvoke[*slog.Logger](a.injector)
}

// Close runs registered cleanups in reverse order.
func (a *App) Close() {
	a.mu.Lock()
	cleanups := a.cleanups
	a.cleanups = nil
	a.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func (a *App) onClose(fn func()) {
	a.mu.Lock()
	a.cleanups = append(a.cleanups, fn)
	a.mu.Unlock()
}

func (a *App) provideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return logging.New(cfg.LogFormat, cfg.LogLevel), nil
}

func (a *App) provideTracer(i do.Injector) (trace.Tracer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tracer, shutdown, err := pubsub.SetupOTel(context.Background(), cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	a.onClose(shutdown)
	return tracer, nil
}

func (a *App) provideBridge(i do.Injector) (*pubsub.WatermillBridge, error) {
	tracer, err := do.Invoke[trace.Tracer](i)
	if err != nil {
		return nil, err
	}
	bridge := pubsub.NewWatermillBridge(pubsub.WithBridgeTracer(tracer))
	a.onClose(func() {
		if err := bridge.Close(); err != nil {
			slog.Error("Failed to close pub/sub bridge", "error", err)
		}
	})
	return bridge, nil
}

func (a *App) provideRegistryOptions(i do.Injector) ([]registry.Option, error) {
	cfg := do.MustInvoke[*config.Config](i)
	logger := do.MustInvoke[*slog.Logger](i)
	tracer, err := do.Invoke[trace.Tracer](i)
	if err != nil {
		return nil, err
	}

	factory := stream.HotFactory
	if cfg.Replay {
		factory = stream.BehaviorFactory
	}
	opts := []registry.Option{
		registry.WithFactory(factory),
		registry.WithLogger(logger),
		registry.WithTracer(tracer),
	}

	if cfg.Mirror {
		bridge, err := do.Invoke[*pubsub.WatermillBridge](i)
		if err != nil {
			return nil, err
		}
		opts = append(opts, registry.WithMirror(bridge))
	}
	return opts, nil
}

func (a *App) provideLoader(i do.Injector) (*scenario.Loader, error) {
	return scenario.NewLoader(do.MustInvoke[afero.Fs](i)), nil
}

func (a *App) provideRunner(i do.Injector) (*scenario.Runner, error) {
	opts, err := do.Invoke[[]registry.Option](i)
	if err != nil {
		return nil, err
	}
	return scenario.NewRunner(do.MustInvoke[*slog.Logger](i), opts...), nil
}
