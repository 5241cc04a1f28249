// Package cmd holds startup plumbing shared by the command packages.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/respawn-penalty/internal/platform/config"
	"github.com/louisbranch/respawn-penalty/internal/platform/otel"
)

const (
	defaultOTelShutdownTimeout = 5 * time.Second
	serviceNamePrefix          = "respawn-penalty-"
)

// Command service names, used for telemetry resources.
const (
	ServiceInspect  = "inspect"
	ServiceScenario = "scenario"
)

// TelemetrySetup starts tracing for a service and returns its shutdown.
type TelemetrySetup func(ctx context.Context, serviceName string) (func(context.Context) error, error)

// RunOptions controls shared entrypoint behavior for commands.
type RunOptions struct {
	// ShutdownTimeout bounds the telemetry flush on exit.
	ShutdownTimeout time.Duration
	// Logger receives telemetry shutdown failures. Defaults to log.Default.
	Logger *log.Logger
	// Setup replaces otel.Setup.
	Setup TelemetrySetup
}

// ServiceName returns the telemetry service name for a command.
func ServiceName(service string) string {
	return serviceNamePrefix + strings.TrimSpace(service)
}

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags over values already loaded from env.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry runs fn with tracing configured from the environment.
func RunWithTelemetry(ctx context.Context, service string, fn func(context.Context) error) error {
	return RunWithTelemetryAndOptions(ctx, service, RunOptions{}, fn)
}

// RunWithTelemetryAndOptions is RunWithTelemetry with explicit options.
func RunWithTelemetryAndOptions(ctx context.Context, service string, options RunOptions, fn func(context.Context) error) error {
	if strings.TrimSpace(service) == "" {
		return fmt.Errorf("service name is required")
	}
	if fn == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	setup := options.Setup
	if setup == nil {
		setup = otel.Setup
	}

	shutdown, err := setup(ctx, ServiceName(service))
	if err != nil {
		return fmt.Errorf("%s telemetry: %w", service, err)
	}
	defer flushTelemetry(service, shutdown, options)
	return fn(ctx)
}

func flushTelemetry(service string, shutdown func(context.Context) error, options RunOptions) {
	if shutdown == nil {
		return
	}
	logger := options.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := options.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultOTelShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Printf("%s otel shutdown: %v", service, err)
	}
}
