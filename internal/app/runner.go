package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/indexsync/indexsync/internal/config"
	"github.com/spf13/pflag"
)

// RunParams contains dependencies for command execution
type RunParams struct {
	LoadSettings  func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings func(*config.Settings) error
	NewService    func(*config.Settings) (*Service, func(), error)
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
		NewService:    NewService,
	}
}

// RunWithDeps loads and validates settings, builds the service and hands it
// to the command body. The service is torn down when the body returns.
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string,
	body func(context.Context, *Service) error) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to avoid buffering issues
	config.SetupLogging(settings)

	svc, cleanup, err := params.NewService(settings)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	return body(ctx, svc)
}

// Serve runs the scheduled queue drainer until the context is cancelled.
func Serve(ctx context.Context, svc *Service, version string) error {
	slog.Info("Starting index synchronization service", "version", version)
	config.Log(svc.settings)

	scheduler, err := svc.Scheduler()
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	<-ctx.Done()
	slog.Info("Shutting down")
	return nil
}
