package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/indexsync/indexsync/internal/app"
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "indexsync"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "Search index synchronization service",
		Long:    "Keeps search engine indices in sync with a structured content source",
		Version: version,
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	app.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		serveCmd(version),
		setupCmd(),
		indexCmd(),
		deleteCmd(),
		reindexCmd(),
		queueCmd(),
		dropCmd(),
		versionCmd(),
		statusCmd(),
	)

	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// run wraps a command body with settings loading and service construction.
func run(cmd *cobra.Command, body func(context.Context, *app.Service) error) error {
	return app.RunWithDeps(cmd.Context(), app.DefaultRunParams(), cmd.Flags(), Version, body)
}

func serveCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled queue drainer until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.RunWithDeps(ctx, app.DefaultRunParams(), cmd.Flags(), version,
				func(ctx context.Context, svc *app.Service) error {
					return app.Serve(ctx, svc, version)
				})
		},
	}
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup [plugin]",
		Short: "Create indices and aliases for one plugin or all plugins",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *app.Service) error {
				return svc.Setup(ctx, optionalArg(args))
			})
		},
	}
}

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <record.json>",
		Short: "Store a record and index it through every matching plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read record file: %w", err)
			}
			rec, err := app.ParseRecord(data)
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, svc *app.Service) error {
				if err := svc.Source().Store(rec); err != nil {
					return err
				}
				if err := svc.HandleChange(ctx, rec); err != nil {
					return err
				}
				fmt.Printf("indexed %s/%s\n", rec.Type, rec.ID)
				return nil
			})
		},
	}
}

func deleteCmd() *cobra.Command {
	var bundle string
	cmd := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete a record's documents from every matching index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *app.Service) error {
				if err := svc.DeleteRecord(ctx, args[0], bundle, args[1]); err != nil {
					return err
				}
				fmt.Printf("deleted %s/%s\n", args[0], args[1])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bundle, "bundle", "", "Record bundle")
	return cmd
}

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex [plugin]",
		Short: "Queue every record for reindexing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *app.Service) error {
				n, err := svc.Reindex(ctx, optionalArg(args))
				if err != nil {
					return err
				}
				fmt.Printf("%d items queued\n", n)
				return nil
			})
		},
	}
}

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and drain the reindex queue",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "run [plugin]",
			Short: "Drain pending queue items",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, svc *app.Service) error {
					res, err := svc.QueueRun(ctx, optionalArg(args))
					if err != nil {
						return err
					}
					fmt.Printf("%d processed, %d failed, %d remaining\n",
						res.Processed, res.Failed, res.Remaining)
					if res.Suspended {
						fmt.Println("run suspended: search engine unreachable")
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status [plugin]",
			Short: "Show queue counters",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, svc *app.Service) error {
					st, err := svc.QueueStatus(ctx, optionalArg(args))
					if err != nil {
						return err
					}
					fmt.Printf("total=%d processed=%d errors=%d\n", st.Total, st.Processed, st.Errors)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear [plugin]",
			Short: "Drop queued items",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, svc *app.Service) error {
					n, err := svc.QueueClear(ctx, optionalArg(args))
					if err != nil {
						return err
					}
					fmt.Printf("%d items cleared\n", n)
					return nil
				})
			},
		},
	)
	return cmd
}

func dropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop [plugin]",
		Short: "Delete every physical index of one plugin or all plugins",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *app.Service) error {
				n, err := svc.Drop(ctx, optionalArg(args))
				if err != nil {
					return err
				}
				fmt.Printf("%d indices deleted\n", n)
				return nil
			})
		},
	}
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Manage index versioning",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the active version suffix",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, svc *app.Service) error {
					ver, err := svc.CurrentVersion(ctx)
					if err != nil {
						return err
					}
					if ver == "" {
						fmt.Println("no version yet; run setup first")
						return nil
					}
					fmt.Println(ver)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "increment",
			Short: "Advance the version counter without touching any index",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, svc *app.Service) error {
					ver, err := svc.IncrementVersion(ctx)
					if err != nil {
						return err
					}
					fmt.Println(ver)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "swap [plugin]",
			Short: "Repoint aliases at the current version's indices",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, svc *app.Service) error {
					return svc.SwapAliases(ctx, optionalArg(args))
				})
			},
		},
	)
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine health, active version and queue state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *app.Service) error {
				report, err := svc.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("engine: %s\n", report.Health.Status)
				if report.Version != "" {
					fmt.Printf("version: %s\n", report.Version)
				}
				for _, p := range report.Plugins {
					fmt.Printf("plugin %s: index=%s deferred=%t queue total=%d processed=%d errors=%d\n",
						p.ID, p.Template, p.Deferred, p.Queue.Total, p.Queue.Processed, p.Queue.Errors)
				}
				return nil
			})
		},
	}
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
