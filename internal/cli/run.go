package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCommand(a *app) *cobra.Command {
	var prompts []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run interactive sessions, one per prompt",
		Long: `run reads prompts from --prompt flags, or line by line from stdin when
none are given. Each prompt starts a fresh pipeline session that runs for
session.duration and prints the staged ideas. The conversation, including
every staged idea, carries over to the next prompt. Type "quit" to exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.withDriver(ctx, cmd, func(d *Driver) error {
				if len(prompts) == 0 {
					return d.Loop(ctx, cmd.InOrStdin())
				}
				for _, p := range prompts {
					if _, err := d.Session(ctx, p); err != nil {
						if ctx.Err() != nil {
							return nil
						}
						return err
					}
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&prompts, "prompt", "p", nil, "prompt to run (repeatable); reads stdin when absent")
	flags.Duration("duration", 0, "session duration (overrides session.duration)")
	flags.Int("depth-cap", 0, "evolution depth cap (overrides pipeline.depth_cap)")
	_ = a.v.BindPFlag("session.duration", flags.Lookup("duration"))
	_ = a.v.BindPFlag("pipeline.depth_cap", flags.Lookup("depth-cap"))
	return cmd
}

// withDriver builds components, starts the metrics endpoint if enabled and
// runs fn with a Driver writing to the command's stdout.
func (a *app) withDriver(ctx context.Context, cmd *cobra.Command, fn func(*Driver) error) error {
	comps, err := Build(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.Close(); err != nil {
			a.logger.Warn("closing components", "error", err)
		}
	}()

	if a.cfg.Metrics.Enabled {
		srv, err := startMetricsServer(a.cfg.Metrics.Addr, a.logger)
		if err != nil {
			return err
		}
		defer func() { _ = srv.Shutdown() }()
	}

	return fn(NewDriver(a.cfg, comps, cmd.OutOrStdout()))
}
