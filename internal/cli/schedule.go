package cli

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/ideaflow/pkg/common/validation"
	"github.com/vnykmshr/ideaflow/pkg/scheduling/scheduler"
)

func newScheduleCommand(a *app) *cobra.Command {
	var runs int64

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run sessions for a fixed prompt on a cron schedule",
		Long: `schedule runs one session with schedule.prompt every time
schedule.cron fires, until interrupted or until --runs sessions completed.
Cron expressions take five or six fields or a descriptor such as @hourly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc := a.cfg.Schedule
			if err := validation.ValidateNotEmpty("cli", "schedule.prompt", sc.Prompt); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			return a.withDriver(ctx, cmd, func(d *Driver) error {
				var completed atomic.Int64
				sched := scheduler.New(scheduler.Config{Logger: a.logger})
				job := scheduler.JobFunc(func(jobCtx context.Context) error {
					_, err := d.Session(jobCtx, sc.Prompt)
					if n := completed.Add(1); runs > 0 && n >= runs {
						cancel()
					}
					return err
				})
				if err := sched.ScheduleCron("session", sc.Cron, job); err != nil {
					return err
				}
				if err := sched.Start(); err != nil {
					return err
				}
				a.logger.Info("sessions scheduled", "cron", sc.Cron)

				<-ctx.Done()
				<-sched.Stop()
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.String("cron", "", "cron expression (overrides schedule.cron)")
	flags.String("prompt", "", "prompt for every session (overrides schedule.prompt)")
	flags.Int64Var(&runs, "runs", 0, "stop after this many sessions; 0 runs until interrupted")
	_ = a.v.BindPFlag("schedule.cron", flags.Lookup("cron"))
	_ = a.v.BindPFlag("schedule.prompt", flags.Lookup("prompt"))
	return cmd
}
