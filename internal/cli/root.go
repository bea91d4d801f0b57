// Package cli implements the ideaflow command line.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vnykmshr/ideaflow/internal/config"
	"github.com/vnykmshr/ideaflow/internal/logging"
)

// app is the state shared by subcommands after the root pre-run.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
	stderr io.Writer
}

// NewRootCommand builds the ideaflow command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "ideaflow",
		Short: "Concurrent idea generation, scoring and evolution pipeline",
		Long: `ideaflow seeds ideas from a persona feed, rates them, evolves the
promising ones through a bounded number of generations and prints what
reaches staging at the end of each timed session.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(a.v, path)
			if err != nil {
				return err
			}
			level, err := logging.ParseLevel(cfg.Logging.Level)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.stderr = cmd.ErrOrStderr()
			a.logger = logging.Init(level, cfg.Logging.Format, a.stderr)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (YAML)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", flags.Lookup("log-format"))

	root.AddCommand(
		newRunCommand(a),
		newScheduleCommand(a),
		newVersionCommand(version),
	)
	return root
}
