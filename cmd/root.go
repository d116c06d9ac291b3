// Package cmd implements the ekaya-relate command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-relate/pkg/config"
	"github.com/ekaya-inc/ekaya-relate/pkg/logging"
)

const appName = "ekaya-relate"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	verbose    bool
	version    string
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context, version string) error {
	return NewRootCommand(version, os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Reports go to stdout, logs to stderr.
func NewRootCommand(version string, stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{version: version}

	root := &cobra.Command{
		Use:   appName,
		Short: "Infer primary keys and foreign key relationships from table data",
		Long: `ekaya-relate profiles the columns of a set of tables and infers primary keys
and foreign key relationships from column names and observed values alone,
without reading declared constraints.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newProfileCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newSourcesCmd())
	root.AddCommand(newVersionCmd(opts))

	return root
}

// load reads the configuration and builds the logger.
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath, o.version)
	if err != nil {
		return nil, nil, err
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, opts.version)
			return err
		},
	}
}
