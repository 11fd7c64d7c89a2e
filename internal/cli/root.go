// Package cli implements the datrec command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/koustreak/datrec/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "datrec",
		Short: "datrec - record persistence with lifecycle callbacks",
		Long: `datrec inserts records through the willSave / aroundSave / willInsert /
aroundInsert / didInsert / didSave callback pipeline and serves them over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))

	return cmd
}

// loadConfig reads the --config file, or the defaults when none was given.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.ConfigPath == "" {
		cfg = config.Default()
		err = cfg.Validate()
	} else {
		cfg, err = config.Load(o.ConfigPath)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Verbose {
		cfg.Logger.Level = "debug"
	}
	return cfg, nil
}
