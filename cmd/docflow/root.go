package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/docflow/observability"
)

// rootOptions holds the persistent flags. Flags override the config file
// only when set.
type rootOptions struct {
	configFile  string
	definitions string
	maxParallel int
	logLevel    string
	trace       bool
	format      string

	cmd *cobra.Command
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "docflow",
		Short: "Run content pipelines",
		Long: `docflow builds a dependency graph of pipeline phases from a definitions
file and runs every phase once its dependencies finished, independent
phases in parallel.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.cmd = root

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default ./docflow.yml or ./config.yml)")
	flags.StringVarP(&opts.definitions, "definitions", "d", "", "pipeline definitions file (default pipelines.yml)")
	flags.IntVarP(&opts.maxParallel, "max-parallel", "p", 0, "maximum concurrently running phases (0 = unlimited)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&opts.trace, "trace", false, "print spans to stderr")
	flags.StringVarP(&opts.format, "output", "o", "text", "result format: text or json")

	root.AddCommand(newRunCmd(opts), newPlanCmd(opts), newVersionCmd(opts))
	return root
}

func (o *rootOptions) changed(name string) bool {
	f := o.cmd.PersistentFlags().Lookup(name)
	return f != nil && f.Changed
}

func (o *rootOptions) apply(cfg *Config) {
	if o.changed("definitions") {
		cfg.Engine.Definitions = o.definitions
	}
	if o.changed("max-parallel") {
		cfg.Engine.MaxParallel = o.maxParallel
	}
	if o.changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if o.trace {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = observability.ExporterStdout
		cfg.Tracing.SampleRate = 1
	}
}
