package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/docflow/engine"
	"github.com/kbukum/docflow/logger"
	"github.com/kbukum/docflow/modules"
)

func newPlanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [pipelines...]",
		Short: "Print the phases that would run, grouped into parallel levels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return plan(opts, args, cmd.OutOrStdout())
		},
	}
}

func plan(opts *rootOptions, args []string, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return report(out, opts.format, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return report(out, opts.format, err)
	}

	defs, err := engine.LoadDefinitions(cfg.Engine.Definitions)
	if err != nil {
		return report(out, opts.format, err)
	}
	reg := engine.NewRegistry()
	modules.RegisterBuiltins(reg)
	pipelines, err := defs.Resolve(reg)
	if err != nil {
		return report(out, opts.format, err)
	}

	eng := engine.New(engine.WithLogger(logger.Nop()))
	eng.Pipelines = pipelines
	graph, err := eng.Build()
	if err != nil {
		return report(out, opts.format, err)
	}
	triggered, err := eng.TriggeredPipelines(requested(args, cfg.Engine.Pipelines))
	if err != nil {
		return report(out, opts.format, err)
	}
	if len(triggered) == 0 {
		fmt.Fprintln(out, "no pipelines triggered")
		return nil
	}
	levels, err := graph.Levels(triggered...)
	if err != nil {
		return report(out, opts.format, err)
	}

	fmt.Fprintf(out, "pipelines: %s\n", strings.Join(triggered, ", "))
	for i, level := range levels {
		names := make([]string, len(level))
		for j, n := range level {
			names[j] = n.String()
		}
		fmt.Fprintf(out, "level %d: %s\n", i, strings.Join(names, " "))
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
