package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/docflow/bootstrap"
	"github.com/kbukum/docflow/engine"
	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/logger"
	"github.com/kbukum/docflow/modules"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [pipelines...]",
		Short: "Run pipelines",
		Long: `Run the named pipelines together with their dependencies and every
pipeline triggered Always. Without names the configured pipelines run, or
the Default-triggered pipelines when none are configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipelines(cmd.Context(), opts, args, cmd.OutOrStdout())
		},
	}
}

func runPipelines(ctx context.Context, opts *rootOptions, args []string, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return report(out, opts.format, err)
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return report(out, opts.format, err)
	}

	var eng *engine.Engine
	app.OnConfigure(func(_ context.Context, a *bootstrap.App[*Config]) error {
		e, err := newEngine(a)
		eng = e
		return err
	})

	err = app.RunTask(ctx, func(ctx context.Context) error {
		var runOpts []engine.RunOption
		if names := requested(args, cfg.Engine.Pipelines); names != nil {
			runOpts = append(runOpts, engine.WithPipelines(names...))
		}
		res, err := eng.Execute(ctx, runOpts...)
		app.Summary.RecordRun(res)
		if res != nil {
			if werr := writeResult(out, opts.format, res); werr != nil {
				return werr
			}
		}
		if err == nil && res.Status == engine.RunCancelled {
			return errors.Cancelled("run").WithDetail("pending", res.Pending())
		}
		return err
	})
	if err != nil {
		return report(out, opts.format, err)
	}
	return nil
}

func newEngine(app *bootstrap.App[*Config]) (*engine.Engine, error) {
	cfg := app.Cfg
	defs, err := engine.LoadDefinitions(cfg.Engine.Definitions)
	if err != nil {
		return nil, err
	}
	reg := engine.NewRegistry()
	modules.RegisterBuiltins(reg)
	pipelines, err := defs.Resolve(reg)
	if err != nil {
		return nil, err
	}
	log := app.Logger.WithComponent("engine")
	logger.Register("engine", log)
	eng := engine.New(
		engine.WithConfig(cfg.Engine),
		engine.WithLogger(log),
		engine.WithMetrics(app.Metrics),
	)
	eng.Pipelines = pipelines
	return eng, nil
}

// requested returns the pipeline names of a run: arguments first, then the
// configured list. Nil means no explicit request.
func requested(args, configured []string) []string {
	switch {
	case len(args) > 0:
		return args
	case len(configured) > 0:
		return configured
	}
	return nil
}

type resultView struct {
	RunID    string         `json:"run_id"`
	Status   string         `json:"status"`
	Duration string         `json:"duration"`
	Outputs  map[string]int `json:"outputs"`
	Phases   []phaseView    `json:"phases"`
}

type phaseView struct {
	Pipeline  string `json:"pipeline"`
	Phase     string `json:"phase"`
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	Duration  string `json:"duration"`
	Error     string `json:"error,omitempty"`
}

func newResultView(res *engine.Result) resultView {
	v := resultView{
		RunID:    res.RunID.String(),
		Status:   string(res.Status),
		Duration: res.Duration.String(),
		Outputs:  make(map[string]int),
	}
	for _, name := range res.Outputs.Pipelines() {
		v.Outputs[name] = len(res.Outputs.Get(name))
	}
	for _, p := range res.Phases {
		pv := phaseView{
			Pipeline:  p.Pipeline,
			Phase:     p.Phase.String(),
			Status:    string(p.Status),
			Documents: p.Documents,
			Duration:  p.Duration.String(),
		}
		if p.Error != nil {
			pv.Error = p.Error.Error()
		}
		v.Phases = append(v.Phases, pv)
	}
	return v
}

func writeResult(w io.Writer, format string, res *engine.Result) error {
	v := newResultView(res)
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Fprintf(w, "run %s %s in %s\n", v.RunID, v.Status, v.Duration)
	for _, p := range v.Phases {
		line := fmt.Sprintf("  %-24s %-9s %4d docs", p.Pipeline+"/"+p.Phase, p.Status, p.Documents)
		if p.Error != "" {
			line += "  " + p.Error
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	return nil
}

// report prints err as an error report and returns it.
func report(w io.Writer, format string, err error) error {
	r := errors.Wrap(err).ToReport()
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(r); encErr != nil {
			return encErr
		}
		return err
	}
	fmt.Fprintf(w, "error %s: %s\n", r.Error.Code, r.Error.Message)
	for _, k := range sortedKeys(r.Error.Details) {
		fmt.Fprintf(w, "  %s: %v\n", k, r.Error.Details[k])
	}
	if r.Error.Cause != "" {
		fmt.Fprintf(w, "  cause: %s\n", r.Error.Cause)
	}
	return err
}
