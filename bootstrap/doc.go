// Package bootstrap runs a docflow binary: it validates the configuration,
// initializes logging and telemetry, runs configure callbacks and a finite
// task with signal cancellation, and shuts telemetry down afterwards.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	return app.RunTask(ctx, func(ctx context.Context) error {
//	    res, err := eng.Execute(ctx)
//	    app.Summary.RecordRun(res)
//	    return err
//	})
package bootstrap
