// Package resilience retries failing operations with exponential backoff.
//
//	out, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) ([]document.Document, error) {
//	    return m.Execute(ctx, ec, inputs)
//	})
package resilience
