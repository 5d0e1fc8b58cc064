// Package process runs external commands with process-group cancellation.
package process
