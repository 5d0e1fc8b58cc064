// Package version reports the build version of docflow.
//
// Release builds set the version through -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/docflow/version.Version=1.2.0" ./cmd/docflow
//
// Commit, commit time and dirty state come from the VCS stamp the Go
// toolchain embeds when they are not set explicitly.
package version
