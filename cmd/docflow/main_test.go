package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/docflow/errors"
)

const testDefinitions = `
pipelines:
  - name: Data
    input:
      - module: create
        params:
          contents: [a, b]
    process:
      - module: fingerprint
  - name: Pages
    dependencies: [Data]
    process:
      - module: from_pipelines
        params: {pipelines: [Data]}
  - name: Manual
    trigger: manual
    input:
      - module: create
        params: {contents: [m]}
`

func writeDefinitions(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipelines.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRunJSON(t *testing.T) {
	defs := writeDefinitions(t, testDefinitions)
	out, err := execute(t, "run", "-d", defs, "-o", "json")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	var v resultView
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if v.Status != "completed" {
		t.Errorf("status = %s", v.Status)
	}
	if v.Outputs["Data"] != 2 || v.Outputs["Pages"] != 2 {
		t.Errorf("outputs = %v", v.Outputs)
	}
	if _, ok := v.Outputs["Manual"]; ok {
		t.Error("manual pipeline ran without being requested")
	}
	if len(v.Phases) != 8 {
		t.Errorf("got %d phases, want 8", len(v.Phases))
	}
}

func TestRunNamedPipeline(t *testing.T) {
	defs := writeDefinitions(t, testDefinitions)
	out, err := execute(t, "run", "Manual", "-d", defs)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Manual/Output") || strings.Contains(out, "Pages/") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRunReportsConfigurationError(t *testing.T) {
	defs := writeDefinitions(t, `
pipelines:
  - name: A
    dependencies: [Missing]
`)
	out, err := execute(t, "run", "-d", defs)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(out, "CONFIGURATION_ERROR") {
		t.Errorf("report missing code:\n%s", out)
	}
}

func TestRunReportsMissingDefinitions(t *testing.T) {
	out, err := execute(t, "run", "-d", filepath.Join(t.TempDir(), "none.yml"), "-o", "json")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(out, `"code": "NOT_FOUND"`) {
		t.Errorf("report missing code:\n%s", out)
	}
}

func TestPlan(t *testing.T) {
	defs := writeDefinitions(t, testDefinitions)
	out, err := execute(t, "plan", "-d", defs)
	if err != nil {
		t.Fatalf("plan: %v\n%s", err, out)
	}
	for _, want := range []string{
		"pipelines: Data, Pages",
		"level 0: Data/Input\n",
		"level 1: Pages/Input Data/Process\n",
		"level 2: Pages/Process\n",
		"level 3: Data/PostProcess\n",
		"level 4: Pages/PostProcess Data/Output\n",
		"level 5: Pages/Output\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRequested(t *testing.T) {
	if got := requested(nil, nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if got := requested([]string{"A"}, []string{"B"}); len(got) != 1 || got[0] != "A" {
		t.Errorf("arguments must win, got %v", got)
	}
	if got := requested(nil, []string{"B"}); len(got) != 1 || got[0] != "B" {
		t.Errorf("got %v", got)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "-o", "json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if v["version"] == "" || v["version"] == nil {
		t.Errorf("version missing: %s", out)
	}
}

func TestRunCancelledExitsWithError(t *testing.T) {
	defs := writeDefinitions(t, testDefinitions)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--log-level", "error", "run", "-d", defs, "-o", "json"})
	err := root.ExecuteContext(ctx)
	if !errors.HasCode(err, errors.ErrCodeCancelled) {
		t.Fatalf("got %v, want CANCELLED", err)
	}
	if !strings.Contains(out.String(), `"status": "cancelled"`) {
		t.Errorf("result missing cancelled status:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `"code": "CANCELLED"`) {
		t.Errorf("report missing code:\n%s", out.String())
	}
}
