package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const houseSeven = `<html><head><title>Dynamic Threshold Report - House 7</title></head>
<body><h1>Dynamic Threshold Analysis - House 7</h1>
<div style="font-size: 2.8em; font-weight: bold; color: #28a745;">114.3%</div>
<div style="color: #666;">Detection Efficiency</div>
<span style="color:#28a745;">Explained (40.0%)</span> +
<span style="color:#6c757d;">Background (30.0%)</span> +
<span style="color:#dc3545;">Unmatched (45.0%)</span> = 100%
</body></html>`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, e := range []string{"NILMPATCH_PATCH_TOLERANCE", "NILMPATCH_PATCH_TITLE_PREFIX", "NILMPATCH_LOGGING_LEVEL"} {
		os.Unsetenv(e)
	}
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func reportDir(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dynamic_report_7.html")
	if err := os.WriteFile(path, []byte(houseSeven), 0644); err != nil {
		t.Fatalf("write report: %v", err)
	}
	return dir, path
}

func TestRootRequiresDirectory(t *testing.T) {
	out, err := execute(t)
	if err == nil {
		t.Fatal("expected error without directory arguments")
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected usage in output, got:\n%s", out)
	}
}

func TestRootPatches(t *testing.T) {
	dir, path := reportDir(t)

	out, err := execute(t, dir)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	want := "Processing: " + dir + "\n  house 7: patched\n\nDone. Patched 1 files.\n"
	if out != want {
		t.Errorf("output:\n%q\nwant:\n%q", out, want)
	}

	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "Unmatched (30.0%)") {
		t.Error("report not patched")
	}
}

func TestRootDryRunAnywhere(t *testing.T) {
	dir, path := reportDir(t)

	out, err := execute(t, dir, "--dry-run")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(out, "  [DRY RUN] house 7: would patch\n") {
		t.Errorf("missing dry-run line in:\n%s", out)
	}
	if !strings.HasSuffix(out, "Done. Patched 1 files. (dry run)\n") {
		t.Errorf("missing dry-run summary in:\n%s", out)
	}

	b, _ := os.ReadFile(path)
	if string(b) != houseSeven {
		t.Error("dry run modified the report")
	}
}

func TestRootSkipsInvalidTargets(t *testing.T) {
	dir, _ := reportDir(t)
	missing := filepath.Join(dir, "missing")

	out, err := execute(t, missing, dir)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.HasPrefix(out, "Warning: "+missing+" is not a directory, skipping\n") {
		t.Errorf("missing warning in:\n%s", out)
	}
	if !strings.Contains(out, "Done. Patched 1 files.") {
		t.Errorf("remaining directory not processed:\n%s", out)
	}
}

func TestRootCustomConfig(t *testing.T) {
	dir, path := reportDir(t)
	cfgPath := filepath.Join(t.TempDir(), "nilmpatch.yaml")
	if err := os.WriteFile(cfgPath, []byte("patch:\n  title_prefix: \"Patched\"\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := execute(t, "--config", cfgPath, dir); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "<title>Patched - House 7</title>") {
		t.Error("custom title prefix not applied")
	}
}

func TestAuditStrict(t *testing.T) {
	dir, _ := reportDir(t)

	out, err := execute(t, "audit", "--strict", dir)
	if err == nil {
		t.Fatal("strict audit of an unpatched directory should fail")
	}
	if !strings.Contains(out, "FAIL  dynamic_report_7.html") {
		t.Errorf("missing FAIL line in:\n%s", out)
	}

	if _, err := execute(t, dir); err != nil {
		t.Fatalf("patch error: %v", err)
	}
	out, err = execute(t, "audit", "--strict", dir)
	if err != nil {
		t.Fatalf("strict audit after patch: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ok    dynamic_report_7.html") {
		t.Errorf("missing ok line in:\n%s", out)
	}
}

func TestStatusAndVersion(t *testing.T) {
	out, err := execute(t, "status")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	if !strings.Contains(out, "patch.tolerance:") || !strings.Contains(out, "[default]") {
		t.Errorf("unexpected status output:\n%s", out)
	}

	out, err = execute(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.HasPrefix(out, "nilmpatch dev\n") {
		t.Errorf("unexpected version output:\n%s", out)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	dir, _ := reportDir(t)
	if _, err := execute(t, "--log-level", "loud", dir); err == nil {
		t.Error("expected error for invalid log level")
	}
}
