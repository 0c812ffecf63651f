package scriptrunner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestRun_SuccessParsesStdout(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "ok.sh", `echo '{"status":"success","run_id":"r1"}'`)
	r := &Runner{WorkDir: dir, Timeout: 10 * time.Second}

	out, err := r.Run(context.Background(), Script{Name: "ok", Path: path}, map[string]any{"run_id": "r1"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Kind != OutcomeSuccess {
		t.Fatalf("kind=%s want=%s stderr=%q", out.Kind, OutcomeSuccess, out.Stderr)
	}
	var parsed map[string]any
	if err := json.Unmarshal(out.Data, &parsed); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if parsed["run_id"] != "r1" {
		t.Fatalf("run_id=%v want=r1", parsed["run_id"])
	}
}

func TestRun_InputFilePassedAsSoleArgument(t *testing.T) {
	dir := t.TempDir()
	// The script echoes its input file back, proving the payload was
	// serialized and handed over by path.
	path := writeScript(t, dir, "echo.sh", `cat "$1"`)
	r := &Runner{WorkDir: dir, Timeout: 10 * time.Second}

	out, err := r.Run(context.Background(), Script{Name: "echo", Path: path}, map[string]any{"key": "value"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Kind != OutcomeSuccess {
		t.Fatalf("kind=%s stderr=%q", out.Kind, out.Stderr)
	}
	var parsed map[string]string
	if err := json.Unmarshal(out.Data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed["key"] != "value" {
		t.Fatalf("payload roundtrip: got %v", parsed)
	}
}

func TestRun_NonzeroExit(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "fail.sh", `echo "partial"; echo "boom" >&2; exit 3`)
	r := &Runner{WorkDir: dir, Timeout: 10 * time.Second}

	out, err := r.Run(context.Background(), Script{Name: "fail", Path: path}, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Kind != OutcomeFailed {
		t.Fatalf("kind=%s want=%s", out.Kind, OutcomeFailed)
	}
	if out.ExitCode != 3 {
		t.Fatalf("exit=%d want=3", out.ExitCode)
	}
	if !strings.Contains(out.Stderr, "boom") {
		t.Fatalf("stderr=%q", out.Stderr)
	}
	if !strings.Contains(out.Stdout, "partial") {
		t.Fatalf("stdout=%q", out.Stdout)
	}
}

func TestRun_MalformedOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "garbage.sh", `echo "this is not json"`)
	r := &Runner{WorkDir: dir, Timeout: 10 * time.Second}

	out, err := r.Run(context.Background(), Script{Name: "garbage", Path: path}, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Kind != OutcomeMalformedOutput {
		t.Fatalf("kind=%s want=%s", out.Kind, OutcomeMalformedOutput)
	}
	if !strings.Contains(out.Stdout, "not json") {
		t.Fatalf("stdout=%q", out.Stdout)
	}
}

func TestRun_Timeout(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "hang.sh", `sleep 30`)
	r := &Runner{WorkDir: dir, Timeout: 500 * time.Millisecond}

	start := time.Now()
	out, err := r.Run(context.Background(), Script{Name: "hang", Path: path}, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Kind != OutcomeTimedOut {
		t.Fatalf("kind=%s want=%s", out.Kind, OutcomeTimedOut)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatalf("subprocess was not killed on timeout")
	}
}

func TestRun_UploadedBytesAreCleanedUp(t *testing.T) {
	dir := t.TempDir()
	r := &Runner{WorkDir: dir, Timeout: 10 * time.Second}

	body := []byte("#!/bin/sh\necho '{\"ok\":true}'\n")
	out, err := r.Run(context.Background(), Script{Name: "upload.sh", Bytes: body}, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Kind != OutcomeSuccess {
		t.Fatalf("kind=%s stderr=%q", out.Kind, out.Stderr)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		t.Fatalf("leftover temp file %s", e.Name())
	}
}

func TestRun_NoScript(t *testing.T) {
	r := &Runner{WorkDir: t.TempDir()}
	_, err := r.Run(context.Background(), Script{Name: "empty"}, nil)
	if !errors.Is(err, ErrNoScript) {
		t.Fatalf("err=%v want ErrNoScript", err)
	}
}
