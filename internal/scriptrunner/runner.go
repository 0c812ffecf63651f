// Package scriptrunner executes user-supplied engine scripts as isolated
// subprocesses with a JSON-in/JSON-out contract.
//
// This is an untrusted-plugin boundary: scripts run with the privileges of
// the host process and the only isolation is process-level. Running them
// under a separate user with a restricted filesystem and resource limits is
// an open risk left to deployment.
package scriptrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

type OutcomeKind string

const (
	// OutcomeSuccess: exit 0 and stdout parsed as a JSON object.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeFailed: nonzero exit code.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomeTimedOut: wall-clock timeout exceeded; the subprocess was killed.
	OutcomeTimedOut OutcomeKind = "timed_out"
	// OutcomeMalformedOutput: exit 0 but stdout was not valid JSON.
	OutcomeMalformedOutput OutcomeKind = "malformed_output"
)

// Outcome is the tagged result of one script invocation.
type Outcome struct {
	Kind     OutcomeKind
	Data     json.RawMessage
	Stdout   string
	Stderr   string
	ExitCode int
}

func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

// Script identifies the code to run: either a platform script already on
// disk (Path) or an uploaded blob (Bytes) materialized to a temp file for
// the lifetime of the invocation only.
type Script struct {
	Name  string
	Path  string
	Bytes []byte
}

var (
	ErrNoScript = errors.New("scriptrunner: no script path or bytes")
)

const maxCapturedOutput = 10 << 20

type Runner struct {
	// WorkDir holds per-invocation temp files (input payload, uploaded
	// script copies). Everything written there is removed before Run
	// returns.
	WorkDir string
	// Interpreter, when set, is prepended to the argv (e.g. "python3").
	// Empty means the script file is executed directly.
	Interpreter string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// Run serializes payload to a temp JSON file, invokes the script with that
// file path as its sole argument and classifies the result. Host-side
// failures (temp file creation, missing script) are returned as errors;
// script-side failures are data on the Outcome.
func (r *Runner) Run(ctx context.Context, script Script, payload any) (Outcome, error) {
	if r == nil {
		return Outcome{}, errors.New("scriptrunner: nil runner")
	}
	scriptPath, cleanupScript, err := r.materialize(script)
	if err != nil {
		return Outcome{}, err
	}
	defer cleanupScript()

	inputPath, cleanupInput, err := r.writeInput(payload)
	if err != nil {
		return Outcome{}, err
	}
	defer cleanupInput()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var argv []string
	if strings.TrimSpace(r.Interpreter) != "" {
		argv = []string{r.Interpreter, scriptPath, inputPath}
	} else {
		argv = []string{scriptPath, inputPath}
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	out := Outcome{
		Stdout: truncate(stdout.String()),
		Stderr: truncate(stderr.String()),
	}

	if ctx.Err() == context.DeadlineExceeded {
		out.Kind = OutcomeTimedOut
		out.ExitCode = -1
		if r.Logger != nil {
			r.Logger.Warn("script timed out",
				zap.String("script", script.Name),
				zap.Duration("timeout", timeout))
		}
		return out, nil
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			out.Kind = OutcomeFailed
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		// Spawn failure (missing interpreter, permission): host-side.
		return Outcome{}, fmt.Errorf("scriptrunner: exec %s: %w", script.Name, runErr)
	}

	trimmed := strings.TrimSpace(out.Stdout)
	if !json.Valid([]byte(trimmed)) {
		out.Kind = OutcomeMalformedOutput
		return out, nil
	}
	out.Kind = OutcomeSuccess
	out.Data = json.RawMessage(trimmed)
	if r.Logger != nil {
		r.Logger.Debug("script completed",
			zap.String("script", script.Name),
			zap.Duration("elapsed", elapsed))
	}
	return out, nil
}

func (r *Runner) workDir() (string, error) {
	dir := r.WorkDir
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("scriptrunner: mkdir work dir: %w", err)
	}
	return dir, nil
}

// materialize resolves the script to an on-disk path. Uploaded bytes get a
// temp copy and a cleanup closure; a Path script is used in place.
func (r *Runner) materialize(script Script) (string, func(), error) {
	if len(script.Bytes) > 0 {
		dir, err := r.workDir()
		if err != nil {
			return "", nil, err
		}
		f, err := os.CreateTemp(dir, "engine-*"+scriptSuffix(script.Name))
		if err != nil {
			return "", nil, fmt.Errorf("scriptrunner: temp script: %w", err)
		}
		path := f.Name()
		if _, err := f.Write(script.Bytes); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", nil, fmt.Errorf("scriptrunner: write temp script: %w", err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", nil, err
		}
		if err := os.Chmod(path, 0o755); err != nil {
			_ = os.Remove(path)
			return "", nil, err
		}
		return path, func() { _ = os.Remove(path) }, nil
	}
	if strings.TrimSpace(script.Path) == "" {
		return "", nil, ErrNoScript
	}
	if _, err := os.Stat(script.Path); err != nil {
		return "", nil, fmt.Errorf("scriptrunner: script %s: %w", script.Path, err)
	}
	return script.Path, func() {}, nil
}

func (r *Runner) writeInput(payload any) (string, func(), error) {
	dir, err := r.workDir()
	if err != nil {
		return "", nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("scriptrunner: marshal input: %w", err)
	}
	f, err := os.CreateTemp(dir, "input-*.json")
	if err != nil {
		return "", nil, fmt.Errorf("scriptrunner: temp input: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, fmt.Errorf("scriptrunner: write input: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	return path, func() { _ = os.Remove(path) }, nil
}

func scriptSuffix(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ".py"
	}
	return ext
}

func truncate(s string) string {
	if len(s) > maxCapturedOutput {
		return s[:maxCapturedOutput]
	}
	return s
}
