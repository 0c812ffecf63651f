package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"ifrs17/internal/models"
	"ifrs17/internal/scriptrunner"
)

func testRunner(t *testing.T) *scriptrunner.Runner {
	t.Helper()
	return &scriptrunner.Runner{
		WorkDir:     t.TempDir(),
		Interpreter: "/bin/sh",
		Timeout:     10 * time.Second,
		Logger:      zap.NewNop(),
	}
}

type stagingPayload struct {
	Synthetic      bool   `json:"synthetic"`
	FallbackReason string `json:"fallback_reason"`
	Results        struct {
		DetailedView []map[string]any `json:"detailedView"`
	} `json:"results"`
}

func TestConvertWithoutScriptUsesSyntheticFallback(t *testing.T) {
	stage := &ConversionStage{Runner: testRunner(t), Logger: zap.NewNop(), Mode: ConversionModeLenient}
	rc := BuildContext("run-c1", testModel(), testBatches(), testLOBs(), FieldParameters{})

	raw, fallback, err := stage.Convert(context.Background(), rc, rc.BatchData[0], nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !fallback {
		t.Fatalf("expected fallback")
	}

	var payload stagingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !payload.Synthetic {
		t.Fatalf("payload not flagged synthetic")
	}
	if got, want := len(payload.Results.DetailedView), len(rc.LineOfBusinesses); got != want {
		t.Fatalf("detailedView rows=%d want one per lob (%d)", got, want)
	}
}

func TestConvertScriptSuccessPassesDataThrough(t *testing.T) {
	stage := &ConversionStage{Runner: testRunner(t), Logger: zap.NewNop(), Mode: ConversionModeLenient}
	rc := BuildContext("run-c2", testModel(), testBatches(), testLOBs(), FieldParameters{})

	conv := &models.ConversionConfig{
		ID:          3,
		Name:        "uploaded",
		ScriptName:  "convert.sh",
		ScriptBytes: []byte(`echo '{"status":"success","results":{"detailedView":[{"line_of_business":"Motor"}]}}'`),
	}
	raw, fallback, err := stage.Convert(context.Background(), rc, rc.BatchData[0], conv)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if fallback {
		t.Fatalf("script succeeded, fallback must not trigger")
	}
	var payload stagingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Synthetic {
		t.Fatalf("script output must not be flagged synthetic")
	}
	if len(payload.Results.DetailedView) != 1 {
		t.Fatalf("script rows lost: %#v", payload.Results)
	}
}

func TestConvertScriptFailureLenientFallsBack(t *testing.T) {
	stage := &ConversionStage{Runner: testRunner(t), Logger: zap.NewNop(), Mode: ConversionModeLenient}
	rc := BuildContext("run-c3", testModel(), testBatches(), testLOBs(), FieldParameters{})

	conv := &models.ConversionConfig{
		ID:          4,
		Name:        "broken",
		ScriptName:  "broken.sh",
		ScriptBytes: []byte("echo boom >&2\nexit 2\n"),
	}
	raw, fallback, err := stage.Convert(context.Background(), rc, rc.BatchData[0], conv)
	if err != nil {
		t.Fatalf("lenient mode must mask the failure, got %v", err)
	}
	if !fallback {
		t.Fatalf("expected synthetic fallback")
	}
	var payload stagingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.FallbackReason == "" {
		t.Fatalf("fallback reason missing")
	}
}

func TestConvertScriptFailureStrictReturnsError(t *testing.T) {
	stage := &ConversionStage{Runner: testRunner(t), Logger: zap.NewNop(), Mode: ConversionModeStrict}
	rc := BuildContext("run-c4", testModel(), testBatches(), testLOBs(), FieldParameters{})

	conv := &models.ConversionConfig{
		ID:          5,
		Name:        "broken",
		ScriptName:  "broken.sh",
		ScriptBytes: []byte("echo boom >&2\nexit 2\n"),
	}
	_, _, err := stage.Convert(context.Background(), rc, rc.BatchData[0], conv)
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
	if convErr.Outcome.ExitCode != 2 {
		t.Fatalf("exit code=%d", convErr.Outcome.ExitCode)
	}
}
