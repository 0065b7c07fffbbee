package ui

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestForcedApprover_ApprovesAfterCountdown(t *testing.T) {
	var output bytes.Buffer
	sleepCalls := 0

	approver := &ForcedApprover{
		output:  &output,
		sleepFn: func(time.Duration) { sleepCalls++ },
	}

	approved, err := approver.RequestApproval(context.Background(), `schema "imdb"`)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !approved {
		t.Fatal("Expected approval after countdown")
	}
	if sleepCalls != 5 {
		t.Errorf("Expected 5 sleep calls (one per second), got %d", sleepCalls)
	}
	if !strings.Contains(output.String(), `schema "imdb"`) {
		t.Errorf("Expected output to name the target, got:\n%s", output.String())
	}
}

func TestForcedApprover_ContextCancellation(t *testing.T) {
	var output bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())

	sleepCalls := 0
	approver := &ForcedApprover{
		output: &output,
		sleepFn: func(time.Duration) {
			sleepCalls++
			if sleepCalls >= 2 {
				cancel()
			}
		},
	}

	approved, err := approver.RequestApproval(ctx, "imdb")
	if err == nil {
		t.Fatal("Expected context cancellation error")
	}
	if approved {
		t.Fatal("Expected approval to be false on cancellation")
	}
}

func TestInteractiveApprover_MatchingInput(t *testing.T) {
	var output bytes.Buffer
	approver := &InteractiveApprover{input: strings.NewReader("imdb\n"), output: &output}

	approved, err := approver.RequestApproval(context.Background(), "imdb")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !approved {
		t.Fatal("Expected approval for matching input")
	}
}

func TestInteractiveApprover_InputWithoutNewline(t *testing.T) {
	approver := &InteractiveApprover{input: strings.NewReader("  imdb "), output: &bytes.Buffer{}}

	approved, err := approver.RequestApproval(context.Background(), "imdb")
	if err != nil || !approved {
		t.Fatalf("Expected approval, got approved=%v err=%v", approved, err)
	}
}

func TestInteractiveApprover_MismatchedInput(t *testing.T) {
	var output bytes.Buffer
	approver := &InteractiveApprover{input: strings.NewReader("public\n"), output: &output}

	approved, err := approver.RequestApproval(context.Background(), "imdb")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if approved {
		t.Fatal("Expected denial for mismatched input")
	}
	if !strings.Contains(output.String(), "Operation cancelled") {
		t.Errorf("Expected cancellation message, got:\n%s", output.String())
	}
}

func TestInteractiveApprover_EmptyInput(t *testing.T) {
	approver := &InteractiveApprover{input: strings.NewReader(""), output: &bytes.Buffer{}}

	approved, err := approver.RequestApproval(context.Background(), "imdb")
	if err == nil {
		t.Fatal("Expected read error on EOF")
	}
	if approved {
		t.Fatal("Expected no approval")
	}
}

func TestInteractiveApprover_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pr, pw := io.Pipe()
	defer pw.Close()

	approver := &InteractiveApprover{input: pr, output: &bytes.Buffer{}}
	if _, err := approver.RequestApproval(ctx, "imdb"); err == nil {
		t.Fatal("Expected context error")
	}
}
