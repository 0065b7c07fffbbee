package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// ForcedApprover approves after a countdown, used with --force.
type ForcedApprover struct {
	output  io.Writer
	sleepFn func(time.Duration)
}

func NewForcedApprover() imdbload.Approver {
	return &ForcedApprover{output: os.Stderr, sleepFn: time.Sleep}
}

func (a *ForcedApprover) RequestApproval(ctx context.Context, target string) (bool, error) {
	fmt.Fprintln(a.output)
	fmt.Fprintln(a.output, WarningStyle.Render(fmt.Sprintf("DANGER: %s and every loaded row in it will be dropped", target)))

	seconds := int(imdbload.DefaultForceApprovalCountdown.Seconds())
	for i := seconds; i > 0; i-- {
		if err := ctx.Err(); err != nil {
			fmt.Fprintln(a.output)
			return false, err
		}
		fmt.Fprintf(a.output, "\rDropping in: %d seconds... (Press Ctrl+C to cancel)", i)
		a.sleepFn(time.Second)
	}
	if err := ctx.Err(); err != nil {
		fmt.Fprintln(a.output)
		return false, err
	}

	fmt.Fprintf(a.output, "\r%s Proceeding with drop of %s...                    \n", SymbolCheck, target)
	return true, nil
}

// InteractiveApprover asks the user to type the target's name.
type InteractiveApprover struct {
	input  io.Reader
	output io.Writer
}

func NewInteractiveApprover() imdbload.Approver {
	return &InteractiveApprover{input: os.Stdin, output: os.Stderr}
}

func (a *InteractiveApprover) RequestApproval(ctx context.Context, target string) (bool, error) {
	fmt.Fprintf(a.output, "\n%s\n", WarningStyle.Render(fmt.Sprintf("WARNING: You are about to DROP %s", target)))
	fmt.Fprintln(a.output, "This permanently deletes all loaded data!")
	fmt.Fprintf(a.output, "\nTo confirm, type '%s' and press Enter: ", target)

	inputCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(a.input).ReadString('\n')
		if err != nil && line == "" {
			errCh <- err
			return
		}
		inputCh <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errCh:
		return false, fmt.Errorf("failed to read input: %w", err)
	case input := <-inputCh:
		if input == target {
			fmt.Fprintf(a.output, "%s Confirmed.\n", SymbolCheck)
			return true, nil
		}
		fmt.Fprintf(a.output, "%s Input '%s' does not match '%s'. Operation cancelled.\n", SymbolCross, input, target)
		return false, nil
	}
}

var (
	_ imdbload.Approver = (*ForcedApprover)(nil)
	_ imdbload.Approver = (*InteractiveApprover)(nil)
)
