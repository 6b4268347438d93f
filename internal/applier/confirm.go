package applier

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/starford/raido/internal/models"
)

// Action is one concrete change presented for confirmation.
type Action string

const (
	ActionDelete Action = "delete"
	ActionRename Action = "rename"
	ActionMove   Action = "move"
)

// Request describes the change awaiting a decision.
type Request struct {
	Record      models.FileRecord
	Actions     []Action
	NewName     string
	TargetDir   string
	Destination string
}

// Describe renders the request the way an operator reads it.
func (r Request) Describe() string {
	var parts []string
	for _, act := range r.Actions {
		switch act {
		case ActionDelete:
			return fmt.Sprintf("Delete %s?", r.Record.Name)
		case ActionRename:
			parts = append(parts, fmt.Sprintf("rename to '%s'", r.NewName))
		case ActionMove:
			parts = append(parts, fmt.Sprintf("move to '%s'", r.TargetDir))
		}
	}
	return fmt.Sprintf("Apply to %s: %s?", r.Record.Name, strings.Join(parts, ", "))
}

// Confirmer decides whether a request may proceed. Implementations must
// return promptly once ctx is done.
type Confirmer interface {
	Confirm(ctx context.Context, req Request) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, req Request) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, req Request) (bool, error) {
	return f(ctx, req)
}

// AutoConfirm approves every request.
func AutoConfirm() Confirmer {
	return ConfirmFunc(func(context.Context, Request) (bool, error) { return true, nil })
}

// DeclineAll rejects every request.
func DeclineAll() Confirmer {
	return ConfirmFunc(func(context.Context, Request) (bool, error) { return false, nil })
}

type lineResult struct {
	line string
	err  error
}

// Prompt asks a yes/no question per request on a line-oriented stream.
// An empty answer, "n", "no" or end of input declines. Only lines entered
// while a question is open count as answers.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer

	mu    sync.Mutex
	once  sync.Once
	lines chan lineResult
}

// NewPrompt creates a prompt reading answers from in and writing questions to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan lineResult, 1),
	}
}

// readLines feeds lines to Confirm from a single goroutine, so a wait can
// be abandoned on cancellation without leaving a half-read line behind.
func (p *Prompt) readLines() {
	defer close(p.lines)
	for {
		line, err := p.in.ReadString('\n')
		p.lines <- lineResult{line: line, err: err}
		if err != nil {
			return
		}
	}
}

// discardTypedAhead drops a line entered before the current question was
// shown, e.g. after an abandoned wait, so it cannot answer a different one.
func (p *Prompt) discardTypedAhead() {
	for {
		select {
		case _, ok := <-p.lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Confirm implements Confirmer.
func (p *Prompt) Confirm(ctx context.Context, req Request) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	first := false
	p.once.Do(func() {
		first = true
		go p.readLines()
	})
	if !first {
		p.discardTypedAhead()
	}

	for {
		fmt.Fprintf(p.out, "%s [y/N]: ", req.Describe())

		var res lineResult
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out)
			return false, ctx.Err()
		case r, ok := <-p.lines:
			if !ok {
				return false, nil
			}
			res = r
		}
		if res.err != nil && res.err != io.EOF {
			return false, res.err
		}

		answer := strings.ToLower(strings.TrimSpace(res.line))
		if answer == "" || answer == "n" || answer == "no" {
			return false, nil
		}
		if answer == "y" || answer == "yes" {
			return true, nil
		}
		if res.err == io.EOF {
			return false, nil
		}
	}
}
