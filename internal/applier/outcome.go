package applier

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Kind is the closed set of results of one Apply call.
type Kind string

const (
	KindDeleted  Kind = "deleted"
	KindMoved    Kind = "moved"
	KindSkipped  Kind = "skipped"
	KindConflict Kind = "conflict"
	KindFailed   Kind = "failed"
)

// Skip reasons.
const (
	ReasonNoop      = "no-op"
	ReasonDeclined  = "declined"
	ReasonNotFound  = "not-found"
	ReasonCancelled = "cancelled"
	ReasonDryRun    = "dry-run"
	// ReasonChanged means the file was modified after it was scanned, so a
	// delete suggested from the old content is not carried out.
	ReasonChanged = "changed"
)

// Outcome reports what one Apply call did. From and To are set for moves
// and conflicts, Reason for skips, Err for conflicts and failures.
type Outcome struct {
	Kind   Kind   `json:"kind"`
	Path   string `json:"path"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Reason string `json:"reason,omitempty"`
	Err    error  `json:"-"`
}

func deleted(path string) Outcome {
	return Outcome{Kind: KindDeleted, Path: path}
}

func moved(from, to string) Outcome {
	return Outcome{Kind: KindMoved, Path: from, From: from, To: to}
}

// Skipped builds a skip outcome. It is exported for callers that decide
// not to invoke the applier at all (dry runs).
func Skipped(path, reason string) Outcome {
	return Outcome{Kind: KindSkipped, Path: path, Reason: reason}
}

func conflict(from, to string, err error) Outcome {
	return Outcome{Kind: KindConflict, Path: from, From: from, To: to, Err: err}
}

func failed(path string, err error) Outcome {
	return Outcome{Kind: KindFailed, Path: path, Err: err}
}

// ErrorText returns the error message, or "" when there is none.
func (o Outcome) ErrorText() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Changed reports whether the filesystem was mutated.
func (o Outcome) Changed() bool {
	return o.Kind == KindDeleted || o.Kind == KindMoved
}

// MarshalJSON adds the error text, which the Err field cannot carry.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type plain Outcome
	return json.Marshal(struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain(o), o.ErrorText()})
}

func (o Outcome) String() string {
	switch o.Kind {
	case KindDeleted:
		return fmt.Sprintf("deleted %s", o.Path)
	case KindMoved:
		return fmt.Sprintf("moved %s -> %s", o.From, o.To)
	case KindSkipped:
		return fmt.Sprintf("skipped %s (%s)", o.Path, o.Reason)
	case KindConflict:
		return fmt.Sprintf("conflict %s -> %s: destination exists", o.From, o.To)
	case KindFailed:
		return fmt.Sprintf("failed %s: %v", o.Path, o.Err)
	default:
		return fmt.Sprintf("%s %s", o.Kind, o.Path)
	}
}

// LogValue implements slog.LogValuer.
func (o Outcome) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", string(o.Kind)),
		slog.String("path", o.Path),
	}
	if o.To != "" {
		attrs = append(attrs, slog.String("to", o.To))
	}
	if o.Reason != "" {
		attrs = append(attrs, slog.String("reason", o.Reason))
	}
	if o.Err != nil {
		attrs = append(attrs, slog.String("error", o.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}
