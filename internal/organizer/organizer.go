// Package organizer drives scan, suggest and apply for every observed file,
// once, on an interval or on filesystem events.
package organizer

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/applier"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/metrics"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/suggest"
)

// Scanner lists the files to organize.
type Scanner interface {
	Scan(ctx context.Context) ([]models.FileRecord, []error)
	Folders() []string
}

// Applier executes one suggestion.
type Applier interface {
	Apply(ctx context.Context, rec models.FileRecord, sug models.Suggestion) applier.Outcome
}

// OutcomeHook is called after every outcome, from the goroutine running the pass.
type OutcomeHook func(applier.Outcome)

// PassHook is called when a pass starts (finished == false) and ends.
type PassHook func(s Summary, finished bool)

// Summary describes one pass.
type Summary struct {
	ID         string               `json:"id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at,omitempty"`
	Scanned    int                  `json:"scanned"`
	Counts     map[applier.Kind]int `json:"counts"`
	Errors     []string             `json:"errors,omitempty"`
}

// Organizer sequences scan, suggest and apply. Passes never overlap.
type Organizer struct {
	scanner   Scanner
	suggester suggest.Provider
	applier   Applier
	catalog   index.Catalog

	dryRun   bool
	debounce time.Duration
	logger   *slog.Logger

	onOutcome OutcomeHook
	onPass    PassHook

	running atomic.Bool
	recent  *ring
}

// Option configures an Organizer.
type Option func(*Organizer)

// WithCatalog keeps the file catalog in sync on every pass.
func WithCatalog(c index.Catalog) Option {
	return func(o *Organizer) { o.catalog = c }
}

// WithDryRun logs suggestions without applying them.
func WithDryRun(dry bool) Option {
	return func(o *Organizer) { o.dryRun = dry }
}

// WithDebounce sets how long watch mode waits for events to settle.
func WithDebounce(d time.Duration) Option {
	return func(o *Organizer) { o.debounce = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Organizer) { o.logger = l }
}

func WithOutcomeHook(h OutcomeHook) Option {
	return func(o *Organizer) { o.onOutcome = h }
}

func WithPassHook(h PassHook) Option {
	return func(o *Organizer) { o.onPass = h }
}

// WithRecent sets how many outcomes Recent can return.
func WithRecent(n int) Option {
	return func(o *Organizer) { o.recent = newRing(n) }
}

// New creates an Organizer.
func New(sc Scanner, sp suggest.Provider, ap Applier, opts ...Option) *Organizer {
	o := &Organizer{
		scanner:   sc,
		suggester: sp,
		applier:   ap,
		debounce:  500 * time.Millisecond,
		logger:    slog.Default(),
		recent:    newRing(200),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Running reports whether a pass is in progress.
func (o *Organizer) Running() bool {
	return o.running.Load()
}

// Recent returns up to n of the latest outcomes, newest first.
func (o *Organizer) Recent(n int) []applier.Outcome {
	return o.recent.last(n)
}

// RunPass scans every monitored folder and processes each file in turn.
// It returns apperr.ErrBusy when another pass is running.
func (o *Organizer) RunPass(ctx context.Context) (Summary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return Summary{}, apperr.ErrBusy
	}
	defer o.running.Store(false)

	sum := Summary{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Counts:    make(map[applier.Kind]int),
	}
	logger := o.logger.With(slog.String("pass", sum.ID))
	if o.onPass != nil {
		o.onPass(sum, false)
	}

	records, scanErrs := o.scanner.Scan(ctx)
	sum.Scanned = len(records)
	metrics.FilesScannedTotal.Add(float64(len(records)))
	for _, err := range scanErrs {
		sum.Errors = append(sum.Errors, err.Error())
	}
	logger.Info("organizer: scanned", slog.Int("files", len(records)), slog.Int("errors", len(scanErrs)))

	if o.catalog != nil {
		if err := index.Sync(o.catalog, records, logger); err != nil {
			logger.Warn("organizer: catalog sync failed", slog.String("error", err.Error()))
		}
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		out := o.process(ctx, logger, rec)
		sum.Counts[out.Kind]++
	}

	sum.FinishedAt = time.Now().UTC()
	metrics.PassDurationSeconds.Observe(sum.FinishedAt.Sub(sum.StartedAt).Seconds())
	logger.Info("organizer: pass finished",
		slog.Int("scanned", sum.Scanned),
		slog.Any("counts", sum.Counts),
		slog.Duration("took", sum.FinishedAt.Sub(sum.StartedAt)))
	if o.onPass != nil {
		o.onPass(sum, true)
	}
	return sum, ctx.Err()
}

// process runs suggest then apply for one file.
func (o *Organizer) process(ctx context.Context, logger *slog.Logger, rec models.FileRecord) applier.Outcome {
	sug := o.suggester.Suggest(ctx, rec)
	metrics.SuggestionsTotal.WithLabelValues(string(sug.Source)).Inc()
	logger.Info("organizer: suggestion",
		slog.String("file", rec.Name),
		slog.String("rename", sug.Name),
		slog.String("move", sug.Folder),
		slog.Bool("keep_folder", sug.KeepFolder),
		slog.Bool("delete", sug.Delete),
		slog.String("source", string(sug.Source)))

	var out applier.Outcome
	if o.dryRun {
		out = applier.Skipped(rec.Path, applier.ReasonDryRun)
	} else {
		out = o.applier.Apply(ctx, rec, sug)
	}
	o.record(logger, rec, out)
	return out
}

// DryRun reports whether outcomes are recorded without touching files.
func (o *Organizer) DryRun() bool {
	return o.dryRun
}

// Record logs, counts and publishes an outcome produced outside a pass,
// e.g. by a tool call.
func (o *Organizer) Record(rec models.FileRecord, out applier.Outcome) {
	o.record(o.logger, rec, out)
}

func (o *Organizer) record(logger *slog.Logger, rec models.FileRecord, out applier.Outcome) {
	o.recent.add(out)
	metrics.ActionsTotal.WithLabelValues(string(out.Kind)).Inc()

	// Declines and no-ops are logged as loudly as changes.
	level := slog.LevelInfo
	if out.Kind == applier.KindFailed || out.Kind == applier.KindConflict {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "organizer: outcome",
		slog.String("file", rec.Name),
		slog.Any("outcome", out))

	if o.onOutcome != nil {
		o.onOutcome(out)
	}
}
