// Package engine runs aggregation passes: it scans a vault for completed XP
// tasks, merges them into stored sub-stat and main-stat totals, levels every
// entity and writes the results back.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/xpradar/internal/leveling"
	"github.com/verte-zerg/xpradar/internal/logging"
	"github.com/verte-zerg/xpradar/internal/model"
	"github.com/verte-zerg/xpradar/internal/scanner"
	"github.com/verte-zerg/xpradar/internal/vault"
)

const defaultWorkers = 8

var (
	// ErrBusy is returned when a pass is requested while another is running.
	ErrBusy = errors.New("aggregation pass already running")
	// ErrInvalidSettings reports settings a pass cannot run with.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Vault reads and writes the notes of a corpus.
type Vault interface {
	List(ctx context.Context) ([]model.Ref, error)
	Read(ctx context.Context, ref model.Ref) (model.Document, error)
	Write(ctx context.Context, ref model.Ref, fields []model.Field, force bool) (bool, error)
}

// Ledger remembers which tasks earlier passes already credited.
type Ledger interface {
	Awarded(ctx context.Context, fingerprints []string) (map[string]bool, error)
	RecordPass(ctx context.Context, rec model.PassRecord, points []model.StatPoint, awarded []model.Mention) (int64, error)
}

// Options configures an Engine.
type Options struct {
	// Workers bounds concurrent reads and writes.
	Workers int
	Logger  *zap.Logger
	// Now is used for pass timestamps; defaults to time.Now.
	Now func() time.Time
	// Corpus scopes task fingerprints in the ledger. It defaults to the
	// vault's Root when the vault has one.
	Corpus string
}

// RunOptions configures one pass.
type RunOptions struct {
	// DryRun computes the snapshot without writing notes or recording the pass.
	DryRun bool
}

// Result is the outcome of a pass.
type Result struct {
	Snapshot model.Snapshot
	Report   Report
}

// Engine runs one aggregation pass at a time.
type Engine struct {
	vault   Vault
	ledger  Ledger
	logger  *zap.Logger
	workers int
	now     func() time.Time
	corpus  string

	running atomic.Bool
}

// New returns an engine over v. A nil ledger treats every completed task as
// new on every pass.
func New(v Vault, ledger Ledger, opts Options) *Engine {
	e := &Engine{
		vault:   v,
		ledger:  ledger,
		logger:  opts.Logger,
		workers: opts.Workers,
		now:     opts.Now,
		corpus:  opts.Corpus,
	}
	e.logger = logging.OrNop(e.logger)
	if e.workers <= 0 {
		e.workers = defaultWorkers
	}
	if e.now == nil {
		e.now = time.Now
	}
	if r, ok := v.(interface{ Root() string }); ok && e.corpus == "" {
		e.corpus = r.Root()
	}
	return e
}

// Running reports whether a pass is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// ValidateSettings checks the leveling curve and the main-stat ratio.
func ValidateSettings(s model.Settings) (leveling.Curve, error) {
	curve, err := leveling.New(s.XPMultiplier, s.LevelExponent)
	if err != nil {
		return leveling.Curve{}, err
	}
	if math.IsNaN(s.MainToSubRatio) || s.MainToSubRatio <= 0 || s.MainToSubRatio >= 1 {
		return leveling.Curve{}, fmt.Errorf("%w: main-to-sub ratio must be between 0 and 1, got %v", ErrInvalidSettings, s.MainToSubRatio)
	}
	if s.SubStatTag == "" || s.MainStatTag == "" {
		return leveling.Curve{}, fmt.Errorf("%w: stat tags must not be empty", ErrInvalidSettings)
	}
	return curve, nil
}

// Run executes one pass with a private copy of settings. Cancelling ctx
// abandons the pass before any note is written; once write-back starts it
// runs to completion. A second concurrent call fails with ErrBusy.
func (e *Engine) Run(ctx context.Context, settings model.Settings, opts RunOptions) (*Result, error) {
	curve, err := ValidateSettings(settings)
	if err != nil {
		return nil, err
	}
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer e.running.Store(false)

	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: e.now(),
		DryRun:    opts.DryRun,
		Forced:    settings.ForceUpdate,
	}
	logger := e.logger.With(zap.String("run", report.RunID))
	logger.Debug("pass started", zap.Bool("dry_run", opts.DryRun), zap.Bool("force", settings.ForceUpdate))

	docs, readFailures, err := e.readAll(ctx)
	if err != nil {
		return nil, err
	}
	report.Documents = len(docs)
	report.ReadFailures = readFailures
	for _, f := range readFailures {
		logger.Warn("skipping unreadable note", zap.String("path", f.Path), zap.Error(f.Err))
	}

	scan := scanner.Scan(docs, e.corpus, settings.TemplateName)
	fresh, err := e.unawarded(ctx, scan.Mentions)
	if err != nil {
		return nil, fmt.Errorf("failed to load awarded tasks: %w", err)
	}
	deltas := map[string]int{}
	for _, m := range fresh {
		deltas[m.SubStatID] = model.AddXP(deltas[m.SubStatID], m.XP)
	}
	report.Mentions = len(fresh)
	report.SkippedMentions = len(scan.Mentions) - len(fresh)
	for id, xp := range deltas {
		logger.Debug("new xp", zap.String("sub_stat", id), zap.Int("xp", xp))
	}

	agg := Aggregate(docs, deltas, settings, curve)
	report.Duplicates = agg.Duplicates
	report.Orphans = agg.Orphans
	for _, id := range agg.Duplicates {
		logger.Warn("duplicate sub-stat note ignored", zap.String("sub_stat", id))
	}
	for _, id := range agg.Orphans {
		logger.Info("xp for sub-stat without a note", zap.String("sub_stat", id), zap.Int("xp", deltas[id]))
	}
	for _, sub := range agg.Snapshot.SubStats {
		report.NewXP = model.AddXP(report.NewXP, sub.NewXPEarned)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Snapshot: agg.Snapshot}
	if opts.DryRun {
		report.EndedAt = e.now()
		result.Report = report
		return result, nil
	}

	// Write-back and the ledger commit are not abandoned half way.
	wctx := context.WithoutCancel(ctx)
	failedSubs := e.writeBack(wctx, logger, agg.Snapshot, settings.ForceUpdate, &report)

	var awarded []model.Mention
	for _, m := range fresh {
		if _, ok := agg.Snapshot.SubStats[m.SubStatID]; !ok || failedSubs[m.SubStatID] {
			continue
		}
		awarded = append(awarded, m)
	}
	report.EndedAt = e.now()
	result.Report = report

	if e.ledger != nil {
		passID, err := e.ledger.RecordPass(wctx, report.Record(), statPoints(agg.Snapshot), awarded)
		if err != nil {
			logger.Error("failed to record pass", zap.Error(err))
			return result, fmt.Errorf("failed to record pass: %w", err)
		}
		result.Report.PassID = passID
	}

	logger.Info("pass finished",
		zap.Int("documents", report.Documents),
		zap.Int("mentions", report.Mentions),
		zap.Int("new_xp", report.NewXP),
		zap.Int("written", len(report.Written)),
		zap.Int("read_failures", len(report.ReadFailures)),
		zap.Int("write_failures", len(report.WriteFailures)),
	)
	return result, nil
}

func (e *Engine) readAll(ctx context.Context) ([]model.Document, []DocError, error) {
	refs, err := e.vault.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list notes: %w", err)
	}
	docs := make([]model.Document, len(refs))
	errs := make([]error, len(refs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)
	for i, ref := range refs {
		eg.Go(func() error {
			doc, err := e.vault.Read(egCtx, ref)
			if err != nil {
				if ctxErr := egCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				errs[i] = err
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]model.Document, 0, len(docs))
	var failures []DocError
	for i, ref := range refs {
		if errs[i] != nil {
			failures = append(failures, DocError{Path: ref.Path, Err: errs[i]})
			continue
		}
		out = append(out, docs[i])
	}
	return out, failures, nil
}

func (e *Engine) unawarded(ctx context.Context, mentions []model.Mention) ([]model.Mention, error) {
	if e.ledger == nil || len(mentions) == 0 {
		return mentions, nil
	}
	fps := make([]string, len(mentions))
	for i, m := range mentions {
		fps[i] = m.Fingerprint
	}
	seen, err := e.ledger.Awarded(ctx, fps)
	if err != nil {
		return nil, err
	}
	out := make([]model.Mention, 0, len(mentions))
	for _, m := range mentions {
		if !seen[m.Fingerprint] {
			out = append(out, m)
		}
	}
	return out, nil
}

type writeJob struct {
	ref    model.Ref
	statID string
	fields []model.Field
}

// writeBack persists sub-stats and then main-stats, so a note holding both
// roles ends with its main-stat values. It returns the sub-stats whose write
// failed.
func (e *Engine) writeBack(ctx context.Context, logger *zap.Logger, snap model.Snapshot, force bool, report *Report) map[string]bool {
	var subJobs []writeJob
	for _, sub := range snap.OrderedSubStats() {
		if sub.NewXPEarned > 0 || force {
			subJobs = append(subJobs, writeJob{ref: vault.RefFor(sub.Path), statID: sub.ID, fields: vault.SubStatFields(sub)})
		}
	}
	var mainJobs []writeJob
	for _, main := range snap.MainStats {
		if main.NewMainXP > 0 || force {
			mainJobs = append(mainJobs, writeJob{ref: vault.RefFor(main.Path), statID: main.ID, fields: vault.MainStatFields(main)})
		}
	}

	failedSubs := map[string]bool{}
	for _, f := range e.writeAll(ctx, logger, subJobs, force, report) {
		failedSubs[f] = true
	}
	e.writeAll(ctx, logger, mainJobs, force, report)
	return failedSubs
}

func (e *Engine) writeAll(ctx context.Context, logger *zap.Logger, jobs []writeJob, force bool, report *Report) []string {
	written := make([]bool, len(jobs))
	errs := make([]error, len(jobs))

	var eg errgroup.Group
	eg.SetLimit(e.workers)
	for i, job := range jobs {
		eg.Go(func() error {
			ok, err := e.vault.Write(ctx, job.ref, job.fields, force)
			written[i] = ok
			errs[i] = err
			return nil
		})
	}
	_ = eg.Wait()

	var failed []string
	for i, job := range jobs {
		if errs[i] != nil {
			logger.Error("failed to update note", zap.String("path", job.ref.Path), zap.Error(errs[i]))
			report.WriteFailures = append(report.WriteFailures, DocError{Path: job.ref.Path, Err: errs[i]})
			failed = append(failed, job.statID)
			continue
		}
		if written[i] {
			report.Written = append(report.Written, job.ref.Path)
		}
	}
	return failed
}

func statPoints(snap model.Snapshot) []model.StatPoint {
	points := make([]model.StatPoint, 0, len(snap.SubStats)+len(snap.MainStats))
	for _, sub := range snap.OrderedSubStats() {
		points = append(points, model.StatPoint{Kind: model.KindSub, StatID: sub.ID, TotalXP: sub.TotalXP, Level: sub.Level})
	}
	for _, main := range snap.MainStats {
		points = append(points, model.StatPoint{Kind: model.KindMain, StatID: main.ID, TotalXP: main.TotalXP, Level: main.Level})
	}
	return points
}
