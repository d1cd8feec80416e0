package source

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vnrates/ratecrawl/internal/fetcher"
	"github.com/vnrates/ratecrawl/internal/store"
)

// Engine runs the fetch, parse, normalize, persist pipeline for each
// selected source and records outcomes in the crawl log. Source failures
// are logged and counted, never propagated; a scheduler invoking the crawl
// should see a normal exit regardless of what the sites served.
type Engine struct {
	store   store.Store
	fetcher fetcher.Fetcher
	reg     *Registry
}

// RunOpts selects which sources to crawl.
type RunOpts struct {
	Sources []string // empty = all registered sources
}

// RunSummary reports the outcome of one engine run.
type RunSummary struct {
	Succeeded   int
	Failed      int
	RowsWritten int64
}

// NewEngine creates a new crawl engine.
func NewEngine(st store.Store, f fetcher.Fetcher, reg *Registry) *Engine {
	return &Engine{store: st, fetcher: f, reg: reg}
}

// Run crawls the selected sources in registration order. It returns an
// error only for infrastructure problems (unknown source name, crawl log
// unavailable, cancellation); per-source scrape failures land in the
// summary and the crawl log.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*RunSummary, error) {
	log := zap.L().With(zap.String("component", "engine"))

	sources, err := e.reg.Select(opts.Sources)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{}

	for _, src := range sources {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		srcLog := log.With(zap.String("source", src.Name()))
		srcLog.Info("starting crawl")

		runID, err := e.store.StartRun(ctx, src.Name())
		if err != nil {
			return summary, eris.Wrapf(err, "engine: start run for %s", src.Name())
		}

		start := time.Now()
		rows, err := src.Collect(ctx, e.fetcher)
		if err != nil {
			e.fail(ctx, srcLog, runID, err, time.Since(start))
			summary.Failed++
			continue
		}

		var written int64
		if len(rows) == 0 {
			srcLog.Warn("no rows extracted, skipping persist")
		} else {
			if err := e.store.EnsureTable(ctx, src.Schema()); err != nil {
				e.fail(ctx, srcLog, runID, err, time.Since(start))
				summary.Failed++
				continue
			}
			written, err = e.store.Upsert(ctx, src.Spec(), rows)
			if err != nil {
				e.fail(ctx, srcLog, runID, err, time.Since(start))
				summary.Failed++
				continue
			}
		}

		if err := e.store.CompleteRun(ctx, runID, written); err != nil {
			srcLog.Error("failed to record crawl completion", zap.Error(err))
		}

		srcLog.Info("finished crawl",
			zap.Int64("rows", written),
			zap.Duration("elapsed", time.Since(start)),
		)
		summary.Succeeded++
		summary.RowsWritten += written
	}

	log.Info("crawl run complete",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int64("rows", summary.RowsWritten),
	)
	return summary, nil
}

func (e *Engine) fail(ctx context.Context, log *zap.Logger, runID string, err error, elapsed time.Duration) {
	log.Error("crawl failed", zap.Error(err), zap.Duration("elapsed", elapsed))
	if logErr := e.store.FailRun(ctx, runID, err.Error()); logErr != nil {
		log.Error("failed to record crawl failure", zap.Error(logErr))
	}
}
