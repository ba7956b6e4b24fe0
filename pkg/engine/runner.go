// Package engine orchestrates a whole compression run: preflight validation,
// source enumeration, per-directory metrics, output derivation and the batch
// invocation itself.
package engine

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/batchmetrics"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/dirmap"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/hints"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/invoker"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/planner"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/plog"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/preflight"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/util"
)

// --- ARCHITECTURAL OVERVIEW ---
//
// A run moves through four strictly ordered stages:
//
// 1. Preflight - "Fail Before Touching Anything"
//    The external tool, the source tree and the output path are validated
//    before any filesystem mutation. A missing tool or a pre-existing output
//    directory aborts the run with nothing written.
//
// 2. Mapping - "Enumerate Once"
//    The source tree is walked exactly once. Everything downstream (metrics,
//    output derivation, invocation) works off the resulting map and never
//    re-scans the filesystem.
//
// 3. Metrics - "Measure Before Compressing"
//    Per-directory file counts and byte totals are computed up front so the
//    run can report how much work it is about to do, and so the final summary
//    can state a compression ratio.
//
// 4. Invocation - "Record Failures, Keep Going"
//    One corrupt input must not sink a batch of thousands. Per-file failures
//    are recorded and reported at the end; only structural errors (an output
//    directory that already exists) abort the run.

// Runner orchestrates the entire compression process. It is stateless across
// runs; construct once and call ExecuteCompression per run.
type Runner struct {
	checker *preflight.Checker
	invoker *invoker.BatchInvoker
}

// NewRunner creates a Runner. A nil commandContext uses exec.CommandContext.
// The compressor may be nil when only the external engine will be used.
func NewRunner(commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd, compressor invoker.FileCompressor) *Runner {
	return &Runner{
		checker: preflight.NewChecker(commandContext),
		invoker: invoker.NewBatchInvoker(commandContext, compressor),
	}
}

// ExecuteCompression runs one compression batch from start to finish and
// returns the per-file results. A source tree without matching files returns a
// hint, not a hard error; callers decide how loud to be about it.
func (r *Runner) ExecuteCompression(ctx context.Context, p *planner.CompressionPlan) ([]invoker.InvocationResult, error) {
	// Check for cancellation at the very beginning.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	// Run Preflight Validation
	if err := r.checker.Run(ctx, p.Source, p.Output, p.Preflight); err != nil {
		return nil, fmt.Errorf("preflight failed: %w", err)
	}

	plog.Info("Starting compression run", "source", p.Source, "output", p.Output)

	// Enumerate the source tree
	mapper := dirmap.NewMapper(p.Mapping)
	sourceMap, err := mapper.BuildSourceMap(p.Source, p.Mapping.Recursive)
	if err != nil {
		return nil, fmt.Errorf("error mapping source tree: %w", err)
	}

	var metrics batchmetrics.Metrics = &batchmetrics.NoopMetrics{}
	if p.Metrics {
		metrics = &batchmetrics.BatchMetrics{}
	}

	// Per-directory metrics, computed before anything is written. A file that
	// vanished between enumeration and here is fatal; skipping it would
	// silently undercount the batch.
	totalFiles := 0
	for _, dir := range sourceMap.Keys {
		dirMetrics, err := mapper.ComputeMetrics(sourceMap, dir)
		if err != nil {
			return nil, fmt.Errorf("error computing metrics: %w", err)
		}
		if dirMetrics.Count > 0 {
			plog.Info("Directory mapped", "directory", dir, "files", dirMetrics.Count, "size", util.FormatBytes(dirMetrics.TotalBytes))
		}
		totalFiles += dirMetrics.Count
		metrics.AddOriginalBytes(dirMetrics.TotalBytes)
	}

	if totalFiles == 0 {
		return nil, hints.New(fmt.Sprintf("no files matching %q found under %s", p.Mapping.Extension, p.Source))
	}

	// Derive the output tree. The output root must not exist yet.
	outputMap, err := mapper.DeriveOutputMap(sourceMap, p.Source, p.Output)
	if err != nil {
		return nil, fmt.Errorf("error deriving output tree: %w", err)
	}

	// Run the batch
	results, err := r.invoker.RunBatch(ctx, sourceMap, outputMap, p.Batch, metrics)
	if err != nil {
		return results, fmt.Errorf("error during batch compression: %w", err)
	}

	var failed int
	for _, res := range results {
		if !res.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		plog.Warn("Compression run completed with failures", "failed", failed, "total", len(results))
	} else {
		plog.Info("Compression run completed", "files", len(results))
	}
	return results, nil
}
