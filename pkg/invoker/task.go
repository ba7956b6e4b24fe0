package invoker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/batchmetrics"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/dirmap"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/plog"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/util"
)

// task holds the mutable state for a single batch execution.
// This keeps the BatchInvoker itself stateless and safe for concurrent use if needed.
type task struct {
	*BatchInvoker

	ctx       context.Context
	sourceMap *dirmap.Map
	outputMap *dirmap.Map
	plan      *Plan
	workers   int
	metrics   batchmetrics.Metrics

	results []InvocationResult
}

// execute runs the batch: directories strictly in map order, files within a
// directory fanned out across up to `workers` goroutines.
func (t *task) execute() ([]InvocationResult, error) {
	plog.Info("Compressing files", "directories", t.sourceMap.Len(), "engine", t.plan.Engine.String())

	// Start progress reporting
	t.metrics.StartProgress("Batch progress", 10*time.Second)
	defer func() {
		t.metrics.StopProgress()
		t.metrics.LogSummary("Batch finished")
	}()

	for i, srcDir := range t.sourceMap.Keys {
		select {
		case <-t.ctx.Done():
			return t.results, t.ctx.Err()
		default:
		}

		outDir := t.outputMap.Keys[i]
		if err := t.ensureOutputDirectory(outDir); err != nil {
			return t.results, err
		}
		if err := t.processDirectory(srcDir, outDir, t.sourceMap.Entries[srcDir]); err != nil {
			return t.results, err
		}
	}
	return t.results, nil
}

// ensureOutputDirectory creates a single directory level. Directories are
// visited parents-first, so the parent is guaranteed to exist already. A
// pre-existing path means the caller pointed at a populated output tree; that
// is a configuration mistake and fatal for the whole run.
func (t *task) ensureOutputDirectory(path string) error {
	if t.plan.DryRun {
		plog.Notice("[DRY RUN] MKDIR", "path", path)
		return nil
	}
	if err := os.Mkdir(path, util.UserWritableDirPerms); err != nil {
		if os.IsExist(err) {
			return &dirmap.OutputExistsError{Path: path}
		}
		return fmt.Errorf("failed to create output directory %s: %w", path, err)
	}
	t.metrics.AddDirsCreated(1)
	return nil
}

// processDirectory invokes the engine for every file of one directory entry.
// Results land at their filename's index so the report order stays stable even
// with workers > 1.
func (t *task) processDirectory(srcDir, outDir string, entry *dirmap.Entry) error {
	dirResults := make([]InvocationResult, len(entry.Files))

	g := new(errgroup.Group)
	g.SetLimit(t.workers)
	for i, name := range entry.Files {
		i, name := i, name
		g.Go(func() error {
			select {
			case <-t.ctx.Done():
				return t.ctx.Err()
			default:
			}

			res := t.invokeOne(filepath.Join(srcDir, name), filepath.Join(outDir, t.outputName(name)))
			dirResults[i] = res
			if res.Err != nil {
				if errors.Is(res.Err, context.Canceled) {
					return context.Canceled
				}
				t.metrics.AddFilesFailed(1)
				// One corrupt or unsupported input must not abort its siblings.
				plog.Warn("Compression failed", "source", res.SourcePath, "exitCode", res.ExitCode, "error", res.Err)
				if t.plan.FailFast {
					return fmt.Errorf("compression of %s failed: %w", res.SourcePath, res.Err)
				}
				return nil
			}
			t.metrics.AddFilesProcessed(1)
			return nil
		})
	}

	err := g.Wait()
	t.results = append(t.results, dirResults...)
	return err
}

// outputName maps a source filename to its name in the output tree.
func (t *task) outputName(name string) string {
	if t.plan.Engine == External || t.compressor == nil {
		return name
	}
	return t.compressor.OutputName(name)
}

// invokeOne compresses a single file and returns its result. It blocks until
// the engine finishes; there is no retry, and the external tool's output file
// is not validated.
func (t *task) invokeOne(srcPath, outPath string) InvocationResult {
	res := InvocationResult{SourcePath: srcPath, OutputPath: outPath}

	if t.plan.DryRun {
		plog.Notice("[DRY RUN] COMPRESS", "source", srcPath, "output", outPath)
		return res
	}
	plog.Notice("COMPRESS", "source", srcPath)

	if t.plan.Engine == External {
		command := t.renderCommand(srcPath, outPath)
		cmd := t.createCommand(t.ctx, command)

		// Pipe output to our streams for visibility
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			// Check if the context was canceled, which can cause cmd.Wait() to
			// return an error. If so, report the cancellation instead.
			if t.ctx.Err() == context.Canceled {
				res.Err = context.Canceled
				res.ExitCode = -1
				return res
			}
			res.ExitCode = exitCodeOf(err)
			res.Err = fmt.Errorf("command '%s' failed: %w", command, err)
			return res
		}
	} else {
		written, err := t.compressor.CompressFile(t.ctx, srcPath, outPath)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				res.Err = context.Canceled
			} else {
				res.Err = fmt.Errorf("native compression of %s failed: %w", srcPath, err)
			}
			res.ExitCode = -1
			return res
		}
		t.metrics.AddCompressedBytes(written)
		plog.Notice("COMPRESSED", "output", outPath)
		return res
	}

	// Capture compressed size, best effort. Absence of the output file is
	// deliberately not treated as a failure.
	if info, err := os.Stat(outPath); err == nil {
		t.metrics.AddCompressedBytes(info.Size())
	}
	plog.Notice("COMPRESSED", "output", outPath)
	return res
}

// renderCommand substitutes the three template tokens for one file.
func (t *task) renderCommand(srcPath, outPath string) string {
	return strings.NewReplacer(
		"<QUALITY>", t.plan.Quality.String(),
		"<OUTPUT>", outPath,
		"<SOURCE>", srcPath,
	).Replace(t.plan.CommandTemplate)
}

// exitCodeOf extracts the process exit code from a Run error, or -1 when the
// process never started.
func exitCodeOf(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
