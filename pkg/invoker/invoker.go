// Package invoker materializes the output directory tree and drives one
// compression per matched file, either by shelling out to the external tool or
// through an in-process compressor. It creates every output directory exactly
// once and refuses pre-existing ones; per-file failures are recorded and the
// batch continues.
package invoker

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/batchmetrics"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/dirmap"
)

// DefaultCommandTemplate is the ghostscript invocation used by the external
// engine. The three tokens are substituted per file.
const DefaultCommandTemplate = `gs -sDEVICE=pdfwrite -dCompatibilityLevel=1.4 -dPDFSETTINGS=/<QUALITY> -dNOPAUSE -dQUIET -dBATCH -sOutputFile=<OUTPUT> <SOURCE>`

// FileCompressor is the in-process alternative to the external tool.
// Implementations compress a single file and report the compressed size.
type FileCompressor interface {
	CompressFile(ctx context.Context, srcPath, outPath string) (int64, error)
	// OutputName maps a source filename to its output filename (e.g. appending ".gz").
	OutputName(name string) string
}

// InvocationResult is the per-file outcome of one invocation. It is ephemeral,
// used only for reporting at the end of the run.
type InvocationResult struct {
	SourcePath string
	OutputPath string
	// ExitCode is the external process exit code: 0 on success, -1 when the
	// process could not be started or a native engine failed.
	ExitCode int
	Err      error
}

// Succeeded reports whether the invocation completed without error.
func (r InvocationResult) Succeeded() bool { return r.Err == nil }

// BatchInvoker drives the per-file invocations for a run. It is stateless;
// all per-run state lives in the task created by RunBatch.
type BatchInvoker struct {
	// commandContext allows mocking os/exec for testing invocations.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
	compressor     FileCompressor
}

// NewBatchInvoker creates a BatchInvoker. A nil commandContext uses
// exec.CommandContext. The compressor may be nil when only the external
// engine will be used.
func NewBatchInvoker(commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd, compressor FileCompressor) *BatchInvoker {
	if commandContext == nil {
		commandContext = exec.CommandContext
	}
	return &BatchInvoker{
		commandContext: commandContext,
		compressor:     compressor,
	}
}

// RunBatch walks the paired (source, output) directories in map order. For
// each pair it creates the output directory, then invokes the engine once per
// file in the entry's filename order. A pre-existing output directory is fatal
// for the whole run; a failed invocation is recorded and the batch continues
// unless FailFast is set.
func (b *BatchInvoker) RunBatch(ctx context.Context, sourceMap, outputMap *dirmap.Map, p *Plan, metrics batchmetrics.Metrics) ([]InvocationResult, error) {
	if sourceMap.Len() != outputMap.Len() {
		return nil, fmt.Errorf("source map has %d directories but output map has %d", sourceMap.Len(), outputMap.Len())
	}
	if p.Engine != External && b.compressor == nil {
		return nil, fmt.Errorf("engine %s requires a file compressor", p.Engine)
	}

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if metrics == nil {
		metrics = &batchmetrics.NoopMetrics{}
	}

	t := &task{
		BatchInvoker: b,
		ctx:          ctx,
		sourceMap:    sourceMap,
		outputMap:    outputMap,
		plan:         p,
		workers:      workers,
		metrics:      metrics,
	}
	return t.execute()
}
