package batchmetrics

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/plog"
)

func TestBatchMetrics_Adders(t *testing.T) {
	t.Run("correctly increments all counters", func(t *testing.T) {
		m := &BatchMetrics{}

		m.AddFilesProcessed(5)
		m.AddFilesFailed(2)
		m.AddDirsCreated(3)
		m.AddOriginalBytes(1000)
		m.AddCompressedBytes(500)

		if got := m.FilesProcessed.Load(); got != 5 {
			t.Errorf("expected FilesProcessed to be 5, got %d", got)
		}
		if got := m.FilesFailed.Load(); got != 2 {
			t.Errorf("expected FilesFailed to be 2, got %d", got)
		}
		if got := m.DirsCreated.Load(); got != 3 {
			t.Errorf("expected DirsCreated to be 3, got %d", got)
		}
		if got := m.OriginalBytes.Load(); got != 1000 {
			t.Errorf("expected OriginalBytes to be 1000, got %d", got)
		}
		if got := m.CompressedBytes.Load(); got != 500 {
			t.Errorf("expected CompressedBytes to be 500, got %d", got)
		}
	})
}

func TestBatchMetrics_Log(t *testing.T) {
	t.Run("logs the correct summary values and ratio", func(t *testing.T) {
		// --- Setup: Redirect plog output to capture log output ---
		var logBuf bytes.Buffer
		plog.SetOutput(&logBuf)
		t.Cleanup(func() { plog.SetOutput(os.Stderr) }) // Restore original output after test.

		// --- Act ---
		m := &BatchMetrics{}
		m.AddFilesProcessed(10)
		m.AddOriginalBytes(200)
		m.AddCompressedBytes(100) // 50% ratio
		m.LogSummary("Batch Summary")

		// --- Assert ---
		output := logBuf.String()

		if !strings.Contains(output, "msg=\"Batch Summary\"") {
			t.Errorf("expected log output to contain 'msg=\"Batch Summary\"', but it didn't. Got: %s", output)
		}
		if !strings.Contains(output, "files_processed=10") {
			t.Errorf("expected log output to contain 'files_processed=10', but it didn't. Got: %s", output)
		}
		if !strings.Contains(output, "original_size=200B") {
			t.Errorf("expected log output to contain 'original_size=200B', but it didn't. Got: %s", output)
		}
		if !strings.Contains(output, "compressed_size=100B") {
			t.Errorf("expected log output to contain 'compressed_size=100B', but it didn't. Got: %s", output)
		}
		// 100 / 200 * 100.0 = 50.00%
		if !strings.Contains(output, "ratio_pct=50.00%") {
			t.Errorf("expected log output to contain 'ratio_pct=50.00%%', but it didn't. Got: %s", output)
		}
	})

	t.Run("handles zero original bytes (division by zero check)", func(t *testing.T) {
		var logBuf bytes.Buffer
		plog.SetOutput(&logBuf)
		t.Cleanup(func() { plog.SetOutput(os.Stderr) })

		m := &BatchMetrics{}
		// No bytes added
		m.LogSummary("Zero Check")

		output := logBuf.String()
		if !strings.Contains(output, "ratio_pct=0.00%") {
			t.Errorf("expected log output to contain 'ratio_pct=0.00%%' for zero bytes, but it didn't. Got: %s", output)
		}
	})
}

func TestNoopMetrics(t *testing.T) {
	t.Run("all methods execute without panicking", func(t *testing.T) {
		m := &NoopMetrics{}

		defer func() {
			if r := recover(); r != nil {
				t.Errorf("NoopMetrics method panicked: %v", r)
			}
		}()

		m.AddFilesProcessed(1)
		m.AddFilesFailed(1)
		m.AddDirsCreated(1)
		m.AddOriginalBytes(1)
		m.AddCompressedBytes(1)
		m.LogSummary("noop test")
		m.StartProgress("noop", 0)
		m.StopProgress()
	})
}
