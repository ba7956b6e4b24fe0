package batchmetrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/plog"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/util"
)

// Metrics defines the interface for collecting and reporting batch statistics.
type Metrics interface {
	AddFilesProcessed(n int64)
	AddFilesFailed(n int64)
	AddDirsCreated(n int64)
	AddOriginalBytes(n int64)
	AddCompressedBytes(n int64)
	LogSummary(msg string)
	StartProgress(msg string, interval time.Duration)
	StopProgress()
}

// BatchMetrics holds the atomic counters for tracking the batch run's progress.
// It is the concrete implementation of the Metrics interface.
type BatchMetrics struct {
	FilesProcessed  atomic.Int64
	FilesFailed     atomic.Int64
	DirsCreated     atomic.Int64
	OriginalBytes   atomic.Int64
	CompressedBytes atomic.Int64

	stopChan chan struct{}
}

func (m *BatchMetrics) AddFilesProcessed(n int64)  { m.FilesProcessed.Add(n) }
func (m *BatchMetrics) AddFilesFailed(n int64)     { m.FilesFailed.Add(n) }
func (m *BatchMetrics) AddDirsCreated(n int64)     { m.DirsCreated.Add(n) }
func (m *BatchMetrics) AddOriginalBytes(n int64)   { m.OriginalBytes.Add(n) }
func (m *BatchMetrics) AddCompressedBytes(n int64) { m.CompressedBytes.Add(n) }

func (m *BatchMetrics) StartProgress(msg string, interval time.Duration) {
	m.stopChan = make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.LogSummary(msg)
			case <-m.stopChan:
				return
			}
		}
	}()
}

func (m *BatchMetrics) StopProgress() {
	if m.stopChan != nil {
		close(m.stopChan)
	}
}

// LogSummary logs the current state of the metrics.
// This can be called by a background ticker or at the end of the run.
func (m *BatchMetrics) LogSummary(msg string) {
	orig := m.OriginalBytes.Load()
	comp := m.CompressedBytes.Load()

	// Calculate compression ratio (avoid division by zero)
	var ratio float64
	if orig > 0 {
		ratio = float64(comp) / float64(orig) * 100.0
	}

	plog.Info(msg,
		"files_processed", m.FilesProcessed.Load(),
		"files_failed", m.FilesFailed.Load(),
		"dirs_created", m.DirsCreated.Load(),
		"original_size", util.FormatBytes(orig),
		"compressed_size", util.FormatBytes(comp),
		"ratio_pct", fmt.Sprintf("%.2f%%", ratio),
	)
}

// NoopMetrics is an implementation of the Metrics interface that performs no operations.
// It can be used to disable metrics collection without changing the calling code.
type NoopMetrics struct{}

func (m *NoopMetrics) AddFilesProcessed(n int64)                        {}
func (m *NoopMetrics) AddFilesFailed(n int64)                           {}
func (m *NoopMetrics) AddDirsCreated(n int64)                           {}
func (m *NoopMetrics) AddOriginalBytes(n int64)                         {}
func (m *NoopMetrics) AddCompressedBytes(n int64)                       {}
func (m *NoopMetrics) LogSummary(msg string)                            {}
func (m *NoopMetrics) StartProgress(msg string, interval time.Duration) {}
func (m *NoopMetrics) StopProgress()                                    {}

// Statically assert that our types implement the interface.
var _ Metrics = (*BatchMetrics)(nil)
var _ Metrics = (*NoopMetrics)(nil)
