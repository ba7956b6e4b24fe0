// Package planner turns a validated configuration into the concrete plans the
// engine executes. All string parsing of engines, qualities and levels happens
// here so the execution packages only ever see typed values.
package planner

import (
	"fmt"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/config"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/dirmap"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/invoker"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/nativecomp"
	"github.com/paulschiretz/pgl-pdfcompress/pkg/preflight"
)

type CompressionPlan struct {
	Source string
	Output string

	DryRun   bool
	FailFast bool
	Metrics  bool

	Preflight *preflight.Plan
	Mapping   *dirmap.Plan
	Batch     *invoker.Plan

	// NativeFormat and NativeLevel configure the in-process codec. They are
	// only meaningful when Batch.Engine is not External.
	NativeFormat nativecomp.Format
	NativeLevel  nativecomp.Level
	BufferSize   int64
}

func GenerateCompressionPlan(cfg config.Config) (*CompressionPlan, error) {

	// Global Flags
	dryRun := cfg.Runtime.DryRun
	failFast := cfg.Engine.FailFast
	metrics := cfg.Engine.Metrics

	// Parse values
	engine, err := invoker.ParseEngine(cfg.Engine.Name)
	if err != nil {
		return nil, err
	}

	quality, err := invoker.ParseQuality(cfg.Engine.Quality)
	if err != nil {
		return nil, err
	}

	var nativeFormat nativecomp.Format
	var nativeLevel nativecomp.Level
	switch engine {
	case invoker.External:
		// Native codec settings are irrelevant for the external tool.
	case invoker.Gzip:
		nativeFormat = nativecomp.Gzip
	case invoker.Zstd:
		nativeFormat = nativecomp.Zstd
	default:
		return nil, fmt.Errorf("unsupported engine: %s", engine)
	}
	if engine != invoker.External {
		nativeLevel, err = nativecomp.ParseLevel(cfg.Engine.Level)
		if err != nil {
			return nil, err
		}
	}

	commandTemplate := cfg.Tool.CommandTemplate
	if commandTemplate == "" {
		commandTemplate = invoker.DefaultCommandTemplate
	}

	// The tool check only applies to the external engine.
	requireTool := cfg.Tool.RequireCheck && engine == invoker.External

	// finish the plan
	return &CompressionPlan{
		Source: cfg.Source,
		Output: cfg.Output,

		DryRun:   dryRun,
		FailFast: failFast,
		Metrics:  metrics,

		Preflight: &preflight.Plan{
			RequireTool: requireTool,
			ToolPackage: cfg.Tool.Package,
			ToolBinary:  cfg.Tool.Binary,
		},
		Mapping: &dirmap.Plan{
			Extension:      cfg.Match.Extension,
			Recursive:      cfg.Match.Recursive,
			MatchContains:  cfg.Match.MatchContains,
			PruneEmptyDirs: cfg.Match.PruneEmptyDirs,
		},
		Batch: &invoker.Plan{
			Engine:          engine,
			Quality:         quality,
			CommandTemplate: commandTemplate,
			Workers:         cfg.Engine.Workers,
			// Global Flags
			DryRun:   dryRun,
			FailFast: failFast,
		},

		NativeFormat: nativeFormat,
		NativeLevel:  nativeLevel,
		BufferSize:   int64(cfg.Engine.BufferSizeKB) * 1024,
	}, nil
}
