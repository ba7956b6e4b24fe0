package preflight

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/dirmap"
)

// TestHelperProcess is a helper for testing exec.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) > 0 && strings.Contains(strings.Join(args, " "), "missing-pkg") {
		os.Exit(1)
	}
	os.Exit(0)
}

// mockCommandContext re-runs the test binary as the spawned process so no real
// package manager is consulted.
func mockCommandContext(ctx context.Context, name string, arg ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name + " " + strings.Join(arg, " ")}
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

func TestCheckToolInstalled(t *testing.T) {
	ctx := context.Background()

	t.Run("Installed package passes", func(t *testing.T) {
		checker := NewChecker(mockCommandContext)
		if err := checker.CheckToolInstalled(ctx, "ghostscript", "gs"); err != nil {
			t.Errorf("expected no error for installed package, got: %v", err)
		}
	})

	t.Run("Missing package falls back to PATH lookup", func(t *testing.T) {
		checker := NewChecker(mockCommandContext)
		// dpkg reports the package missing, but the binary is on PATH.
		if err := checker.CheckToolInstalled(ctx, "missing-pkg", "sh"); err != nil {
			t.Errorf("expected PATH fallback to succeed, got: %v", err)
		}
	})

	t.Run("Missing package and binary fails with PreconditionError", func(t *testing.T) {
		checker := NewChecker(mockCommandContext)
		err := checker.CheckToolInstalled(ctx, "missing-pkg", "definitely-not-a-binary-xkcd")
		var precondErr *PreconditionError
		if !errors.As(err, &precondErr) {
			t.Fatalf("expected *PreconditionError, got %v", err)
		}
		if !strings.Contains(err.Error(), "missing-pkg") {
			t.Errorf("expected error to name the package, got: %v", err)
		}
	})
}

func TestCheckSourceAccessible(t *testing.T) {
	checker := NewChecker(nil)

	t.Run("Happy Path - Source is a directory", func(t *testing.T) {
		if err := checker.CheckSourceAccessible(t.TempDir()); err != nil {
			t.Errorf("expected no error for existing directory, but got: %v", err)
		}
	})

	t.Run("Error - Source does not exist", func(t *testing.T) {
		err := checker.CheckSourceAccessible(filepath.Join(t.TempDir(), "nonexistent"))
		var invalidErr *dirmap.InvalidSourceError
		if !errors.As(err, &invalidErr) {
			t.Fatalf("expected *dirmap.InvalidSourceError, got %v", err)
		}
	})

	t.Run("Error - Source is a file", func(t *testing.T) {
		srcFile := filepath.Join(t.TempDir(), "source.txt")
		if err := os.WriteFile(srcFile, []byte("i am a file"), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
		err := checker.CheckSourceAccessible(srcFile)
		var invalidErr *dirmap.InvalidSourceError
		if !errors.As(err, &invalidErr) {
			t.Fatalf("expected *dirmap.InvalidSourceError, got %v", err)
		}
	})
}

func TestCheckOutputAvailable(t *testing.T) {
	checker := NewChecker(nil)

	t.Run("Happy Path - Output does not exist", func(t *testing.T) {
		outputPath := filepath.Join(t.TempDir(), "out")
		if err := checker.CheckOutputAvailable(outputPath); err != nil {
			t.Errorf("expected no error for fresh output path, but got: %v", err)
		}
	})

	t.Run("Error - Output already exists", func(t *testing.T) {
		err := checker.CheckOutputAvailable(t.TempDir())
		var existsErr *dirmap.OutputExistsError
		if !errors.As(err, &existsErr) {
			t.Fatalf("expected *dirmap.OutputExistsError, got %v", err)
		}
	})
}

func TestRun(t *testing.T) {
	t.Run("Tool check runs before filesystem checks", func(t *testing.T) {
		checker := NewChecker(mockCommandContext)
		// Source is bogus, but the tool failure must surface first.
		err := checker.Run(context.Background(), "/does/not/exist", "/neither/does/this", &Plan{
			RequireTool: true,
			ToolPackage: "missing-pkg",
			ToolBinary:  "definitely-not-a-binary-xkcd",
		})
		var precondErr *PreconditionError
		if !errors.As(err, &precondErr) {
			t.Fatalf("expected *PreconditionError before source validation, got %v", err)
		}
	})

	t.Run("All checks pass", func(t *testing.T) {
		checker := NewChecker(mockCommandContext)
		src := t.TempDir()
		out := filepath.Join(t.TempDir(), "out")
		err := checker.Run(context.Background(), src, out, &Plan{
			RequireTool: true,
			ToolPackage: "ghostscript",
			ToolBinary:  "gs",
		})
		if err != nil {
			t.Errorf("expected preflight to pass, got: %v", err)
		}
	})
}
