// Package preflight provides validation checks that run before any mapping or
// invocation begins. The checks are stateless and never modify the filesystem;
// a failed check aborts the run before a single output directory is created.
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/paulschiretz/pgl-pdfcompress/pkg/dirmap"
)

// PreconditionError reports that the external compression tool is not
// installed. It is fatal and raised before any filesystem I/O.
type PreconditionError struct {
	Tool string
	Err  error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s is required for compression. Install it (e.g. \"sudo apt install %s\") and run again", e.Tool, e.Tool)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// Checker runs the preflight validations for a compression run.
type Checker struct {
	// commandContext allows mocking os/exec for testing tool detection.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewChecker creates a Checker. Passing nil uses exec.CommandContext.
func NewChecker(commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd) *Checker {
	if commandContext == nil {
		commandContext = exec.CommandContext
	}
	return &Checker{commandContext: commandContext}
}

// CheckToolInstalled confirms the external tool is available. It first asks
// the system package manager (dpkg -s, matching Debian-based installs) and
// falls back to a PATH lookup for systems without dpkg. A negative result is a
// *PreconditionError.
func (c *Checker) CheckToolInstalled(ctx context.Context, pkg, binary string) error {
	cmd := c.commandContext(ctx, "dpkg", "-s", pkg)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err == nil {
		return nil
	}

	if _, err := exec.LookPath(binary); err != nil {
		return &PreconditionError{Tool: pkg, Err: err}
	}
	return nil
}

// CheckSourceAccessible validates that the source path exists and is a directory.
func (c *Checker) CheckSourceAccessible(srcPath string) error {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &dirmap.InvalidSourceError{Path: srcPath, Err: err}
		}
		return fmt.Errorf("cannot stat source directory %s: %w", srcPath, err)
	}

	if !srcInfo.IsDir() {
		return &dirmap.InvalidSourceError{Path: srcPath}
	}
	return nil
}

// CheckOutputAvailable validates that the output root does not exist yet and
// that its parent directory is accessible, so directory creation during the
// batch will not fail for a configuration reason.
func (c *Checker) CheckOutputAvailable(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return &dirmap.OutputExistsError{Path: outputPath}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access output path %s: %w", outputPath, err)
	}
	return nil
}

// Run executes the configured preflight checks in order: tool presence first
// (before any filesystem access), then source, then output.
func (c *Checker) Run(ctx context.Context, srcPath, outputPath string, p *Plan) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if p.RequireTool {
		if err := c.CheckToolInstalled(ctx, p.ToolPackage, p.ToolBinary); err != nil {
			return err
		}
	}
	if err := c.CheckSourceAccessible(srcPath); err != nil {
		return err
	}
	if err := c.CheckOutputAvailable(outputPath); err != nil {
		return err
	}
	return nil
}
