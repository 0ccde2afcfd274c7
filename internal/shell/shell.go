// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package shell executes /run commands with a persistent working directory.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// RESULT
// =============================================================================

// Result holds the outcome of one executed command.
type Result struct {
	// Command as executed, after normalization
	Command string

	// Output is combined stdout and stderr, possibly truncated
	Output string

	// ExitCode of the process, 0 on success
	ExitCode int

	// Duration of the run
	Duration time.Duration

	// Truncated is set when Output was cut at the size cap
	Truncated bool

	// TimedOut is set when the command hit the timeout
	TimedOut bool
}

// Success reports whether the command exited cleanly.
func (r *Result) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// =============================================================================
// RUNNER
// =============================================================================

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxOutput = 100 * 1024
	waitDelay        = 2 * time.Second
)

// Runner executes shell commands one at a time. The working directory
// persists across runs, and the cd builtin changes it.
type Runner struct {
	mu      sync.Mutex
	workDir string

	// Timeout per command (default: 30s)
	Timeout time.Duration

	// MaxOutput caps captured output bytes (default: 100KB)
	MaxOutput int
}

// NewRunner creates a runner rooted at workDir. An empty workDir means
// the process working directory.
func NewRunner(workDir string) *Runner {
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	return &Runner{
		workDir:   workDir,
		Timeout:   defaultTimeout,
		MaxOutput: defaultMaxOutput,
	}
}

// WorkDir returns the current working directory.
func (r *Runner) WorkDir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workDir
}

// Run executes one command line through the system shell and captures
// its output. cd is handled as a builtin so the directory change
// outlives the subprocess. The command text is normalized to NFKC
// first; /run lines are frequently pasted from model output, which
// likes non-breaking spaces and fullwidth lookalikes.
func (r *Runner) Run(ctx context.Context, command string) (*Result, error) {
	command = strings.TrimSpace(norm.NFKC.String(command))
	if command == "" {
		return nil, errors.New("empty command")
	}

	if command == "cd" || strings.HasPrefix(command, "cd ") {
		return r.changeDir(strings.TrimSpace(strings.TrimPrefix(command, "cd")))
	}

	r.mu.Lock()
	workDir := r.workDir
	timeout := r.Timeout
	maxOutput := r.MaxOutput
	r.mu.Unlock()

	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxOutput <= 0 {
		maxOutput = defaultMaxOutput
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(cmdCtx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(cmdCtx, "bash", "-c", command)
	}
	cmd.Dir = workDir
	// Orphaned children holding the output pipe must not hang the REPL
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &Result{
		Command:  command,
		Duration: duration,
	}
	result.Output, result.Truncated = buildOutput(&stdout, &stderr, maxOutput)

	if cmdCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("run %q: %w", command, err)
	}

	return result, nil
}

// changeDir implements the cd builtin. A bare cd goes home.
func (r *Runner) changeDir(path string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if path == "" || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cd: %w", err)
		}
		path = home
	} else if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cd: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(r.workDir, path)
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cd: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cd: %s: not a directory", path)
	}

	r.workDir = path
	return &Result{
		Command: "cd " + path,
		Output:  path,
	}, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// buildOutput combines stdout and stderr with truncation.
func buildOutput(stdout, stderr *bytes.Buffer, maxOutput int) (string, bool) {
	var output strings.Builder
	truncated := false

	if stdout.Len() > 0 {
		outStr := stdout.String()
		if len(outStr) > maxOutput {
			outStr = outStr[:maxOutput]
			truncated = true
		}
		output.WriteString(outStr)
	}

	if stderr.Len() > 0 {
		if output.Len() > 0 {
			output.WriteString("\n\nSTDERR:\n")
		}
		errStr := stderr.String()
		remaining := maxOutput - output.Len()
		if remaining > 0 {
			if len(errStr) > remaining {
				errStr = errStr[:remaining]
				truncated = true
			}
			output.WriteString(errStr)
		} else {
			truncated = true
		}
	}

	result := output.String()
	if result == "" {
		result = "(no output)"
	}

	if truncated {
		result += fmt.Sprintf("\n\n[Output truncated at %d bytes]", maxOutput)
	}

	return result, truncated
}
