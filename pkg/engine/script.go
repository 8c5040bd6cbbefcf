package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// preInitTimeout bounds a single preInit script run.
const preInitTimeout = 10 * time.Minute

// ScriptResult is the outcome of a preInit script run.
type ScriptResult struct {
	// ExitCode is the script's exit code.
	ExitCode int `json:"exit_code"`

	// Output is the combined stdout and stderr of the script.
	Output string `json:"output"`

	// LogPath is the file the output was written to, if any.
	LogPath string `json:"log_path,omitempty"`
}

// RunPreInit executes a provider's preInit script via the shell, from the
// project root. Output is captured and, when logPath is set, also written to
// the log file that persists alongside the cached status.
func RunPreInit(ctx context.Context, spec *PreInitSpec, root, logPath string) (*ScriptResult, error) {
	if spec == nil || spec.RunScript == "" {
		return &ScriptResult{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, preInitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", spec.RunScript)
	cmd.Dir = root
	cmd.Env = os.Environ()

	var captured bytes.Buffer
	var out io.Writer = &captured

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, NewPermanentError("failed to create preInit log directory", err).
				WithCode(ErrCodePreInitFailed)
		}
		logFile, err := os.Create(logPath)
		if err != nil {
			return nil, NewPermanentError("failed to create preInit log file", err).
				WithCode(ErrCodePreInitFailed)
		}
		defer logFile.Close()
		out = io.MultiWriter(&captured, logFile)
	}

	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	result := &ScriptResult{
		ExitCode: exitCode,
		Output:   captured.String(),
		LogPath:  logPath,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, nil
		}
		if ctx.Err() != nil {
			return result, NewTransientError("preInit script timed out", ctx.Err()).
				WithCode(ErrCodeTimeout)
		}
		return result, NewPermanentError("failed to run preInit script", err).
			WithCode(ErrCodePreInitFailed)
	}

	return result, nil
}
