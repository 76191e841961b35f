// Package viewer hands exported models to something that can show them.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// ErrNoCommand is returned by a Command viewer without a program.
var ErrNoCommand = errors.New("no viewer command configured")

// Viewer displays an STL file.
type Viewer interface {
	Show(ctx context.Context, path string) error
}

// Command runs an external program with the file path as its last argument
// and waits for it to exit.
type Command struct {
	Program string
	Args    []string
	Logger  *slog.Logger
}

// NewCommand returns a viewer that runs program.
func NewCommand(program string, args []string, logger *slog.Logger) *Command {
	if logger == nil {
		logger = slog.Default()
	}
	return &Command{Program: program, Args: args, Logger: logger}
}

// Show implements Viewer.
func (c *Command) Show(ctx context.Context, path string) error {
	if c.Program == "" {
		return ErrNoCommand
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("model file: %w", err)
	}

	args := append(append([]string(nil), c.Args...), path)
	cmd := exec.CommandContext(ctx, c.Program, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	c.Logger.Info("Opening viewer", "program", c.Program, "path", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("viewer %s: %w", c.Program, err)
	}
	return nil
}

// Log only reports where the model was written. It is used when no viewer
// program is configured.
type Log struct {
	Logger *slog.Logger
}

// NewLog returns a logging viewer.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{Logger: logger}
}

// Show implements Viewer.
func (l *Log) Show(_ context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("model file: %w", err)
	}
	l.Logger.Info("No viewer configured, model written", "path", path)
	return nil
}

// FromConfig picks a Command viewer when program is set and a Log viewer
// otherwise.
func FromConfig(program string, args []string, logger *slog.Logger) Viewer {
	if program == "" {
		return NewLog(logger)
	}
	return NewCommand(program, args, logger)
}
