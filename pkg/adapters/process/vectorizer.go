// Package process vectorizes rasters by running an allow-listed local command.
//
// Only commands registered by name can run; raster paths reach the command through the
// {input} and {output} argument placeholders and the PLOTLINE_INPUT and PLOTLINE_OUTPUT
// environment variables, never through a shell.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/plotline/internal/logging"
	"github.com/aretw0/plotline/pkg/raster"
)

// Environment variables passed to every tool.
const (
	EnvInput  = "PLOTLINE_INPUT"
	EnvOutput = "PLOTLINE_OUTPUT"
)

// maxStderr bounds how much tool stderr is kept in errors.
const maxStderr = 1024

// ErrToolNotRegistered is returned when the selected tool is not allow-listed.
var ErrToolNotRegistered = errors.New("vectorizer tool not registered")

// Vectorizer implements ports.Vectorizer with a local process.
type Vectorizer struct {
	registry map[string]ToolConfig
	tool     ToolConfig
	timeout  time.Duration
	baseDir  string
	logger   *slog.Logger
}

// Option configures the vectorizer.
type Option func(*Vectorizer)

// WithRegistry adds tools to the allow-list.
func WithRegistry(tools map[string]ToolConfig) Option {
	return func(v *Vectorizer) {
		for name, tool := range tools {
			tool.Name = name
			v.registry[name] = tool
		}
	}
}

// WithTimeout bounds one tool execution. Zero means only the caller context applies.
func WithTimeout(d time.Duration) Option {
	return func(v *Vectorizer) {
		v.timeout = d
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(v *Vectorizer) {
		v.baseDir = dir
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vectorizer) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates a vectorizer that runs the registered tool called name.
// The built-in potrace entry is always registered.
func New(name string, opts ...Option) (*Vectorizer, error) {
	v := &Vectorizer{
		registry: map[string]ToolConfig{"potrace": Potrace()},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}

	tool, ok := v.registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotRegistered, name)
	}
	if tool.Command == "" {
		return nil, fmt.Errorf("tool %s has no command", name)
	}
	v.tool = tool
	return v, nil
}

// Vectorize runs the tool on rasterPath. The tool writes to a temporary sibling of
// destPath, which is renamed into place only when the tool succeeds with non-empty output.
func (v *Vectorizer) Vectorize(ctx context.Context, rasterPath, destPath string) error {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".vector-*.svg")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	input, err := v.input(rasterPath, filepath.Dir(destPath))
	if err != nil {
		return fmt.Errorf("%s: %w", v.tool.Name, err)
	}
	if input != rasterPath {
		defer os.Remove(input)
	}
	rasterPath = input

	replacer := strings.NewReplacer("{input}", rasterPath, "{output}", tmpPath)
	args := make([]string, len(v.tool.Args))
	for i, a := range v.tool.Args {
		args[i] = replacer.Replace(a)
	}

	cmd := exec.CommandContext(ctx, v.tool.Command, args...)
	cmd.Dir = v.baseDir

	env := []string{EnvInput + "=" + rasterPath, EnvOutput + "=" + tmpPath}
	for k, val := range v.tool.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, val))
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", v.tool.Name, ctxErr)
		}
		msg := stderr.String()
		if len(msg) > maxStderr {
			msg = msg[:maxStderr]
		}
		return fmt.Errorf("%s: execution failed: %w. Stderr: %s", v.tool.Name, err, strings.TrimSpace(msg))
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return fmt.Errorf("%s: %w", v.tool.Name, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: produced no output", v.tool.Name)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return err
	}
	v.logger.Debug("Local vectorizer finished", "tool", v.tool.Name, "duration", time.Since(start))
	return nil
}

// input returns the path handed to the tool, re-encoding the raster into a temporary file
// in dir when the tool needs another format.
func (v *Vectorizer) input(rasterPath, dir string) (string, error) {
	format := strings.ToLower(v.tool.InputFormat)
	if format == "" || strings.EqualFold(strings.TrimPrefix(filepath.Ext(rasterPath), "."), format) {
		return rasterPath, nil
	}

	tmp, err := os.CreateTemp(dir, ".raster-*."+format)
	if err != nil {
		return "", err
	}
	path := tmp.Name()
	tmp.Close()

	if err := raster.ConvertFile(rasterPath, path, format); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("prepare %s input: %w", format, err)
	}
	return path, nil
}
