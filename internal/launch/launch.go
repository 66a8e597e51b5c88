// Package launch starts a workload with the interposer shared library
// preloaded. The launcher never owns the workload: it runs in its own
// process group and keeps running if ncclspy dies.
package launch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/ncclspy/ncclspy/internal/shimconfig"
)

// Options configure the preloaded shim and the spawned process.
type Options struct {
	// ShimPath is the interposer shared library to preload. Required.
	ShimPath string

	// Shim settings, exported as NCCLSPY_* variables. Empty means unset.
	Library     string
	TraceDir    string
	MetricsAddr string
	LogLevel    string
	ConfigFile  string

	// ExtraEnv entries are appended last, KEY=VALUE form.
	ExtraEnv []string

	Stdout io.Writer
	Stderr io.Writer
}

func (o Options) validate() error {
	if o.ShimPath == "" {
		return fmt.Errorf("shim library path is required")
	}
	info, err := os.Stat(o.ShimPath)
	if err != nil {
		return fmt.Errorf("shim library not found: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("shim library %s is a directory", o.ShimPath)
	}
	return nil
}

// Run spawns command with the shim preloaded and waits for it to exit.
// A non-zero workload exit is reported in the Result, not as an error;
// errors mean the workload could not be started at all.
func Run(ctx context.Context, opts Options, command string, args []string) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = buildEnv(os.Environ(), opts)

	// Own process group: the workload survives a launcher crash.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	cmd.Stdout = opts.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Stdin = os.Stdin

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start workload: %w", err)
	}
	pid := cmd.Process.Pid

	err := cmd.Wait()
	end := time.Now()

	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("workload wait failed: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return newResult(append([]string{command}, args...), pid, exitCode, start, end, opts), nil
}

// buildEnv layers the shim settings over the inherited environment.
// The shim is prepended to any existing LD_PRELOAD so it wins symbol
// resolution but other preloads stay active.
func buildEnv(base []string, opts Options) []string {
	env := make([]string, 0, len(base)+8)
	preload := opts.ShimPath
	for _, kv := range base {
		if strings.HasPrefix(kv, "LD_PRELOAD=") {
			if existing := strings.TrimPrefix(kv, "LD_PRELOAD="); existing != "" {
				preload = preload + ":" + existing
			}
			continue
		}
		env = append(env, kv)
	}
	env = append(env, "LD_PRELOAD="+preload)

	set := func(key, value string) {
		if value != "" {
			env = append(env, key+"="+value)
		}
	}
	set(shimconfig.EnvLibrary, opts.Library)
	set(shimconfig.EnvTraceDir, opts.TraceDir)
	set(shimconfig.EnvMetricsAddr, opts.MetricsAddr)
	set(shimconfig.EnvLogLevel, opts.LogLevel)
	set(shimconfig.EnvConfig, opts.ConfigFile)

	return append(env, opts.ExtraEnv...)
}
