package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ncclspy/ncclspy/internal/launch"
)

var (
	runLibrary     string
	runTraceDir    string
	runMetricsAddr string
	runLogLevel    string
	runShimConfig  string
	runExtraEnv    []string
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command> [args...]",
	Short: "Run a workload with the NCCL interposer preloaded",
	Long: `Run spawns a workload with libncclshim.so prepended to LD_PRELOAD so
every ncclBroadcast call is intercepted, logged, and forwarded to the
genuine library.

The workload runs in its own process group and is never owned by ncclspy:
if ncclspy dies, the workload keeps running.

Example:
  ncclspy run --trace-dir /data/traces -- python train.py
  ncclspy run --metrics-addr :9465 -- ./all_reduce_perf -b 8 -e 128M
  ncclspy run --library libnccl.so.2.19 -- torchrun train.py`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWorkload,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runLibrary, "library", "", "genuine library file name to resolve (default libnccl.so.2)")
	runCmd.Flags().StringVar(&runTraceDir, "trace-dir", "", "record intercepted calls to per-rank files in this directory")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics from the shim on this address")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "shim log level: debug, info, warn, error")
	runCmd.Flags().StringVar(&runShimConfig, "shim-config", "", "YAML config file for the shim")
	runCmd.Flags().StringArrayVar(&runExtraEnv, "env", nil, "extra KEY=VALUE environment for the workload (repeatable)")
}

func runWorkload(cmd *cobra.Command, args []string) error {
	opts := launch.Options{
		ShimPath:    GetShimPath(),
		Library:     runLibrary,
		TraceDir:    runTraceDir,
		MetricsAddr: runMetricsAddr,
		LogLevel:    runLogLevel,
		ConfigFile:  runShimConfig,
		ExtraEnv:    runExtraEnv,
	}

	result, err := launch.Run(context.Background(), opts, args[0], args[1:])
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Field", "Value")
		table.Append("PID", fmt.Sprintf("%d", result.PID))
		table.Append("Exit Code", fmt.Sprintf("%d", result.ExitCode))
		table.Append("Duration", fmt.Sprintf("%.2fs", result.Duration))
		table.Append("Shim", result.ShimPath)
		if result.TraceDir != "" {
			table.Append("Trace Dir", result.TraceDir)
		}
		table.Render()
	}

	if !result.Succeeded() {
		// Propagate the workload's failure without extra noise.
		os.Exit(result.ExitCode)
	}
	return nil
}
