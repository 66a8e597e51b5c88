package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ncclspy/ncclspy/internal/hostinfo"
	"github.com/ncclspy/ncclspy/internal/resolver"
	"github.com/ncclspy/ncclspy/internal/shim"
	"github.com/ncclspy/ncclspy/internal/shimconfig"
)

var (
	checkLibrary string
	checkSymbol  string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the genuine NCCL library resolves on this host",
	Long: `Check performs the same resolution the shim performs on first use:
open the genuine library with lazy binding and look up the broadcast
symbol. It also reports host facts relevant to running a collective
workload here.

Exits non-zero when the library or symbol cannot be resolved.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkLibrary, "library", shimconfig.DefaultLibrary, "library file name to resolve")
	checkCmd.Flags().StringVar(&checkSymbol, "symbol", shim.BroadcastSymbol, "symbol to look up")
}

// checkReport is the JSON shape of a check run
type checkReport struct {
	Probe hostinfo.LibraryProbe `json:"probe"`
	Host  *hostinfo.Facts       `json:"host"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	report := checkReport{
		Probe: hostinfo.ProbeLibrary(resolver.Default(), checkLibrary, checkSymbol),
		Host:  hostinfo.Collect(),
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
	} else {
		status := "OK"
		if !report.Probe.Resolved {
			status = "FAILED: " + report.Probe.Error
		}

		gpus := "none"
		if len(report.Host.GPUDevices) > 0 {
			gpus = strings.Join(report.Host.GPUDevices, ", ")
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Field", "Value")
		table.Append("Library", report.Probe.Library)
		table.Append("Symbol", report.Probe.Symbol)
		table.Append("Resolution", status)
		table.Append("Host", report.Host.Hostname)
		table.Append("Kernel", report.Host.KernelVersion)
		table.Append("CPU", fmt.Sprintf("%s (%d threads)", report.Host.CPUModel, report.Host.CPUThreads))
		table.Append("Memory", fmt.Sprintf("%.1f GiB", float64(report.Host.MemoryBytes)/(1<<30)))
		table.Append("GPU Devices", gpus)
		table.Render()
	}

	if !report.Probe.Resolved {
		return fmt.Errorf("%s does not resolve %s on this host", checkLibrary, checkSymbol)
	}
	return nil
}
