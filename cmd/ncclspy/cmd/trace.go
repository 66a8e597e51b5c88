package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ncclspy/ncclspy/internal/store"
	"github.com/ncclspy/ncclspy/internal/trace"
)

var (
	traceDB       string
	traceImportDB string
	traceOp       string
	traceRank     int
	traceFailed   bool
	traceMinCount uint64
	traceLimit    int
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect recorded interception traces",
}

var traceShowCmd = &cobra.Command{
	Use:   "show <trace-file|trace-dir>",
	Short: "List recorded calls",
	Long: `Show lists intercepted calls from a trace file, a trace directory
(one file per rank), or a SQLite database created with 'trace import'.

Example:
  ncclspy trace show /data/traces
  ncclspy trace show --db traces.db --failed
  ncclspy trace show /data/traces --rank 0 --min-count 1048576`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTraceShow,
}

var traceSummaryCmd = &cobra.Command{
	Use:   "summary <trace-file|trace-dir>",
	Short: "Aggregate recorded calls",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTraceSummary,
}

var traceImportCmd = &cobra.Command{
	Use:   "import <trace-file|trace-dir>",
	Short: "Import trace files into a SQLite database",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceImport,
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceCmd.AddCommand(traceShowCmd)
	traceCmd.AddCommand(traceSummaryCmd)
	traceCmd.AddCommand(traceImportCmd)

	for _, c := range []*cobra.Command{traceShowCmd, traceSummaryCmd} {
		c.Flags().StringVar(&traceDB, "db", "", "read from a SQLite database instead of trace files")
		c.Flags().StringVar(&traceOp, "op", "", "only calls of this operation")
		c.Flags().IntVar(&traceRank, "rank", -1, "only calls from this rank")
		c.Flags().BoolVar(&traceFailed, "failed", false, "only calls that returned an error status")
		c.Flags().Uint64Var(&traceMinCount, "min-count", 0, "only calls with at least this many elements")
		c.Flags().IntVar(&traceLimit, "limit", 0, "maximum number of calls to list")
	}
	traceImportCmd.Flags().StringVar(&traceImportDB, "db", "traces.db", "SQLite database to import into")
}

func traceFilter() store.Filter {
	f := store.Filter{
		Op:         traceOp,
		MinCount:   traceMinCount,
		FailedOnly: traceFailed,
		Limit:      traceLimit,
	}
	if traceRank >= 0 {
		rank := traceRank
		f.Rank = &rank
	}
	return f
}

// loadEvents reads events from the --db store or from a path argument.
func loadEvents(args []string) ([]trace.Event, error) {
	if traceDB != "" {
		s, err := store.NewSQLiteStore(traceDB)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		return s.Events(traceFilter())
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("a trace file, trace directory, or --db is required")
	}
	events, err := readTracePath(args[0])
	if err != nil {
		return nil, err
	}

	// Apply the same filter in memory for file-backed reads.
	mem := store.NewMemoryStore()
	if err := mem.InsertEvents(events); err != nil {
		return nil, err
	}
	return mem.Events(traceFilter())
}

func readTracePath(path string) ([]trace.Event, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return trace.ReadDir(path)
	}
	return trace.ReadFile(path)
}

func runTraceShow(cmd *cobra.Command, args []string) error {
	events, err := loadEvents(args)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(events) == 0 {
		fmt.Println("No recorded calls")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Time", "Op", "Rank", "Count", "Root", "Duration", "Status")
	for _, ev := range events {
		table.Append(
			ev.Time.Format(time.RFC3339),
			ev.Op,
			fmt.Sprintf("%d", ev.Rank),
			fmt.Sprintf("%d", ev.Count),
			fmt.Sprintf("%d", ev.Root),
			(time.Duration(ev.DurationUS) * time.Microsecond).String(),
			fmt.Sprintf("%d", ev.Status),
		)
	}
	table.Render()
	return nil
}

func runTraceSummary(cmd *cobra.Command, args []string) error {
	events, err := loadEvents(args)
	if err != nil {
		return err
	}
	summary := trace.Summarize(events)

	if IsJSONOutput() {
		output, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")
	table.Append("Calls", fmt.Sprintf("%d", summary.Calls))
	table.Append("Failures", fmt.Sprintf("%d", summary.Failures))
	table.Append("Total Elements", fmt.Sprintf("%d", summary.TotalElements))
	table.Append("Min Duration", (time.Duration(summary.MinDurationUS) * time.Microsecond).String())
	table.Append("Max Duration", (time.Duration(summary.MaxDurationUS) * time.Microsecond).String())
	table.Append("Avg Duration", (time.Duration(summary.AvgDurationUS) * time.Microsecond).String())

	roots := make([]int, 0, len(summary.CallsByRoot))
	for root := range summary.CallsByRoot {
		roots = append(roots, int(root))
	}
	sort.Ints(roots)
	for _, root := range roots {
		table.Append(fmt.Sprintf("Calls (root=%d)", root), fmt.Sprintf("%d", summary.CallsByRoot[int32(root)]))
	}
	table.Render()
	return nil
}

func runTraceImport(cmd *cobra.Command, args []string) error {
	events, err := readTracePath(args[0])
	if err != nil {
		return err
	}

	s, err := store.NewSQLiteStore(traceImportDB)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.InsertEvents(events); err != nil {
		return err
	}
	fmt.Printf("Imported %d events into %s\n", len(events), traceImportDB)
	return nil
}
