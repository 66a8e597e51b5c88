package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/ncclspy/ncclspy/internal/metrics"
	"github.com/ncclspy/ncclspy/pkg/shutdown"
)

var (
	exportListen string
	exportOnce   bool
)

var exportCmd = &cobra.Command{
	Use:   "export <trace-file|trace-dir>",
	Short: "Serve Prometheus metrics replayed from recorded traces",
	Long: `Export replays a recorded trace into the same Prometheus collectors
the live shim uses and serves them on /metrics, so traces from hosts
without a scrape endpoint can be analyzed with the usual dashboards.

With --once the exposition text is written to stdout instead of serving.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportListen, "listen", ":9465", "address to serve /metrics on")
	exportCmd.Flags().BoolVar(&exportOnce, "once", false, "print one metrics snapshot to stdout and exit")
}

func runExport(cmd *cobra.Command, args []string) error {
	events, err := readTracePath(args[0])
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	rec.Replay(events)

	if exportOnce {
		families, err := rec.Gather()
		if err != nil {
			return fmt.Errorf("failed to gather metrics: %w", err)
		}
		enc := expfmt.NewEncoder(os.Stdout, expfmt.NewFormat(expfmt.TypeTextPlain))
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return fmt.Errorf("failed to encode metrics: %w", err)
			}
		}
		return nil
	}

	srv := metrics.NewServer(exportListen, rec)
	errs := srv.Start()
	fmt.Printf("Serving %d replayed events on %s/metrics (Ctrl+C to stop)\n", len(events), exportListen)

	mgr := shutdown.New(10 * time.Second)
	mgr.Register(srv.Shutdown)

	go func() {
		if err := <-errs; err != nil {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()

	mgr.Wait()
	return mgr.Shutdown()
}
