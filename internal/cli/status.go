package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/prasetyo/artifex/internal/config"
	"github.com/prasetyo/artifex/pkg/coordinator"
)

var statusURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show coordinator scheduling stats",
	Long:  `Query a running coordinator service and print its scheduling statistics.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusURL, "url", "", "debug server base URL (default from config)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	base := statusURL
	if base == "" {
		loader := config.NewLoader(cfgFile)
		cfg, err := loader.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		base = fmt.Sprintf("http://%s:%d", cfg.DebugServer.Host, cfg.DebugServer.Port)
	}

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(base + "/stats")
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Status: not running")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("debug server returned %s", resp.Status)
	}

	var stats coordinator.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return fmt.Errorf("failed to decode stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Status: running")
	fmt.Fprintf(out, "Total operations: %d\n", stats.TotalOperations)
	fmt.Fprintf(out, "Parallel: %d  Serialized: %d\n", stats.ParallelOperations, stats.SerializedOperations)
	fmt.Fprintf(out, "Parallelization rate: %.1f%%\n", stats.ParallelizationRate*100)
	fmt.Fprintf(out, "Average wait: %.2fms\n", stats.AverageWaitMs)
	fmt.Fprintf(out, "Active operations: %d\n", stats.ActiveOperations)
	fmt.Fprintf(out, "Active resource queues: %d\n", stats.ActiveResourceQueues)

	return nil
}
