package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/condohub/condohub/cmd/condohub/cli"
	"github.com/condohub/condohub/internal/app"
	"github.com/condohub/condohub/internal/billing"
	"github.com/condohub/condohub/internal/platform/db"
	"github.com/condohub/condohub/internal/structure"
	"github.com/condohub/condohub/internal/targeting"
)

var (
	communityID int64
	campaignID  int64
	jsonOutput  bool
	retryLimit  int
)

// exitCode carries a command's status past cobra's error handling.
var exitCode int

var rootCmd = &cobra.Command{
	Use:           "condohubctl",
	Short:         "Operations tooling for the condohub service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var checkStructureCmd = &cobra.Command{
	Use:   "check-structure",
	Short: "Validate a community block tree",
	Long:  `Loads every block and unit of a community and reports the first topology defect. Exits 10 when the tree is invalid.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		pool, err := db.New(cmd.Context(), cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		helper, err := cli.NewStructureCLI(structure.NewRepository(pool))
		if err != nil {
			return err
		}
		exitCode = helper.CheckCommand(cmd.Context(), cli.CheckOptions{
			CommunityID: communityID,
			JSONOutput:  jsonOutput,
			Stdout:      cmd.OutOrStdout(),
			Stderr:      cmd.ErrOrStderr(),
		})
		return nil
	},
}

var exportPreviewCmd = &cobra.Command{
	Use:   "export-preview",
	Short: "Print the fee table of a stored campaign",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		pool, err := db.New(cmd.Context(), cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		trees := structure.NewService(structure.NewRepository(pool))
		service := billing.NewService(trees, billing.NewRepository(pool), billing.NewCache(nil, 0), targeting.NewMemo(cfg.ResolveMemoSize))
		helper, err := cli.NewPreviewCLI(service)
		if err != nil {
			return err
		}
		exitCode = helper.ExportCommand(cmd.Context(), cli.ExportOptions{
			CommunityID: communityID,
			CampaignID:  campaignID,
			JSONOutput:  jsonOutput,
			Stdout:      cmd.OutOrStdout(),
			Stderr:      cmd.ErrOrStderr(),
		})
		return nil
	},
}

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Enqueue a preview warm-up for a community or a single campaign",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		helper, err := jobsHelper()
		if err != nil {
			return err
		}
		defer helper.Close()

		info, err := helper.TriggerWarmup(cmd.Context(), communityID, campaignID)
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "already queued")
			return nil
		}
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s\n", info.ID, info.Queue)
		return nil
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show queue depth and pending retries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		helper, err := jobsHelper()
		if err != nil {
			return err
		}
		defer helper.Close()

		stats, err := helper.InspectQueue(cmd.Context())
		if err != nil {
			return err
		}
		retries, err := helper.ListRetries(cmd.Context(), retryLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			ids := make([]string, 0, len(retries))
			for _, r := range retries {
				ids = append(ids, r.ID)
			}
			return json.NewEncoder(out).Encode(struct {
				cli.QueueStats
				RetryIDs []string `json:"retry_ids"`
			}{stats, ids})
		}
		_, _ = fmt.Fprintf(out, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		for _, r := range retries {
			_, _ = fmt.Fprintf(out, "  retry %s %s (%d/%d) %s\n", r.ID, r.Type, r.Retried, r.MaxRetry, r.LastErr)
		}
		return nil
	},
}

func jobsHelper() (*cli.JobsCLI, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	return cli.NewJobsCLI(cfg.RedisAddr)
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&communityID, "community", 0, "Community id")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	exportPreviewCmd.Flags().Int64Var(&campaignID, "campaign", 0, "Campaign id")
	warmupCmd.Flags().Int64Var(&campaignID, "campaign", 0, "Campaign id (0 warms every campaign)")
	queueCmd.Flags().IntVar(&retryLimit, "retries", 10, "Number of retry tasks to list")

	rootCmd.AddCommand(checkStructureCmd)
	rootCmd.AddCommand(exportPreviewCmd)
	rootCmd.AddCommand(warmupCmd)
	rootCmd.AddCommand(queueCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Default().Error("condohubctl", slog.Any("error", err))
		stop()
		os.Exit(cli.ExitFailure)
	}
	stop()
	os.Exit(exitCode)
}
