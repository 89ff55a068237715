// file: cmd/quota.go
// version: 1.0.0
// guid: 3c9e5a17-b4d2-4f86-8e01-a6f7d2c4b953

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/config"
	"github.com/jdfalk/bookmeta-orchestrator/internal/quota"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	quotaCmd = &cobra.Command{
		Use:   "quota",
		Short: "Inspect daily provider quotas",
	}

	quotaStatusCmd = &cobra.Command{
		Use:   "status [key...]",
		Short: "Show today's usage for quota keys",
		Long:  "Show today's usage for the given quota keys, or every configured key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, logger, err := openService()
			if err != nil {
				return err
			}
			defer closeService(svc, logger)
			return printQuotaStatus(cmd.Context(), cmd.OutOrStdout(), svc.Quota, args)
		},
	}

	quotaMonitorCmd = &cobra.Command{
		Use:   "monitor",
		Short: "Print quota usage and apply config file changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")
			return runQuotaMonitor(cmd, interval)
		},
	}
)

func init() {
	quotaMonitorCmd.Flags().Duration("interval", time.Minute, "how often to print usage")

	quotaCmd.AddCommand(quotaStatusCmd)
	quotaCmd.AddCommand(quotaMonitorCmd)
}

func printQuotaStatus(ctx context.Context, w io.Writer, m *quota.Manager, keys []string) error {
	if len(keys) == 0 {
		keys = m.Keys()
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tUSED\tLIMIT\tSOFT\tHARD\tRESETS")
	for _, key := range keys {
		st, err := m.Status(ctx, key)
		if err != nil {
			return err
		}
		limit := "unmetered"
		if st.Limit > 0 {
			limit = fmt.Sprint(st.Limit)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%s\n",
			st.Key, st.Used, limit, st.SoftCeiling, st.HardCeiling, st.ResetAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func runQuotaMonitor(cmd *cobra.Command, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}
	svc, logger, err := openService()
	if err != nil {
		return err
	}
	defer closeService(svc, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if viper.ConfigFileUsed() != "" {
		config.Watch(viper.GetViper(), logger, func(cfg config.Config) {
			if err := svc.ApplyConfig(cfg); err != nil {
				logger.Warn("failed to apply config", zap.Error(err))
			}
		})
	}

	out := cmd.OutOrStdout()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := printQuotaStatus(ctx, out, svc.Quota, nil); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
