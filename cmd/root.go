// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"fmt"

	"github.com/jdfalk/bookmeta-orchestrator/internal/config"
	"github.com/jdfalk/bookmeta-orchestrator/internal/logging"
	"github.com/jdfalk/bookmeta-orchestrator/internal/metrics"
	"github.com/jdfalk/bookmeta-orchestrator/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

// serviceOptions are appended to every service.New call. Tests use it to
// swap the quota store and provider set.
var serviceOptions []service.Option

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bookmeta",
	Short: "Query book metadata providers with quota-aware fallback",
	Long: `bookmeta routes book metadata requests (ISBN resolution, covers,
enrichment, series and generated suggestions) across registered providers.

Free providers are preferred, metered ones are admitted against daily quota
ceilings, and results are validated before they are returned.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./bookmeta.yaml or $HOME/.config/bookmeta/bookmeta.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("store-type", "", "quota store: memory, pebble, sqlite or postgres")
	rootCmd.PersistentFlags().String("store-path", "", "quota store path for pebble or sqlite")
	rootCmd.PersistentFlags().String("store-dsn", "", "quota store DSN for postgres")

	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(coversCmd)
	rootCmd.AddCommand(seriesCmd)
	rootCmd.AddCommand(authorCmd)
	rootCmd.AddCommand(generateCmd)
}

var flagKeys = map[string]string{
	"log-level":  "logging.level",
	"store-type": "store.type",
	"store-path": "store.path",
	"store-dsn":  "store.dsn",
}

// initConfig loads configuration into config.AppConfig. Flags that were set
// on the command line override file and environment values.
func initConfig(cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			viper.Set(key, f.Value.String())
		}
	}
	if err := config.InitConfig(cfgFile); err != nil {
		return err
	}
	if used := viper.ConfigFileUsed(); used != "" {
		cmd.PrintErrln("Using config file:", used)
	}
	return nil
}

// openService builds the logger and service from config.AppConfig.
func openService() (*service.Service, *zap.Logger, error) {
	logger, err := logging.New(config.AppConfig.Logging)
	if err != nil {
		return nil, nil, err
	}
	metrics.Register()
	svc, err := service.New(config.AppConfig, logger, serviceOptions...)
	if err != nil {
		logger.Sync()
		return nil, nil, fmt.Errorf("failed to start service: %w", err)
	}
	return svc, logger, nil
}

func closeService(svc *service.Service, logger *zap.Logger) {
	if err := svc.Close(); err != nil {
		logger.Warn("failed to close service", zap.Error(err))
	}
	logger.Sync()
}
