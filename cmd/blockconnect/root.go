package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"blockconnect/pkg/config"
	"blockconnect/pkg/logger"
	"blockconnect/services/auth"
	"blockconnect/services/follow"
	"blockconnect/services/interaction"
	"blockconnect/services/message"
	"blockconnect/services/mirror"
	"blockconnect/services/notification"
	"blockconnect/services/post"

	"github.com/spf13/cobra"
)

type runFunc func(ctx context.Context, cfg *config.Config, log *logger.Logger) error

var services = map[string]runFunc{
	"auth":         auth.Run,
	"post":         post.Run,
	"interaction":  interaction.Run,
	"follow":       follow.Run,
	"message":      message.Run,
	"notification": notification.Run,
}

var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "blockconnect [command]",
	Short:        "BlockConnect services, mirror worker and migrations",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:       "serve <service>",
	Short:     "Run one HTTP service",
	Long:      "Run one HTTP service: " + strings.Join(serviceNames(), ", "),
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: serviceNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args[0], services[args[0]])
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the mirror worker",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), "mirror", mirror.Run)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")
	rootCmd.AddCommand(serveCmd, workerCmd)
}

func serviceNames() []string {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, logger.NewWithLevel(cfg.LogLevel), nil
}

func run(ctx context.Context, name string, fn runFunc) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := fn(ctx, cfg, log); err != nil {
		log.Error("%s stopped: %v", name, err)
		return err
	}
	return nil
}
