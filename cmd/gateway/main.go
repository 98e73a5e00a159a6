package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zaploop/zaploop/internal/common/config"
	"github.com/zaploop/zaploop/internal/gateway"
	"github.com/zaploop/zaploop/internal/notify"
	"github.com/zaploop/zaploop/internal/orchestrator"
	"github.com/zaploop/zaploop/internal/provider"
	"github.com/zaploop/zaploop/internal/provider/loopback"
	"github.com/zaploop/zaploop/internal/store"
	"github.com/zaploop/zaploop/pkg/logger"
	"github.com/zaploop/zaploop/pkg/metrics"
	"github.com/zaploop/zaploop/pkg/version"
	"go.uber.org/zap"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the gateway",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gateway version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "gateway",
		Short: "Multi-session messaging gateway",
		Long:  `Session lifecycle orchestrator and HTTP control surface for a multi-session messaging gateway`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "configs/gateway.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", configPath, err)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting gateway",
		zap.String("version", version.Get()),
		zap.String("addr", cfg.Server.Addr))

	st, err := store.NewDiskStore(zapLogger, cfg.Storage.RootDir)
	if err != nil {
		zapLogger.Fatal("failed to initialize session store",
			zap.String("root", cfg.Storage.RootDir), zap.Error(err))
	}

	var prov provider.Provider
	switch cfg.Provider.Type {
	case "loopback":
		prov = loopback.New(zapLogger, cfg.Provider.PairingDelay)
	default:
		zapLogger.Fatal("unsupported provider type", zap.String("type", cfg.Provider.Type))
	}

	m := metrics.New(cfg.Metrics)
	hub := notify.NewHub(zapLogger, cfg.Push.QueueSize, m)
	sink := notify.NewWebhookSink(zapLogger, cfg.Webhook, m)
	if sink.Enabled() {
		zapLogger.Info("webhook sink enabled", zap.String("url", cfg.Webhook.URL))
	}

	orch := orchestrator.New(zapLogger, cfg.Session, prov, st, hub, sink, m)

	// bring persisted sessions back before accepting traffic
	if report, err := orch.RestartAll(context.Background()); err != nil {
		zapLogger.Error("batch restore failed", zap.Error(err))
	} else if len(report.Succeeded)+len(report.Failed) > 0 {
		zapLogger.Info("restored persisted sessions",
			zap.Strings("succeeded", report.Succeeded),
			zap.Int("failed", len(report.Failed)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := gateway.NewServer(zapLogger, cfg.Server, orch, hub, m)
	if err := srv.Run(ctx); err != nil {
		zapLogger.Error("http server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		zapLogger.Warn("orchestrator shutdown incomplete", zap.Error(err))
	}
	zapLogger.Info("gateway stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
