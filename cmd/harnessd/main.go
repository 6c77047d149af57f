package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/harness/pkg/config"
	"github.com/cuemby/harness/pkg/daemon"
	"github.com/cuemby/harness/pkg/log"
	"github.com/cuemby/harness/pkg/metrics"
	"github.com/cuemby/harness/pkg/registry"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "harnessd",
	Short:   "harnessd runs the service/task orchestration daemon for one stack",
	Version: Version,
	RunE:    runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"harnessd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().String("stack", "", "Path to the stack configuration file (required)")
	rootCmd.Flags().String("data-dir", "", "Directory for persisted registry state (in-memory if unset)")
	rootCmd.Flags().String("listen", "127.0.0.1:7777", "Address the daemon control socket listens on")
	rootCmd.Flags().String("metrics-listen", "127.0.0.1:7778", "Address the Prometheus/health endpoints listen on")
	rootCmd.Flags().String("containerd-socket", "", "containerd socket path (auto-detected if empty)")
	_ = rootCmd.MarkFlagRequired("stack")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

func runDaemon(cmd *cobra.Command, args []string) error {
	stackPath, _ := cmd.Flags().GetString("stack")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	listen, _ := cmd.Flags().GetString("listen")
	metricsListen, _ := cmd.Flags().GetString("metrics-listen")
	containerdSocket, _ := cmd.Flags().GetString("containerd-socket")

	data, err := os.ReadFile(stackPath)
	if err != nil {
		return fmt.Errorf("read stack file: %w", err)
	}
	stack, err := config.Load(data)
	if err != nil {
		return fmt.Errorf("load stack: %w", err)
	}

	var backend registry.Backend
	if dataDir != "" {
		backend, err = registry.NewBoltBackend(dataDir)
		if err != nil {
			return fmt.Errorf("open registry store: %w", err)
		}
	} else {
		backend = registry.NewMemoryBackend()
	}
	reg, err := registry.New(backend)
	if err != nil {
		return fmt.Errorf("init registry: %w", err)
	}

	orch, err := newOrchestrator(stack, reg, containerdSocket)
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.StartStack(ctx); err != nil {
		log.Logger.Error().Err(err).Msg("stack did not fully start")
	}

	actions := daemon.NewActionRegistry()
	server := daemon.NewServer(orch, reg, actions)

	mux := http.NewServeMux()
	mux.Handle("/ws", server)
	controlServer := &http.Server{Addr: listen, Handler: mux}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsMux.Handle("/health", metrics.HealthHandler())
	metricsMux.Handle("/ready", metrics.ReadyHandler())
	metricsMux.Handle("/live", metrics.LivenessHandler())
	metricsServer := &http.Server{Addr: metricsListen, Handler: metricsMux}

	go func() {
		log.Logger.Info().Str("addr", listen).Msg("daemon control socket listening")
		if err := controlServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Logger.Error().Err(err).Msg("control socket listener failed")
		}
	}()
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Logger.Error().Err(err).Msg("metrics listener failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	_ = controlServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	return orch.Shutdown(shutdownCtx)
}
