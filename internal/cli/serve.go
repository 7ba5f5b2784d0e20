package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klubi/codemode/internal/apiserver"
	"github.com/klubi/codemode/internal/config"
	"github.com/klubi/codemode/internal/runtime"
	"github.com/klubi/codemode/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port     int
		host     string
		dataDir  string
		agentBin string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the codemode control plane",
		Long:  "Start the codemode API server and run executor.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Build configuration with CLI overrides.
			cfg := config.DefaultConfig()
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.Store.DataDir = dataDir
			}
			if cmd.Flags().Changed("agent-bin") {
				cfg.Exec.AgentBin = agentBin
			}

			// 2. Create logger.
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			defer logger.Sync()

			// 3. Ensure data directory exists and open BoltDB store.
			if err := os.MkdirAll(cfg.Store.DataDir, 0755); err != nil {
				return fmt.Errorf("creating data directory %s: %w", cfg.Store.DataDir, err)
			}

			boltStore, err := store.NewBoltStore(cfg.DBPath())
			if err != nil {
				return fmt.Errorf("opening store at %s: %w", cfg.DBPath(), err)
			}
			defer boltStore.Close()

			// 4. Create the run executor.
			rt := runtime.NewRuntime(boltStore, cfg, logger)

			// 5. Create and start API server.
			addr := cfg.ServerAddress()
			apiSrv := apiserver.NewServer(addr, boltStore, rt, logger)

			// Print startup banner.
			banner := color.New(color.FgCyan, color.Bold)
			banner.Println("Codemode Control Plane")
			fmt.Printf("   API Server: http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Printf("   Agent:      %s\n", cfg.Exec.AgentBin)
			fmt.Printf("   Data Dir:   %s\n", cfg.Store.DataDir)
			fmt.Printf("   DB Path:    %s\n", cfg.DBPath())
			fmt.Println()

			// Start API server in a goroutine.
			errCh := make(chan error, 1)
			go func() {
				if err := apiSrv.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			// 6. Wait for interrupt signal for graceful shutdown.
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			case err := <-errCh:
				logger.Error("API server error", zap.Error(err))
				return err
			}

			// Graceful shutdown with a 10-second deadline.
			fmt.Println()
			logger.Info("shutting down gracefully...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			if err := apiSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("API server shutdown error", zap.Error(err))
			}

			logger.Info("codemode control plane stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 7171, "API server port")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "API server host")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.codemode/data)")
	cmd.Flags().StringVar(&agentBin, "agent-bin", "", "Completion agent binary (default: claude)")

	return cmd
}
