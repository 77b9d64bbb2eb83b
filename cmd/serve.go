package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/fasinfasi/Face-Lock-System/internal/config"
	"github.com/fasinfasi/Face-Lock-System/internal/database/postgres"
	"github.com/fasinfasi/Face-Lock-System/internal/extractor"
	"github.com/fasinfasi/Face-Lock-System/internal/faceauth"
	"github.com/fasinfasi/Face-Lock-System/internal/metrics"
	"github.com/fasinfasi/Face-Lock-System/internal/userdata"
	"github.com/fasinfasi/Face-Lock-System/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authentication server",
	Long: `Start the Face Lock System HTTP server.
The server exposes enrollment, face login, session management and per-user
file storage under /api/v1, plus /health and /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides FACELOCK_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides FACELOCK_HOST)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies")
}

// applyServeFlags lets explicit flags win over environment configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Server.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Server.Host = host
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.Server.SessionSecret = secret
	}
}

// buildService wires the store, the extractor client and the matching policy
// into the shared decision core.
func buildService(cfg *config.Config, repo *postgres.UserRepository, reg prometheus.Registerer) (*faceauth.Service, error) {
	policy := faceauth.Policy{
		VerifyThreshold: cfg.Matching.VerifyThreshold,
		UpdateThreshold: cfg.Matching.UpdateThreshold,
		DedupThreshold:  cfg.Matching.DedupThreshold,
		MaxEmbeddings:   cfg.Matching.MaxEmbeddings,
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching policy: %w", err)
	}

	client := extractor.NewClient(cfg.Extractor.URL, time.Duration(cfg.Extractor.TimeoutSeconds)*time.Second)
	m := metrics.New(reg)
	return faceauth.NewService(repo, client, policy, m, cfg.Matching.StrictQuality), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Connect(&cfg.Database, cfg.Extractor.Dim)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	repo := postgres.NewUserRepository(pool)

	service, err := buildService(cfg, repo, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	userData, err := userdata.NewStore(cfg.UserData.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to initialize user data storage: %w", err)
	}

	server := web.NewServer(cfg, service, repo, userData, prometheus.DefaultGatherer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Lock System on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
