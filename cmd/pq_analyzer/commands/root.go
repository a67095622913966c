package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/user/pq_analyzer_go/internal/analysis"
	"github.com/user/pq_analyzer_go/internal/config"
	"github.com/user/pq_analyzer_go/internal/logging"
	"github.com/user/pq_analyzer_go/internal/server"
	"github.com/user/pq_analyzer_go/internal/session"
	"github.com/user/pq_analyzer_go/internal/ws"
)

var (
	// Version and Commit are set at build time via ldflags.
	Version = "dev"
	Commit  = "none"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "pq_analyzer",
	Short: "Power quality report service for IEEE 519 compliance analysis",
	Long: `Serves the browser report UI surface: accepts a measurement file upload,
delegates the numeric analysis to a remote service, and renders the result
as filterable trend charts and an exportable PDF report.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		logging.Init(verbose, cfg.LogsFolder)
		log.Info().Str("version", Version).Str("commit", Commit).Msg("pq_analyzer starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	client := analysis.NewClient(analysis.Config{BaseURL: cfg.AnalyzerURL})
	hub := ws.NewHub()
	go hub.Run()

	sess := session.New(client, hub, cfg.SettleDelay)
	handler := server.NewHandler(sess, hub)
	router := server.NewRouter(handler)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("analyzer", cfg.AnalyzerURL).Msg("Report service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if cfg.OpenBrowser {
		addr := cfg.ListenAddr
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		if err := browser.OpenURL("http://" + addr); err != nil {
			log.Warn().Err(err).Msg("Failed to open browser")
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
