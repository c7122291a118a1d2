// Package main provides the CLI entry point for the birdbridge
// Matrix-Twitter timeline bridge.
//
// The bridge maps a Twitter account's public timeline to a Matrix room:
// alias provisioning requests create rooms on demand, new tweets are
// delivered into the room, messages posted in the room are relayed outward,
// and the room is torn down when its owner leaves.
//
// # Basic Usage
//
// Start the bridge:
//
//	birdbridge serve --config birdbridge.yaml
//
// # Environment Variables
//
// Secrets referenced from the config file are expanded from the
// environment, e.g.:
//
//   - MATRIX_ACCESS_TOKEN: homeserver access token
//   - TWITTER_CONSUMER_KEY / TWITTER_CONSUMER_SECRET: application credentials
//   - TWITTER_USER_TOKEN: user-context token for outward posting
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/birdbridge/birdbridge/internal/bridge"
	"github.com/birdbridge/birdbridge/internal/config"
	"github.com/birdbridge/birdbridge/internal/matrix"
	"github.com/birdbridge/birdbridge/internal/observability"
	"github.com/birdbridge/birdbridge/internal/roomstore"
	"github.com/birdbridge/birdbridge/internal/twitter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "birdbridge",
		Short:         "Matrix-Twitter timeline bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("birdbridge", Version)
		},
	}
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "birdbridge.yaml", "path to configuration file")
	return cmd
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := roomstore.NewSQLiteStore(roomstore.SQLiteConfig{Path: cfg.Storage.Path})
	if err != nil {
		return err
	}
	defer store.Close()

	matrixService, err := matrix.NewService(matrix.Config{
		Homeserver:  cfg.Matrix.Homeserver,
		UserID:      cfg.Matrix.UserID,
		AccessToken: cfg.Matrix.AccessToken,
		Domain:      cfg.Matrix.Domain,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	twitterClient, err := twitter.NewClient(ctx, twitter.ClientConfig{
		ConsumerKey:    cfg.Twitter.ConsumerKey,
		ConsumerSecret: cfg.Twitter.ConsumerSecret,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	subscriptions, err := twitter.NewManager(twitter.ManagerConfig{
		Source:       twitterClient,
		Sink:         matrixService,
		Domain:       matrixService.Domain(),
		PollInterval: cfg.Twitter.PollInterval,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}
	defer subscriptions.StopAll()

	poster, err := twitter.NewPoster(ctx, twitter.PosterConfig{
		UserToken: cfg.Twitter.UserToken,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	services := &bridge.Services{
		RoomStore:     store,
		FastLookup:    store,
		Profiles:      twitterClient,
		Assets:        matrixService,
		Subscriptions: subscriptions,
		Rooms:         matrixService,
		Outbound:      poster,
		Domain:        matrixService.Domain(),
		Logger:        logger,
		Metrics:       metrics,
	}

	provisioner, err := bridge.NewRoomProvisioner(services)
	if err != nil {
		return err
	}
	lifecycle, err := bridge.NewLifecycleCoordinator(services)
	if err != nil {
		return err
	}
	membership, err := bridge.NewMembershipReconciler(services)
	if err != nil {
		return err
	}
	relay, err := bridge.NewMessageRelay(services)
	if err != nil {
		return err
	}

	refresher, err := twitter.NewRefresher(twitter.RefresherConfig{
		Profiles: twitterClient,
		Store:    store,
		Schedule: cfg.Twitter.RefreshCron,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	if err := resumeSubscriptions(ctx, store, subscriptions); err != nil {
		return err
	}

	host := matrix.NewHost(matrixService, store, provisioner, lifecycle, membership, relay)
	if err := host.Start(ctx); err != nil {
		return err
	}
	refresher.Start()

	var metricsServer *http.Server
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		logger.Info("metrics endpoint listening", "addr", cfg.Metrics.Listen)
	}

	logger.Info("birdbridge running", "version", Version)
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	refresher.Stop()
	if err := host.Stop(shutdownCtx); err != nil {
		logger.Error("host shutdown failed", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", "error", err)
		}
	}

	return nil
}

// resumeSubscriptions restarts the feed subscription for every persisted
// binding after a process restart.
func resumeSubscriptions(ctx context.Context, store roomstore.Store, subscriptions *twitter.Manager) error {
	bindings, err := store.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("list bindings: %w", err)
	}
	for _, binding := range bindings {
		if err := subscriptions.StartSubscription(ctx, binding.Remote.ExternalUserID, binding.RoomID, true); err != nil {
			return fmt.Errorf("resume subscription for %s: %w", binding.Remote.ExternalUserID, err)
		}
	}
	return nil
}
