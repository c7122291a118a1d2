package twitter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/birdbridge/birdbridge/internal/roomstore"
	"github.com/birdbridge/birdbridge/pkg/models"
	"github.com/robfig/cron/v3"
)

// ProfileSource looks up profiles by user ID. Implemented by Client.
type ProfileSource interface {
	GetProfileByID(ctx context.Context, userID string) (*models.Profile, error)
}

// RefresherConfig holds configuration for the profile refresher.
type RefresherConfig struct {
	// Profiles looks up current profile data (required)
	Profiles ProfileSource

	// Store holds the bindings to refresh (required)
	Store roomstore.Store

	// Schedule is a cron expression for refresh runs
	Schedule string

	// Logger is an optional logger instance
	Logger *slog.Logger
}

// Validate checks if the configuration is valid and applies defaults.
func (c *RefresherConfig) Validate() error {
	if c.Profiles == nil {
		return fmt.Errorf("profile source is required")
	}
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.Schedule == "" {
		c.Schedule = "@every 1h"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Refresher opportunistically refreshes the denormalized display metadata of
// all live bindings on a cron schedule. The snapshot is not authoritative;
// a failed refresh leaves the previous snapshot in place.
type Refresher struct {
	cfg    RefresherConfig
	cron   *cron.Cron
	logger *slog.Logger
}

// NewRefresher creates a profile refresher.
func NewRefresher(cfg RefresherConfig) (*Refresher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Refresher{
		cfg:    cfg,
		cron:   cron.New(),
		logger: cfg.Logger.With("component", "refresher"),
	}
	if _, err := r.cron.AddFunc(cfg.Schedule, r.runOnce); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", cfg.Schedule, err)
	}
	return r, nil
}

// Start begins scheduled refreshes.
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop stops the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Refresher) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	r.Refresh(ctx)
}

// Refresh updates the display metadata of every live binding.
func (r *Refresher) Refresh(ctx context.Context) {
	bindings, err := r.cfg.Store.ListEntries(ctx)
	if err != nil {
		r.logger.Error("could not list bindings", "error", err)
		return
	}

	for _, binding := range bindings {
		profile, err := r.cfg.Profiles.GetProfileByID(ctx, binding.Remote.ExternalUserID)
		if err != nil {
			r.logger.Warn("profile refresh failed",
				"twitter_user", binding.Remote.ExternalUserID,
				"error", err)
			continue
		}
		if profile == nil {
			// Account gone; the binding stays until the owner leaves.
			continue
		}

		updated := binding.Display
		updated.Name = profile.Name
		updated.Description = profile.Description
		if updated == binding.Display {
			continue
		}

		binding.Display = updated
		if err := r.cfg.Store.UpsertEntry(ctx, binding); err != nil {
			r.logger.Warn("could not persist refreshed metadata",
				"twitter_user", binding.Remote.ExternalUserID,
				"error", err)
		}
	}
}
