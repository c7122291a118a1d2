package twitter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/birdbridge/birdbridge/internal/observability"
	"github.com/birdbridge/birdbridge/pkg/models"
)

// TimelineSource fetches timeline pages. Implemented by Client.
type TimelineSource interface {
	UserTimeline(ctx context.Context, userID, sinceID string) ([]Tweet, error)
}

// TimelineSink receives new tweets for a bridged room. Implemented by the
// Matrix service.
type TimelineSink interface {
	DeliverTweet(ctx context.Context, roomID string, tweet Tweet) error
}

// ManagerConfig holds configuration for the subscription manager.
type ManagerConfig struct {
	// Source fetches timelines (required)
	Source TimelineSource

	// Sink receives new tweets (required)
	Sink TimelineSink

	// Domain is the homeserver domain used to derive owner principals (required)
	Domain string

	// PollInterval between timeline fetches per subscription
	PollInterval time.Duration

	// Logger is an optional logger instance
	Logger *slog.Logger

	// Metrics is an optional metrics instance
	Metrics *observability.Metrics
}

// Validate checks if the configuration is valid and applies defaults.
func (c *ManagerConfig) Validate() error {
	if c.Source == nil {
		return fmt.Errorf("timeline source is required")
	}
	if c.Sink == nil {
		return fmt.Errorf("timeline sink is required")
	}
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if c.PollInterval == 0 {
		c.PollInterval = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// subscription is one running timeline poller.
type subscription struct {
	externalUserID string
	roomID         string
	primary        bool
	sinceID        string
	stopCh         chan struct{}
	done           chan struct{}
}

// Manager runs one polling subscription per external user. Subscriptions
// are deduplicated by external user ID: starting an already-subscribed user
// is a no-op, which is what makes the lifecycle callback safe to re-invoke.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu      sync.Mutex
	byUser  map[string]*subscription
	byOwner map[string]string // owner principal -> external user ID
}

// NewManager creates a subscription manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "subscriptions"),
		byUser:  make(map[string]*subscription),
		byOwner: make(map[string]string),
	}, nil
}

// StartSubscription starts polling the user's timeline into the given room.
// If a subscription for the user already exists the call is a no-op.
func (m *Manager) StartSubscription(ctx context.Context, externalUserID, roomID string, primary bool) error {
	if externalUserID == "" || roomID == "" {
		return fmt.Errorf("external user id and room id are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byUser[externalUserID]; exists {
		m.logger.Debug("subscription already running", "twitter_user", externalUserID)
		return nil
	}

	sub := &subscription{
		externalUserID: externalUserID,
		roomID:         roomID,
		primary:        primary,
		stopCh:         make(chan struct{}),
		done:           make(chan struct{}),
	}
	owner := models.TimelineOwnerPrincipal(externalUserID, m.cfg.Domain)
	m.byUser[externalUserID] = sub
	m.byOwner[owner] = externalUserID

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ActiveSubscriptions.Inc()
	}
	m.logger.Info("timeline subscription started",
		"twitter_user", externalUserID,
		"room_id", roomID,
		"primary", primary)

	go m.poll(sub)
	return nil
}

// StopSubscription stops the subscription owned by the given principal.
// Stopping a principal with no subscription is a no-op.
func (m *Manager) StopSubscription(ctx context.Context, principal string) error {
	m.mu.Lock()
	externalUserID, ok := m.byOwner[principal]
	var sub *subscription
	if ok {
		sub = m.byUser[externalUserID]
		delete(m.byUser, externalUserID)
		delete(m.byOwner, principal)
	}
	m.mu.Unlock()

	if sub == nil {
		m.logger.Debug("no subscription for principal", "principal", principal)
		return nil
	}

	close(sub.stopCh)
	<-sub.done

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ActiveSubscriptions.Dec()
	}
	m.logger.Info("timeline subscription stopped",
		"twitter_user", externalUserID,
		"principal", principal)
	return nil
}

// StopAll stops every running subscription. Used at shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	subs := make([]*subscription, 0, len(m.byUser))
	for _, sub := range m.byUser {
		subs = append(subs, sub)
	}
	m.byUser = make(map[string]*subscription)
	m.byOwner = make(map[string]string)
	m.mu.Unlock()

	for _, sub := range subs {
		close(sub.stopCh)
		<-sub.done
		if m.cfg.Metrics != nil {
			m.cfg.Metrics.ActiveSubscriptions.Dec()
		}
	}
}

// ActiveCount returns the number of running subscriptions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byUser)
}

func (m *Manager) poll(sub *subscription) {
	defer close(sub.done)

	logger := m.logger.With("twitter_user", sub.externalUserID, "room_id", sub.roomID)

	// Fetch once immediately so a fresh room shows content without waiting
	// a full interval.
	m.fetchOnce(sub, logger)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sub.stopCh:
			return
		case <-ticker.C:
			m.fetchOnce(sub, logger)
		}
	}
}

func (m *Manager) fetchOnce(sub *subscription, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PollInterval)
	defer cancel()

	tweets, err := m.cfg.Source.UserTimeline(ctx, sub.externalUserID, sub.sinceID)
	if err != nil {
		logger.Error("timeline fetch failed", "error", err)
		return
	}
	if len(tweets) == 0 {
		return
	}

	// First fetch only establishes the high-water mark; replaying the whole
	// backlog into a fresh room would flood it.
	if sub.sinceID == "" {
		sub.sinceID = tweets[len(tweets)-1].IDStr
		return
	}

	for _, tweet := range tweets {
		if err := m.cfg.Sink.DeliverTweet(ctx, sub.roomID, tweet); err != nil {
			logger.Error("tweet delivery failed", "tweet_id", tweet.IDStr, "error", err)
			continue
		}
		sub.sinceID = tweet.IDStr
		if m.cfg.Metrics != nil {
			m.cfg.Metrics.TweetsDelivered.Inc()
		}
	}
}
