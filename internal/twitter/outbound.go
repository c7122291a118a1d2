package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/birdbridge/birdbridge/pkg/models"
	"golang.org/x/oauth2"
)

// PosterConfig holds configuration for the outward-posting path.
type PosterConfig struct {
	// UserToken is the OAuth2 user-context token authorized to post (required)
	UserToken string

	// BaseURL overrides the API base URL (tests)
	BaseURL string

	// HTTPClient overrides the oauth2-built client (tests)
	HTTPClient *http.Client

	// Logger is an optional logger instance
	Logger *slog.Logger
}

// Validate checks if the configuration is valid and applies defaults.
func (c *PosterConfig) Validate() error {
	if c.UserToken == "" && c.HTTPClient == nil {
		return fmt.Errorf("user token is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Poster posts room messages as tweets through the v2 API using a
// user-context token. It performs no filtering or validation beyond
// extracting the message body; that is the relay contract.
type Poster struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewPoster creates the outward-posting client.
func NewPoster(ctx context.Context, cfg PosterConfig) (*Poster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.UserToken})
		httpClient = oauth2.NewClient(ctx, src)
	}

	return &Poster{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		logger:  cfg.Logger.With("component", "poster"),
	}, nil
}

// PostAsExternalMessage posts a room message event outward, scoped to the
// bound remote identity.
func (p *Poster) PostAsExternalMessage(ctx context.Context, evt models.RoomEvent, senderPrincipal string, remote models.RemoteRoomData) error {
	body := evt.Body
	if body == "" {
		if raw, ok := evt.Content["body"].(string); ok {
			body = raw
		}
	}
	if body == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"text": body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("post tweet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post tweet: status %d: %s", resp.StatusCode, detail)
	}

	p.logger.Debug("posted message outward",
		"sender", senderPrincipal,
		"twitter_user", remote.ExternalUserID)
	return nil
}
