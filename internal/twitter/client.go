// Package twitter provides the Twitter REST client, the timeline
// subscription manager and the outward-posting path used by the bridge.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/birdbridge/birdbridge/pkg/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultBaseURL = "https://api.twitter.com"

// Tweet is a single status as returned by statuses/user_timeline.
type Tweet struct {
	IDStr     string         `json:"id_str"`
	Text      string         `json:"text"`
	FullText  string         `json:"full_text"`
	CreatedAt string         `json:"created_at"`
	User      models.Profile `json:"user"`
}

// Body returns the tweet text, preferring the extended form.
func (t Tweet) Body() string {
	if t.FullText != "" {
		return t.FullText
	}
	return t.Text
}

// ClientConfig holds configuration for the Twitter REST client.
type ClientConfig struct {
	// ConsumerKey is the application consumer key (required)
	ConsumerKey string

	// ConsumerSecret is the application consumer secret (required)
	ConsumerSecret string

	// BaseURL overrides the API base URL (tests)
	BaseURL string

	// HTTPClient overrides the oauth2-built client (tests)
	HTTPClient *http.Client

	// Logger is an optional logger instance
	Logger *slog.Logger
}

// Validate checks if the configuration is valid and applies defaults.
func (c *ClientConfig) Validate() error {
	if c.HTTPClient == nil {
		if c.ConsumerKey == "" {
			return fmt.Errorf("consumer_key is required")
		}
		if c.ConsumerSecret == "" {
			return fmt.Errorf("consumer_secret is required")
		}
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Client is an application-auth Twitter REST client. Application auth can
// read public profiles and timelines but cannot post; posting goes through
// the Poster, which carries user-context credentials.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Twitter client using OAuth2 application-only auth.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		cc := clientcredentials.Config{
			ClientID:     cfg.ConsumerKey,
			ClientSecret: cfg.ConsumerSecret,
			TokenURL:     cfg.BaseURL + "/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		httpClient = cc.Client(ctx)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		logger:  cfg.Logger.With("component", "twitter"),
	}, nil
}

// GetProfileByScreenName looks up a profile by screen name. A missing
// account returns (nil, nil).
func (c *Client) GetProfileByScreenName(ctx context.Context, name string) (*models.Profile, error) {
	return c.getProfile(ctx, url.Values{"screen_name": {name}})
}

// GetProfileByID looks up a profile by its stable user ID. A missing
// account returns (nil, nil).
func (c *Client) GetProfileByID(ctx context.Context, userID string) (*models.Profile, error) {
	return c.getProfile(ctx, url.Values{"user_id": {userID}})
}

func (c *Client) getProfile(ctx context.Context, query url.Values) (*models.Profile, error) {
	var profile models.Profile
	found, err := c.get(ctx, "/1.1/users/show.json", query, &profile)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &profile, nil
}

// UserTimeline fetches tweets for a user newer than sinceID, oldest first.
// An empty sinceID fetches the most recent page.
func (c *Client) UserTimeline(ctx context.Context, userID, sinceID string) ([]Tweet, error) {
	query := url.Values{
		"user_id":    {userID},
		"count":      {"200"},
		"tweet_mode": {"extended"},
	}
	if sinceID != "" {
		query.Set("since_id", sinceID)
	}

	var tweets []Tweet
	found, err := c.get(ctx, "/1.1/statuses/user_timeline.json", query, &tweets)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	// The API returns newest first; deliver oldest first.
	for i, j := 0, len(tweets)-1; i < j; i, j = i+1, j-1 {
		tweets[i], tweets[j] = tweets[j], tweets[i]
	}
	return tweets, nil
}

// get performs a GET request and decodes the response into out. It returns
// false with a nil error on 404, which callers treat as "does not exist".
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("twitter request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("twitter request %s: status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("twitter response %s: %w", path, err)
	}
	return true, nil
}
