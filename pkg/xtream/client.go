// Package xtream implements a client for the Xtream Codes provider API.
//
// All endpoints hang off player_api.php with an action parameter; stream
// playback and XMLTV downloads use dedicated paths. Providers are loose
// with JSON types, so numeric fields use the Flex wrappers from types.go.
package xtream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds API calls when no custom client is supplied.
const DefaultTimeout = 2 * time.Minute

const (
	pathPlayerAPI = "/player_api.php"
	pathXMLTV     = "/xmltv.php"
	pathGetM3U    = "/get.php"
	pathLive      = "/live"
	pathMovie     = "/movie"
	pathSeries    = "/series"

	actionLiveCategories   = "get_live_categories"
	actionLiveStreams      = "get_live_streams"
	actionVODCategories    = "get_vod_categories"
	actionVODStreams       = "get_vod_streams"
	actionSeriesCategories = "get_series_categories"
	actionSeries           = "get_series"
	actionShortEPG         = "get_short_epg"
)

// maxErrorBody bounds how much of an error response is echoed into the
// returned error.
const maxErrorBody = 1024

// Client is an Xtream Codes API client bound to one credential.
type Client struct {
	// BaseURL is the server base URL, e.g. "http://example.com:8080".
	BaseURL string

	// Username and Password identify the credential.
	Username string
	Password string

	// HTTPClient performs requests. Nil falls back to a client with
	// DefaultTimeout.
	HTTPClient *http.Client

	// UserAgent is sent with every request. Some providers reject the Go
	// default agent.
	UserAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout replaces the HTTP client with one using the given timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient = &http.Client{Timeout: d} }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.UserAgent = ua }
}

// NewClient creates a client for the given server and credential.
func NewClient(baseURL, username, password string, opts ...Option) *Client {
	c := &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		Username:   username,
		Password:   password,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiURL builds a player_api.php URL for an action.
func (c *Client) apiURL(action string, extra url.Values) string {
	params := url.Values{}
	params.Set("username", c.Username)
	params.Set("password", c.Password)
	if action != "" {
		params.Set("action", action)
	}
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	return c.BaseURL + pathPlayerAPI + "?" + params.Encode()
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// get performs a GET and decodes the JSON response into target.
func (c *Client) get(ctx context.Context, requestURL string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Authenticate verifies the credential and returns account and server
// information, including the provider's max_connections cap.
func (c *Client) Authenticate(ctx context.Context) (*AuthInfo, error) {
	var info AuthInfo
	if err := c.get(ctx, c.apiURL("", nil), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetLiveCategories retrieves all live stream categories.
func (c *Client) GetLiveCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.get(ctx, c.apiURL(actionLiveCategories, nil), &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetLiveStreams retrieves live streams, optionally filtered to one
// category.
func (c *Client) GetLiveStreams(ctx context.Context, categoryID string) ([]Stream, error) {
	extra := url.Values{}
	if categoryID != "" {
		extra.Set("category_id", categoryID)
	}
	var streams []Stream
	if err := c.get(ctx, c.apiURL(actionLiveStreams, extra), &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

// GetVODCategories retrieves video-on-demand categories.
func (c *Client) GetVODCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.get(ctx, c.apiURL(actionVODCategories, nil), &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetVODStreams retrieves video-on-demand items.
func (c *Client) GetVODStreams(ctx context.Context, categoryID string) ([]VODStream, error) {
	extra := url.Values{}
	if categoryID != "" {
		extra.Set("category_id", categoryID)
	}
	var streams []VODStream
	if err := c.get(ctx, c.apiURL(actionVODStreams, extra), &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

// GetSeriesCategories retrieves series categories.
func (c *Client) GetSeriesCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.get(ctx, c.apiURL(actionSeriesCategories, nil), &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// GetSeries retrieves series listings.
func (c *Client) GetSeries(ctx context.Context, categoryID string) ([]Series, error) {
	extra := url.Values{}
	if categoryID != "" {
		extra.Set("category_id", categoryID)
	}
	var series []Series
	if err := c.get(ctx, c.apiURL(actionSeries, extra), &series); err != nil {
		return nil, err
	}
	return series, nil
}

// GetShortEPG retrieves the next EPG entries for one stream.
func (c *Client) GetShortEPG(ctx context.Context, streamID, limit int) ([]EPGListing, error) {
	extra := url.Values{}
	extra.Set("stream_id", strconv.Itoa(streamID))
	if limit > 0 {
		extra.Set("limit", strconv.Itoa(limit))
	}
	var resp EPGResponse
	if err := c.get(ctx, c.apiURL(actionShortEPG, extra), &resp); err != nil {
		return nil, err
	}
	return resp.EPGListings, nil
}

// XMLTVURL returns the URL of the provider's full XMLTV feed.
func (c *Client) XMLTVURL() string {
	params := url.Values{}
	params.Set("username", c.Username)
	params.Set("password", c.Password)
	return c.BaseURL + pathXMLTV + "?" + params.Encode()
}

// GetXMLTV opens the provider's XMLTV feed as a streaming reader. The
// caller owns the returned ReadCloser. Feeds run to hundreds of megabytes,
// so parse them streaming.
func (c *Client) GetXMLTV(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.XMLTVURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// LiveStreamURL returns the playback URL for a live stream. Common
// extensions are "ts" and "m3u8".
func (c *Client) LiveStreamURL(streamID int, extension string) string {
	if extension == "" {
		extension = "ts"
	}
	return fmt.Sprintf("%s%s/%s/%s/%d.%s",
		c.BaseURL, pathLive, c.Username, c.Password, streamID, extension)
}

// VODStreamURL returns the playback URL for a VOD item.
func (c *Client) VODStreamURL(vodID int, extension string) string {
	if extension == "" {
		extension = "mp4"
	}
	return fmt.Sprintf("%s%s/%s/%s/%d.%s",
		c.BaseURL, pathMovie, c.Username, c.Password, vodID, extension)
}

// SeriesStreamURL returns the playback URL for a series episode.
func (c *Client) SeriesStreamURL(episodeID int, extension string) string {
	if extension == "" {
		extension = "mkv"
	}
	return fmt.Sprintf("%s%s/%s/%s/%d.%s",
		c.BaseURL, pathSeries, c.Username, c.Password, episodeID, extension)
}

// M3UPlaylistURL returns the provider's own playlist URL.
func (c *Client) M3UPlaylistURL() string {
	params := url.Values{}
	params.Set("username", c.Username)
	params.Set("password", c.Password)
	params.Set("type", "m3u_plus")
	params.Set("output", "ts")
	return c.BaseURL + pathGetM3U + "?" + params.Encode()
}
