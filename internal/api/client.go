// Package api is a typed client for the collaborator REST API.
package api

import (
	"bytes"
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

const defaultTimeout = 10 * time.Second

// Stream is the API representation of a live stream.
type Stream struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Title         string     `json:"title"`
	IsLive        bool       `json:"isLive"`
	IsPublic      bool       `json:"isPublic"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	LastHeartbeat *time.Time `json:"lastHeartbeat,omitempty"`
}

// CreateStreamRequest is the body of POST /api/streams.
type CreateStreamRequest struct {
	UserID   string `json:"userId"`
	Title    string `json:"title"`
	IsPublic bool   `json:"isPublic"`
}

// ChatMessage is one persisted chat line as returned by the history endpoint.
type ChatMessage struct {
	ID                 string    `json:"id"`
	StreamID           string    `json:"streamId"`
	UserID             string    `json:"userId"`
	Username           string    `json:"username"`
	AvatarURL          string    `json:"avatarUrl,omitempty"`
	Message            string    `json:"message"`
	Kind               string    `json:"kind"`
	Amount             int64     `json:"amount,omitempty"`
	Currency           string    `json:"currency,omitempty"`
	Color              string    `json:"color,omitempty"`
	IsModeratorMessage bool      `json:"isModeratorMessage"`
	IsPinned           bool      `json:"isPinned"`
	Timestamp          time.Time `json:"timestamp"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api: %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("api: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client talks to the collaborator API at BaseURL.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL. A nil httpClient gets a client
// with a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// ListUserStreams handles GET /api/streams/user?userId=...
func (c *Client) ListUserStreams(ctx context.Context, userID string) ([]Stream, error) {
	var out []Stream
	path := "/api/streams/user?userId=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Heartbeat handles POST /api/streams/{id}/heartbeat. No body is sent.
func (c *Client) Heartbeat(ctx context.Context, streamID string) error {
	return c.do(ctx, http.MethodPost, "/api/streams/"+url.PathEscape(streamID)+"/heartbeat", nil, nil)
}

// CreateStream handles POST /api/streams.
func (c *Client) CreateStream(ctx context.Context, req CreateStreamRequest) (Stream, error) {
	var out Stream
	err := c.do(ctx, http.MethodPost, "/api/streams", req, &out)
	return out, err
}

// StartStream handles PUT /api/streams/{id}/start.
func (c *Client) StartStream(ctx context.Context, streamID string) (Stream, error) {
	var out Stream
	err := c.do(ctx, http.MethodPut, "/api/streams/"+url.PathEscape(streamID)+"/start", nil, &out)
	return out, err
}

// StopStream handles PUT /api/streams/{id}/stop.
func (c *Client) StopStream(ctx context.Context, streamID string) (Stream, error) {
	var out Stream
	err := c.do(ctx, http.MethodPut, "/api/streams/"+url.PathEscape(streamID)+"/stop", nil, &out)
	return out, err
}

// RecentChat handles GET /api/streams/{id}/chat?limit=N, oldest first.
func (c *Client) RecentChat(ctx context.Context, streamID string, limit int) ([]ChatMessage, error) {
	var out []ChatMessage
	path := "/api/streams/" + url.PathEscape(streamID) + "/chat"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}
