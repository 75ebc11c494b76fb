// Package supabase stores the chat transcript in a Supabase project
// through its PostgREST interface.
package supabase

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

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/domain"
)

const messagesTable = "messages"

type row struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp string          `json:"timestamp"`
	CreatedAt string          `json:"created_at,omitempty"`
}

// Client is a Supabase REST client for the messages table.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a Supabase client for the project at baseURL.
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("client", "supabase").Logger(),
	}
}

// Configured reports whether both URL and key are set
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Insert adds a message.
func (c *Client) Insert(ctx context.Context, role, content string, timestamp time.Time) error {
	if !c.Configured() {
		return domain.ErrNotConfigured
	}

	body, err := json.Marshal(row{
		Role:      role,
		Content:   content,
		Timestamp: timestamp.UTC().Format(time.RFC3339Nano),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.tableURL(nil), bytes.NewReader(body), map[string]string{
		"Prefer": "return=minimal",
	})
	if err != nil {
		return err
	}
	resp.Body.Close()

	c.log.Debug().Str("role", role).Msg("Message inserted")
	return nil
}

// FetchRecent returns up to limit messages, newest first.
func (c *Client) FetchRecent(ctx context.Context, limit int) ([]domain.Message, error) {
	return c.fetch(ctx, "", limit)
}

// FetchByRole returns up to limit messages of one role, newest first.
func (c *Client) FetchByRole(ctx context.Context, role string, limit int) ([]domain.Message, error) {
	return c.fetch(ctx, role, limit)
}

func (c *Client) fetch(ctx context.Context, role string, limit int) ([]domain.Message, error) {
	if !c.Configured() {
		return nil, domain.ErrNotConfigured
	}

	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "timestamp.desc")
	q.Set("limit", strconv.Itoa(limit))
	if role != "" {
		q.Set("role", "eq."+role)
	}

	resp, err := c.do(ctx, http.MethodGet, c.tableURL(q), nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rows []row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	out := make([]domain.Message, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
		if err != nil {
			c.log.Warn().Str("timestamp", r.Timestamp).Msg("Skipping message with unparseable timestamp")
			continue
		}
		out = append(out, domain.Message{
			ID:        rowID(r.ID),
			Role:      r.Role,
			Content:   r.Content,
			Timestamp: ts,
		})
	}
	return out, nil
}

func (c *Client) tableURL(q url.Values) string {
	u := c.baseURL + "/rest/v1/" + messagesTable
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: supabase status %d: %s", domain.ErrExternalUnavailable, resp.StatusCode, string(msg))
	}
	return resp, nil
}

// rowID renders a numeric or string primary key as text
func rowID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
