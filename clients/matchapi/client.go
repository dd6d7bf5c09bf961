// Package matchapi is the thin client for the match resource API. It does
// serialization and envelope decoding only; polling, retries, and derived
// state live with the caller.
package matchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/pitchside/matchday/clients"
	"github.com/pitchside/matchday/internal/models"
)

type Client struct {
	*clients.BaseClient
}

func NewClient(baseURL string) *Client {
	client := &Client{
		BaseClient: clients.NewBaseClient(baseURL),
	}
	client.SetHeader("Content-Type", "application/json")
	return client
}

// OpenMatchParams are the fixed display labels and kickoff for a new match.
type OpenMatchParams struct {
	Title     string `json:"title"`
	Home      string `json:"home"`
	Away      string `json:"away"`
	KickoffTS int64  `json:"kickoff_ts"`
}

// RecordEventParams describe one event to append.
type RecordEventParams struct {
	Type    models.EventType `json:"type"`
	Minute  *int             `json:"minute,omitempty"`
	Payload json.RawMessage  `json:"payload,omitempty"`
}

// APIError is a rejection from the match service. Message carries the
// server's text verbatim so the UI can surface it unchanged.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("match API error %d: %s", e.Status, e.Message)
}

// envelope is the wire shape of every match API response.
type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

type openMatchRequest struct {
	FixtureID uuid.UUID `json:"fixture_id"`
	OpenMatchParams
}

// OpenMatch creates the match resource for a fixture. The service rejects a
// second open for the same fixture.
func (c *Client) OpenMatch(ctx context.Context, fixtureID uuid.UUID, params OpenMatchParams) (*models.Match, error) {
	body, err := json.Marshal(openMatchRequest{FixtureID: fixtureID, OpenMatchParams: params})
	if err != nil {
		return nil, fmt.Errorf("marshal open match request: %w", err)
	}
	status, respBody, err := c.Post(ctx, "/api/matches", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return decodeMatch(status, respBody)
}

// GetTally fetches a fresh full snapshot. Idempotent and safe to call
// repeatedly; a transport failure returns an error without any side effect.
func (c *Client) GetTally(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	status, respBody, err := c.Get(ctx, "/api/matches/"+matchID.String())
	if err != nil {
		return nil, err
	}
	return decodeMatch(status, respBody)
}

// RecordEvent appends one event. The service rejects writes to a closed
// match.
func (c *Client) RecordEvent(ctx context.Context, matchID uuid.UUID, params RecordEventParams) (*models.Match, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal record event request: %w", err)
	}
	status, respBody, err := c.Post(ctx, "/api/matches/"+matchID.String()+"/events", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return decodeMatch(status, respBody)
}

// CloseMatch ends the match. Closing an already-closed match is a no-op
// success.
func (c *Client) CloseMatch(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	status, respBody, err := c.Post(ctx, "/api/matches/"+matchID.String()+"/close", nil)
	if err != nil {
		return nil, err
	}
	return decodeMatch(status, respBody)
}

func decodeMatch(status int, body []byte) (*models.Match, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response envelope (status %d): %w", status, err)
	}
	if !env.OK {
		return nil, &APIError{Status: status, Message: env.Error}
	}
	var match models.Match
	if err := json.Unmarshal(env.Data, &match); err != nil {
		return nil, fmt.Errorf("decode match snapshot: %w", err)
	}
	return &match, nil
}
