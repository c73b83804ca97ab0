package statestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hedge-machine/models"
	"hedge-machine/services"
)

// Client talks to a remote state store service. It satisfies Store, so the
// pipeline does not care whether the state lives in-process or out.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the state store at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Get fetches the current state. Returns ErrStateAbsent when the service has
// nothing stored.
func (c *Client) Get(ctx context.Context) (*models.AgentState, error) {
	// Absence is a normal outcome and must not count as a breaker failure,
	// so it maps to a nil state inside the breaker and to ErrStateAbsent out
	// here.
	state, err := services.WithCircuitBreaker(ctx, services.BreakerStateStore, func() (*models.AgentState, error) {
		var state *models.AgentState

		err := services.WithRetry(ctx, services.DefaultRetryConfig, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/state", nil)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to fetch state: %w", err)
			}
			defer resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusOK:
				var decoded models.AgentState
				if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
					return fmt.Errorf("failed to decode state: %w", err)
				}
				state = &decoded
				return nil
			case http.StatusNotFound:
				state = nil
				return nil
			default:
				return fmt.Errorf("state store returned status %d", resp.StatusCode)
			}
		})
		return state, err
	})
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrStateAbsent
	}
	return state, nil
}

// Set replaces the stored state. The service acknowledges only after the
// write is durable.
func (c *Client) Set(ctx context.Context, state *models.AgentState) error {
	if state == nil {
		return fmt.Errorf("state must not be nil")
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	_, err = services.WithCircuitBreaker(ctx, services.BreakerStateStore, func() (struct{}, error) {
		err := services.WithRetry(ctx, services.DefaultRetryConfig, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/v1/state", bytes.NewReader(payload))
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to store state: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusNoContent {
				return fmt.Errorf("state store returned status %d", resp.StatusCode)
			}
			return nil
		})
		return struct{}{}, err
	})
	return err
}

// Compile-time interface verification
var _ Store = (*Client)(nil)
