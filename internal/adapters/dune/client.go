package dune

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"unfollowcleaner/internal/adapters/httpapi"
	"unfollowcleaner/internal/core/domain"
	"unfollowcleaner/internal/core/ports"
)

const apiKeyHeader = "X-Dune-API-Key"

// Client implements ports.Analytics using the Dune REST API.
type Client struct {
	baseURL string
	http    *httpapi.Client
}

// NewClient creates a new Client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    httpapi.NewClient(timeout, map[string]string{apiKeyHeader: apiKey}),
	}
}

type executeRequest struct {
	QueryParameters map[string]any `json:"query_parameters,omitempty"`
}

type executionResponse struct {
	ExecutionID string `json:"execution_id"`
	State       string `json:"state"`
	Error       *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r executionResponse) toDomain() *domain.Execution {
	exec := &domain.Execution{
		ID:    r.ExecutionID,
		State: domain.ExecutionState(r.State),
	}
	if r.Error != nil {
		exec.ErrorMessage = r.Error.Message
		if exec.ErrorMessage == "" {
			exec.ErrorMessage = r.Error.Type
		}
	}
	return exec
}

// Execute starts an execution of the saved query with the given parameters.
func (c *Client) Execute(ctx context.Context, queryID string, params map[string]any) (*domain.Execution, error) {
	endpoint := fmt.Sprintf("%s/query/%s/execute", c.baseURL, url.PathEscape(queryID))

	var resp executionResponse
	if err := c.http.Do(ctx, http.MethodPost, endpoint, executeRequest{QueryParameters: params}, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// Status returns the current state of an execution.
func (c *Client) Status(ctx context.Context, executionID string) (*domain.Execution, error) {
	endpoint := fmt.Sprintf("%s/execution/%s/status", c.baseURL, url.PathEscape(executionID))

	var resp executionResponse
	if err := c.http.Do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ExecutionID == "" {
		resp.ExecutionID = executionID
	}
	return resp.toDomain(), nil
}

// Results fetches the rows of a completed execution.
func (c *Client) Results(ctx context.Context, executionID string) ([]ports.Row, error) {
	endpoint := fmt.Sprintf("%s/execution/%s/results", c.baseURL, url.PathEscape(executionID))

	var resp struct {
		Result struct {
			Rows []ports.Row `json:"rows"`
		} `json:"result"`
	}
	if err := c.http.Do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Result.Rows, nil
}
