package neynar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"unfollowcleaner/internal/adapters/httpapi"
	"unfollowcleaner/internal/core/domain"
	"unfollowcleaner/internal/core/ports"
)

const (
	apiKeyHeader = "x-api-key"
	// MaxTargets is the largest target_fids list accepted per request.
	MaxTargets = 100
)

// Client implements ports.FollowManager using the Neynar REST API.
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

type followRequest struct {
	SignerUUID string       `json:"signer_uuid"`
	TargetFIDs []domain.FID `json:"target_fids"`
}

type followResponse struct {
	Success bool `json:"success"`
	Details []struct {
		Success   bool       `json:"success"`
		TargetFID domain.FID `json:"target_fid"`
	} `json:"details"`
}

// Unfollow removes the follow relationship from the signer's account to each target.
func (c *Client) Unfollow(ctx context.Context, signerUUID string, targets []domain.FID) (*ports.UnfollowResult, error) {
	if len(targets) == 0 {
		return &ports.UnfollowResult{Success: true}, nil
	}
	if len(targets) > MaxTargets {
		return nil, fmt.Errorf("too many targets in one request: %d > %d", len(targets), MaxTargets)
	}

	endpoint := c.baseURL + "/farcaster/user/follow"

	var resp followResponse
	req := followRequest{SignerUUID: signerUUID, TargetFIDs: targets}
	if err := c.http.Do(ctx, http.MethodDelete, endpoint, req, &resp); err != nil {
		return nil, err
	}

	result := &ports.UnfollowResult{Success: resp.Success}
	for _, d := range resp.Details {
		result.Details = append(result.Details, ports.TargetResult{FID: d.TargetFID, Success: d.Success})
	}
	return result, nil
}
