package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PeerClient consults a peer host's dashboard over HTTP (spec.md §9 open
// question 2: "a dashboard-consult endpoint is consulted if available").
// It is best-effort: callers treat any error as "consult unavailable,
// fall back to label reads".
type PeerClient struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewPeerClient constructs a PeerClient against baseURL (the configured
// DASHBOARD_URL), with a bounded request timeout.
func NewPeerClient(baseURL string) *PeerClient {
	return &PeerClient{
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		BaseURL:    baseURL,
	}
}

// claimResponse mirrors handleClaim's JSON body.
type claimResponse struct {
	IssueID int64 `json:"issue_id"`
	Claimed bool  `json:"claimed"`
}

// IsClaimed asks the peer dashboard whether it currently holds issueID.
func (c *PeerClient) IsClaimed(ctx context.Context, issueID int64) (bool, error) {
	url := fmt.Sprintf("%s/claims/%d", c.BaseURL, issueID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("dashboard consult: unexpected status %d", resp.StatusCode)
	}

	var body claimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("dashboard consult: decode response: %w", err)
	}
	return body.Claimed, nil
}
