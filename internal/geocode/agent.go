// Package geocode implements the remote geocoding agent client.
package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/linnemanlabs/beacon/internal/pipeline"
)

// Agent invokes an HTTP agent service that can look up incident
// coordinates. The service runs its own tool loop; this client only submits
// an instruction and reads the terminal result.
type Agent struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// New creates an agent client for the given endpoint. apiKey may be empty
// for unauthenticated deployments.
func New(endpoint, apiKey string) *Agent {
	return &Agent{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			// agent lookups can be slow, but a dead host should fail fast
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
			},
		},
	}
}

type invokeRequest struct {
	Instruction string `json:"instruction"`
}

type invokeResponse struct {
	Status string `json:"status"`
	Output string `json:"output"`
}

// Invoke submits one instruction and waits for the agent to finish.
func (a *Agent) Invoke(ctx context.Context, instruction string) (*pipeline.AgentResult, error) {
	body, err := json.Marshal(invokeRequest{Instruction: instruction})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent error %d: %s", resp.StatusCode, string(respBody))
	}

	var out invokeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	status := pipeline.AgentFailed
	if out.Status == "completed" {
		status = pipeline.AgentCompleted
	}
	return &pipeline.AgentResult{Status: status, Output: out.Output}, nil
}
