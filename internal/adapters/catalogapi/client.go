// Package catalogapi holds the JSON HTTP clients for the remote catalog and
// order services.
package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openkiosk/donation-engine/internal/domain/ports"
	pkgerrors "github.com/openkiosk/donation-engine/pkg/errors"
)

// client is the shared request plumbing for both adapters.
type client struct {
	baseURL    string
	authToken  string
	httpClient ports.HTTPClient
	logger     ports.Logger
}

func defaultHTTPClient() ports.HTTPClient {
	return &http.Client{
		Timeout: 30 * time.Second,
	}
}

// makeRequest sends a JSON request and decodes the JSON response. Network
// failures and non-2xx statuses come back as transport-category errors; the
// caller inspects its decoded response for an in-band error message.
func (c *client) makeRequest(ctx context.Context, method, endpoint string, request interface{}, response interface{}) error {
	var body io.Reader
	if request != nil {
		payloadBytes, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payloadBytes)
	}

	url := c.baseURL + endpoint
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.authToken)

	if c.logger != nil {
		c.logger.Debug("making catalog service request",
			ports.String("method", method),
			ports.String("endpoint", endpoint),
		)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.New("NETWORK_ERROR", "failed to reach remote service", pkgerrors.CategoryTransport, true)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode >= 500 {
		return pkgerrors.New("REMOTE_SERVICE_ERROR", "remote service error", pkgerrors.CategoryTransport, true)
	}

	if httpResp.StatusCode >= 400 {
		return pkgerrors.New("REQUEST_REJECTED", "remote service rejected the request", pkgerrors.CategoryTransport, false)
	}

	if err := json.Unmarshal(respBody, response); err != nil {
		return pkgerrors.New("MALFORMED_RESPONSE", "failed to decode remote response", pkgerrors.CategoryTransport, false)
	}

	return nil
}

// inBandError folds an error message carried on an otherwise-successful
// response into a transport error.
func inBandError(message string) error {
	if message == "" {
		return nil
	}
	return pkgerrors.New("REMOTE_ERROR", message, pkgerrors.CategoryTransport, false)
}
