package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// Gateway calls the external payment provider over HTTP. Every call is
// bounded by the configured timeout so a slow provider cannot hold a payout
// open indefinitely.
type Gateway struct {
	baseURL string
	client  *http.Client
}

// NewGateway creates a Gateway for the provider at baseURL.
func NewGateway(baseURL string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type releaseRequest struct {
	TransactionID string  `json:"transaction_id"`
	ReceiverID    int64   `json:"receiver_id"`
	Amount        float64 `json:"amount"`
}

// Release instructs the provider to pay amount out to the receiver.
// Any non-2xx response is treated as a failed release.
func (g *Gateway) Release(ctx context.Context, transactionID string, receiverID int64, amount float64) error {
	body, err := json.Marshal(releaseRequest{
		TransactionID: transactionID,
		ReceiverID:    receiverID,
		Amount:        amount,
	})
	if err != nil {
		return fmt.Errorf("encode release request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/releases", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build release request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment provider: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}
	return nil
}
