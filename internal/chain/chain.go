// Package chain talks to the lending and identity contracts. All writes go
// through the paymaster so users never pay gas themselves.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tytandoteth/magbot-test-mode/internal/config"
	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
)

// Client submits sponsored transactions against the configured contracts.
type Client struct {
	rpcURL           string
	lendingContract  string
	identityContract string
	paymasterURL     string
	paymasterKey     string
	http             *http.Client
}

// NewClient builds a chain client from blockchain and paymaster config.
func NewClient(bc config.BlockchainConfig, pm config.PaymasterConfig) *Client {
	return &Client{
		rpcURL:           bc.RPCURL,
		lendingContract:  bc.LendingContract,
		identityContract: bc.IdentityContract,
		paymasterURL:     pm.URL,
		paymasterKey:     pm.APIKey,
		http:             &http.Client{Timeout: 30 * time.Second},
	}
}

// sponsoredCall is the paymaster's transaction envelope: it signs, sponsors
// and broadcasts the encoded contract call on our behalf.
type sponsoredCall struct {
	To     string         `json:"to"`
	Method string         `json:"method"`
	Args   map[string]any `json:"args"`
}

type sponsoredResult struct {
	TxHash string `json:"txHash"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// IssueLoan opens a loan on the lending desk and returns the transaction
// hash, which doubles as the loan's identifier.
func (c *Client) IssueLoan(ctx context.Context, deskID int64, amountUSD int, durationHours, aprBasisPoints int64) (string, error) {
	started := time.Now()
	res, err := c.submit(ctx, sponsoredCall{
		To:     c.lendingContract,
		Method: "initializeNewLoan",
		Args: map[string]any{
			"deskId":   deskID,
			"amount":   amountUSD,
			"duration": durationHours,
			"aprBps":   aprBasisPoints,
		},
	})
	if err != nil {
		return "", fmt.Errorf("issue loan: %w", err)
	}
	logger.Info(ctx, "chain", "loan.issued",
		slog.Int64("desk_id", deskID),
		slog.Int("amount_usd", amountUSD),
		slog.String("tx_ref", res.TxHash),
		slog.Duration("duration_ms", logger.Took(started)),
	)
	return res.TxHash, nil
}

// MintSBT mints the verification soulbound token for a wallet.
func (c *Client) MintSBT(ctx context.Context, walletAddress string) (string, error) {
	res, err := c.submit(ctx, sponsoredCall{
		To:     c.identityContract,
		Method: "mintVerificationSBT",
		Args:   map[string]any{"to": walletAddress},
	})
	if err != nil {
		return "", fmt.Errorf("mint sbt: %w", err)
	}
	return res.TxHash, nil
}

func (c *Client) submit(ctx context.Context, call sponsoredCall) (sponsoredResult, error) {
	var out sponsoredResult
	raw, err := json.Marshal(call)
	if err != nil {
		return out, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.paymasterURL+"/v1/sponsor", bytes.NewReader(raw))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.paymasterKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.paymasterKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return out, fmt.Errorf("paymaster %s: status %d: %s", call.Method, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, err
	}
	if out.Error != "" {
		return out, fmt.Errorf("paymaster %s: %s", call.Method, out.Error)
	}
	if out.TxHash == "" {
		return out, fmt.Errorf("paymaster %s: empty tx hash", call.Method)
	}
	return out, nil
}
