package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
)

// ServiceProvisioner provisions wallets through the account-abstraction
// wallet service. Key material is generated server-side and returned exactly
// once; this process never writes it anywhere.
type ServiceProvisioner struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewServiceProvisioner builds a provisioner for the given wallet service.
func NewServiceProvisioner(baseURL, apiKey string) *ServiceProvisioner {
	return &ServiceProvisioner{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type createWalletResponse struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
	Mnemonic   string `json:"mnemonic"`
}

type balanceResponse struct {
	Balance string `json:"balance"`
	Symbol  string `json:"symbol"`
}

// Create requests a new smart wallet from the service.
func (p *ServiceProvisioner) Create(ctx context.Context) (Credentials, error) {
	started := time.Now()
	var out createWalletResponse
	if err := p.do(ctx, http.MethodPost, "/v1/wallets", nil, &out); err != nil {
		return Credentials{}, fmt.Errorf("create wallet: %w", err)
	}
	if out.Address == "" {
		return Credentials{}, fmt.Errorf("create wallet: empty address in response")
	}
	logger.Info(ctx, "wallet", "wallet.created",
		slog.String("wallet", out.Address),
		slog.Duration("duration_ms", logger.Took(started)),
	)
	return Credentials{
		Address:    out.Address,
		PrivateKey: out.PrivateKey,
		Mnemonic:   out.Mnemonic,
	}, nil
}

// Balance fetches the wallet's stable-token balance for display.
func (p *ServiceProvisioner) Balance(ctx context.Context, address string) (string, error) {
	var out balanceResponse
	path := "/v1/wallets/" + address + "/balance"
	if err := p.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", fmt.Errorf("wallet balance: %w", err)
	}
	if out.Symbol == "" {
		return out.Balance, nil
	}
	return out.Balance + " " + out.Symbol, nil
}

func (p *ServiceProvisioner) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("wallet service %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
