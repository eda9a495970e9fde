package wallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// mnemonicWords is a small fixed pool for generated test mnemonics. These
// phrases never control funds.
var mnemonicWords = []string{
	"apple", "banana", "cherry", "dragon", "eagle", "forest",
	"garden", "harbor", "island", "jungle", "kettle", "lantern",
	"meadow", "nectar", "orchid", "pepper", "quartz", "ribbon",
	"sunset", "timber", "umbrella", "violet", "walnut", "zephyr",
}

// MockProvisioner derives deterministic-looking wallets from random UUIDs.
// It serves development mode where no chain is reachable.
type MockProvisioner struct {
	Delay time.Duration
}

// Create produces a fresh mock wallet after a short simulated delay.
func (p *MockProvisioner) Create(ctx context.Context) (Credentials, error) {
	delay := p.Delay
	if delay <= 0 {
		delay = time.Second
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return Credentials{}, ctx.Err()
	}

	seed := uuid.New()
	addr := sha256.Sum256(append([]byte("addr:"), seed[:]...))
	key := sha256.Sum256(append([]byte("key:"), seed[:]...))

	words := make([]string, 12)
	for i := range words {
		words[i] = mnemonicWords[int(seed[i])%len(mnemonicWords)]
	}

	return Credentials{
		Address:    "0x" + hex.EncodeToString(addr[:20]),
		PrivateKey: "0x" + hex.EncodeToString(key[:]),
		Mnemonic:   strings.Join(words, " "),
	}, nil
}

// Balance reports a fixed test balance for any address.
func (p *MockProvisioner) Balance(ctx context.Context, address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("wallet: empty address")
	}
	return "0.00 USDC", nil
}
