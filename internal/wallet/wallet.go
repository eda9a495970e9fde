// Package wallet provisions user wallets. The bot never stores private key
// material: credentials are handed to the transport once and discarded.
package wallet

import "context"

// Credentials are the one-time secrets produced at wallet creation. They are
// shown to the user exactly once and must not be persisted anywhere.
type Credentials struct {
	Address    string
	PrivateKey string
	Mnemonic   string
}

// Provisioner creates wallets and reads balances.
type Provisioner interface {
	Create(ctx context.Context) (Credentials, error)
	Balance(ctx context.Context, address string) (string, error)
}
