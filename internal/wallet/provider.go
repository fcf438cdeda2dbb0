// Package wallet binds simulated chain wallets to sessions.
package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Provider is what the app needs from a wallet, whatever holds the keys.
type Provider interface {
	Address() string
	SignTransaction(ctx context.Context, payload []byte) ([]byte, error)
	SendTransaction(ctx context.Context, signed []byte) (string, error)
}

// SimulatedProvider signs with a local ed25519 key and never touches a
// network. Addresses and signatures use Solana's base58 text form.
type SimulatedProvider struct {
	key     ed25519.PrivateKey
	address string
}

func NewSimulatedProvider() (*SimulatedProvider, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return SimulatedProviderFromSeed(seed)
}

func SimulatedProviderFromSeed(seed []byte) (*SimulatedProvider, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("wallet: seed must be %d bytes", ed25519.SeedSize)
	}
	key := ed25519.NewKeyFromSeed(seed)
	return &SimulatedProvider{
		key:     key,
		address: base58.Encode(key.Public().(ed25519.PublicKey)),
	}, nil
}

func (p *SimulatedProvider) Address() string {
	return p.address
}

func (p *SimulatedProvider) Seed() []byte {
	return p.key.Seed()
}

// SignTransaction returns the 64-byte signature followed by the payload.
func (p *SimulatedProvider) SignTransaction(_ context.Context, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, errors.New("wallet: empty transaction")
	}
	sig := ed25519.Sign(p.key, payload)
	out := make([]byte, 0, len(sig)+len(payload))
	out = append(out, sig...)
	return append(out, payload...), nil
}

// SendTransaction checks the signature and returns it as the transaction id.
func (p *SimulatedProvider) SendTransaction(_ context.Context, signed []byte) (string, error) {
	if len(signed) <= ed25519.SignatureSize {
		return "", errors.New("wallet: transaction is not signed")
	}
	sig, payload := signed[:ed25519.SignatureSize], signed[ed25519.SignatureSize:]
	if !ed25519.Verify(p.key.Public().(ed25519.PublicKey), payload, sig) {
		return "", errors.New("wallet: bad signature")
	}
	return base58.Encode(sig), nil
}
