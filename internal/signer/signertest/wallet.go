// Package signertest provides an in-memory Wallet for tests.
package signertest

import (
	"context"
	"crypto/ecdsa"
	"sync"

	"github.com/asterdex/astergate/internal/signer"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Wallet signs with a throwaway key. Set Err to simulate a rejection and
// Disconnected to simulate a wallet with no account.
type Wallet struct {
	Key          *ecdsa.PrivateKey
	Chain        int64
	Err          error
	Disconnected bool

	mu    sync.Mutex
	calls []apitypes.TypedData
}

func NewWallet(chainID int64) *Wallet {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return &Wallet{Key: key, Chain: chainID}
}

func (w *Wallet) Address() string {
	if w.Disconnected {
		return ""
	}
	return crypto.PubkeyToAddress(w.Key.PublicKey).Hex()
}

func (w *Wallet) ChainID() int64 { return w.Chain }

func (w *Wallet) SignTypedData(ctx context.Context, data apitypes.TypedData) (string, error) {
	w.mu.Lock()
	w.calls = append(w.calls, data)
	w.mu.Unlock()

	if w.Err != nil {
		return "", w.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return SignTypedData(w.Key, data)
}

// Calls returns every typed-data payload the wallet was asked to sign.
func (w *Wallet) Calls() []apitypes.TypedData {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]apitypes.TypedData, len(w.calls))
	copy(out, w.calls)
	return out
}

// SignTypedData produces a 27/28-form signature of data with key.
func SignTypedData(key *ecdsa.PrivateKey, data apitypes.TypedData) (string, error) {
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return "", err
	}
	return signer.EncodeSignature(sig)
}
