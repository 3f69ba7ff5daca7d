package signer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// DefaultSignMethod is the wallet RPC method used for typed-data signing.
// Clef exposes the same call as "account_signTypedData".
const DefaultSignMethod = "eth_signTypedData_v4"

var (
	ErrNotConnected  = errors.New("no connected wallet address")
	ErrNoAccounts    = errors.New("wallet exposes no accounts")
	ErrBadSignature  = errors.New("wallet returned a malformed signature")
	ErrInvalidWallet = errors.New("invalid wallet address")
)

// Wallet is the connected account that signs typed data. Address returns ""
// while no account is connected.
type Wallet interface {
	Address() string
	ChainID() int64
	SignTypedData(ctx context.Context, data apitypes.TypedData) (string, error)
}

// RPCWallet signs through a JSON-RPC wallet endpoint; keys never leave it.
type RPCWallet struct {
	client  *rpc.Client
	method  string
	timeout time.Duration

	mu      sync.RWMutex
	address common.Address
	chainID int64
	ready   bool
}

type RPCWalletOption func(*RPCWallet)

// WithSignMethod overrides DefaultSignMethod.
func WithSignMethod(method string) RPCWalletOption {
	return func(w *RPCWallet) {
		if method != "" {
			w.method = method
		}
	}
}

// WithTimeout bounds each wallet call.
func WithTimeout(d time.Duration) RPCWalletOption {
	return func(w *RPCWallet) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithAccount pins the signing account instead of asking eth_accounts.
func WithAccount(address string) RPCWalletOption {
	return func(w *RPCWallet) {
		if common.IsHexAddress(address) {
			w.address = common.HexToAddress(address)
			w.ready = true
		}
	}
}

// WithChainID pins the wallet chain instead of asking eth_chainId.
func WithChainID(chainID int64) RPCWalletOption {
	return func(w *RPCWallet) {
		if chainID > 0 {
			w.chainID = chainID
		}
	}
}

// DialRPCWallet connects to the wallet at rawURL.
func DialRPCWallet(ctx context.Context, rawURL string, opts ...RPCWalletOption) (*RPCWallet, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("wallet rpc url is required")
	}
	client, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect wallet rpc: %w", err)
	}
	return NewRPCWallet(client, opts...), nil
}

func NewRPCWallet(client *rpc.Client, opts ...RPCWalletOption) *RPCWallet {
	w := &RPCWallet{
		client:  client,
		method:  DefaultSignMethod,
		timeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Connect resolves the account and chain the wallet signs with. The lock is
// only held to read and store state, never across a wallet call.
func (w *RPCWallet) Connect(ctx context.Context) error {
	w.mu.RLock()
	address, ready, chainID := w.address, w.ready, w.chainID
	w.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if !ready {
		var accounts []common.Address
		if err := w.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
			return fmt.Errorf("failed to list wallet accounts: %w", err)
		}
		if len(accounts) == 0 {
			return ErrNoAccounts
		}
		address = accounts[0]
	}
	if chainID == 0 {
		var id hexutil.Big
		if err := w.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
			return fmt.Errorf("failed to read wallet chain id: %w", err)
		}
		chainID = (*big.Int)(&id).Int64()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.address = address
	w.ready = true
	w.chainID = chainID
	return nil
}

// Disconnect forgets the account; later Address calls return "".
func (w *RPCWallet) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.address = common.Address{}
	w.ready = false
}

func (w *RPCWallet) Address() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.ready {
		return ""
	}
	return w.address.Hex()
}

func (w *RPCWallet) ChainID() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chainID
}

// SignTypedData asks the wallet to sign data. Wallet errors, including a
// user rejection, are returned wrapped but unchanged.
func (w *RPCWallet) SignTypedData(ctx context.Context, data apitypes.TypedData) (string, error) {
	w.mu.RLock()
	addr, ready := w.address, w.ready
	w.mu.RUnlock()
	if !ready {
		return "", ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var sig hexutil.Bytes
	if err := w.client.CallContext(ctx, &sig, w.method, addr, data); err != nil {
		return "", fmt.Errorf("wallet %s: %w", w.method, err)
	}
	return EncodeSignature(sig)
}

func (w *RPCWallet) Close() {
	w.client.Close()
}

// EncodeSignature checks a 65-byte [R || S || V] signature, moves V to the
// 27/28 form and hex encodes it.
func EncodeSignature(sig []byte) (string, error) {
	if len(sig) != 65 {
		return "", fmt.Errorf("%w: length %d", ErrBadSignature, len(sig))
	}
	out := make([]byte, 65)
	copy(out, sig)
	if out[64] < 27 {
		out[64] += 27
	}
	return "0x" + common.Bytes2Hex(out), nil
}
