package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/asterdex/astergate/internal/manager"
	"github.com/asterdex/astergate/internal/model"
	"github.com/asterdex/astergate/internal/pkg/apperrors"
	"github.com/asterdex/astergate/internal/pkg/logger"
	"github.com/asterdex/astergate/internal/pkg/metrics"
	"github.com/asterdex/astergate/internal/signer"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidAction = errors.New("invalid action")
)

// SigningService turns actions into signed parameter bundles. The wallet is
// the only blocking dependency; the generator is shared by every caller.
type SigningService struct {
	wallet     signer.Wallet
	nonces     *manager.NonceGenerator
	domain     signer.Domain
	asterChain string
	baseURL    string

	// pending counts wallet signatures currently awaited.
	pending atomic.Int32
}

type SigningOption func(*SigningService)

// WithBaseURL sets the Aster API root that submission endpoints resolve
// against.
func WithBaseURL(baseURL string) SigningOption {
	return func(s *SigningService) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func NewSigningService(wallet signer.Wallet, nonces *manager.NonceGenerator, domain signer.Domain, asterChain string, opts ...SigningOption) *SigningService {
	if nonces == nil {
		nonces = manager.NewNonceGenerator()
	}
	s := &SigningService{
		wallet:     wallet,
		nonces:     nonces,
		domain:     domain,
		asterChain: asterChain,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Endpoint returns where a signed primaryType bundle is submitted, with URL
// resolved against the configured base URL.
func (s *SigningService) Endpoint(primaryType string) (model.Endpoint, bool) {
	ep, ok := EndpointFor(primaryType)
	if ok && s.baseURL != "" {
		ep.URL = s.baseURL + ep.Path
	}
	return ep, ok
}

func (s *SigningService) Domain() signer.Domain { return s.domain }

// Address is the connected wallet account, or "" when there is none.
func (s *SigningService) Address() string {
	if s.wallet == nil {
		return ""
	}
	return s.wallet.Address()
}

// InProgress reports whether a wallet signature is currently awaited.
func (s *SigningService) InProgress() bool { return s.pending.Load() > 0 }

// SignParams canonicalizes raw, builds the typed-data document for
// primaryType and asks the wallet to sign it. Wallet errors come back as
// SIGNING_FAILED with the original error as the cause.
func (s *SigningService) SignParams(ctx context.Context, primaryType string, raw *signer.Params) (string, error) {
	if s.Address() == "" {
		return "", signer.ErrNotConnected
	}
	doc, err := signer.BuildDocument(s.domain, primaryType, signer.Canonicalize(raw))
	if err != nil {
		return "", apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err)
	}
	return s.sign(ctx, doc)
}

func (s *SigningService) sign(ctx context.Context, doc *signer.Document) (string, error) {
	s.pending.Add(1)
	defer s.pending.Add(-1)

	start := time.Now()
	sig, err := s.wallet.SignTypedData(ctx, doc.TypedData())
	metrics.SigningLatency.WithLabelValues(doc.PrimaryType).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SignaturesTotal.WithLabelValues(doc.PrimaryType, "failed").Inc()
		logger.Warn("wallet signing failed", "primary_type", doc.PrimaryType, "error", err)
		if errors.Is(err, signer.ErrNotConnected) {
			return "", err
		}
		return "", apperrors.New(apperrors.ErrSigningFailed, "wallet failed to sign "+doc.PrimaryType, err)
	}
	metrics.SignaturesTotal.WithLabelValues(doc.PrimaryType, "signed").Inc()
	return sig, nil
}

// SignAction signs action on behalf of the connected wallet. Nothing is
// consumed when no account is connected: the nonce generator is untouched and
// the wallet is not called.
func (s *SigningService) SignAction(ctx context.Context, action model.Action) (*model.Payload, error) {
	user := s.Address()
	if user == "" {
		return nil, signer.ErrNotConnected
	}

	nonce := s.nextNonce()
	params := ActionParams(action, s.asterChain, user, nonce)

	sig, err := s.SignParams(ctx, action.PrimaryType(), params)
	if err != nil {
		return nil, err
	}

	logger.Info("action signed", "primary_type", action.PrimaryType(), "user", user, "nonce", nonce)
	return &model.Payload{
		PrimaryType:      action.PrimaryType(),
		Params:           params,
		Signature:        sig,
		SignatureChainID: s.SignatureChainID(),
	}, nil
}

// PrepareAction issues a nonce and returns the document the user's own wallet
// has to sign. The server wallet is not involved.
func (s *SigningService) PrepareAction(user string, action model.Action) (*model.PreparedAction, error) {
	if !common.IsHexAddress(user) {
		return nil, fmt.Errorf("%w: %q", signer.ErrInvalidWallet, user)
	}
	nonce := s.nextNonce()
	doc, err := s.document(action, user, nonce)
	if err != nil {
		return nil, err
	}
	return &model.PreparedAction{
		PrimaryType: action.PrimaryType(),
		Nonce:       nonce,
		TypedData:   doc,
	}, nil
}

// AssemblePayload rebuilds the document a client signed after
// PrepareAction and checks the signature recovers user.
func (s *SigningService) AssemblePayload(action model.Action, user string, nonce int64, signature string, chainID int64) (*model.Payload, error) {
	if nonce <= 0 {
		return nil, apperrors.NewInvalidRequest("nonce is required")
	}
	doc, err := s.document(action, user, nonce)
	if err != nil {
		return nil, err
	}
	if err := signer.Verify(doc, signature, user); err != nil {
		if errors.Is(err, signer.ErrSignatureMismatch) || errors.Is(err, signer.ErrInvalidWallet) {
			return nil, err
		}
		return nil, apperrors.New(apperrors.ErrInvalidRequest, err.Error(), err)
	}
	if chainID == 0 {
		chainID = s.domain.ChainID
	}
	return &model.Payload{
		PrimaryType:      action.PrimaryType(),
		Params:           ActionParams(action, s.asterChain, user, nonce),
		Signature:        signature,
		SignatureChainID: chainID,
	}, nil
}

// SignMessage signs a free-form text under the Message type. Unlike action
// documents, the domain carries the wallet's own chain.
func (s *SigningService) SignMessage(ctx context.Context, msg string) (string, error) {
	if s.Address() == "" {
		return "", signer.ErrNotConnected
	}
	return s.sign(ctx, s.MessageDocument(msg))
}

// MessageDocument is the document SignMessage asks the wallet to sign.
func (s *SigningService) MessageDocument(msg string) *signer.Document {
	return signer.BuildMessageDocument(signer.NewDomain(s.SignatureChainID()), msg)
}

// Document returns the typed-data document for action as user would sign
// it with nonce. It does not touch the generator.
func (s *SigningService) Document(action model.Action, user string, nonce int64) (*signer.Document, error) {
	return s.document(action, user, nonce)
}

func (s *SigningService) document(action model.Action, user string, nonce int64) (*signer.Document, error) {
	params := ActionParams(action, s.asterChain, user, nonce)
	return signer.BuildDocument(s.domain, action.PrimaryType(), signer.Canonicalize(params))
}

func (s *SigningService) nextNonce() int64 {
	metrics.NoncesIssued.Inc()
	return s.nonces.Next()
}

// SignatureChainID is the chain the wallet signs on, which may differ from
// the domain chain.
func (s *SigningService) SignatureChainID() int64 {
	if s.wallet != nil {
		if id := s.wallet.ChainID(); id > 0 {
			return id
		}
	}
	return s.domain.ChainID
}
