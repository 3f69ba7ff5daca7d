package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/asterdex/astergate/internal/config"
	"github.com/asterdex/astergate/internal/manager"
	"github.com/asterdex/astergate/internal/middleware"
	"github.com/asterdex/astergate/internal/model"
	"github.com/asterdex/astergate/internal/service"
	"github.com/asterdex/astergate/internal/signer"
	"github.com/asterdex/astergate/internal/signer/signertest"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testGateway struct {
	router *gin.Engine
	wallet *signertest.Wallet
	nonces *manager.NonceGenerator
	audit  *service.AuditService
}

func newTestGateway(t *testing.T, cfg *config.Config) *testGateway {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if cfg == nil {
		cfg = &config.Config{}
	}

	wallet := signertest.NewWallet(56)
	nonces := manager.NewNonceGenerator(manager.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))
	signing := service.NewSigningService(wallet, nonces, signer.NewDomain(56), "Mainnet",
		service.WithBaseURL(cfg.Aster.BaseURL))
	audit, err := service.NewAuditService("", nil)
	require.NoError(t, err)
	t.Cleanup(audit.Close)

	r := gin.New()
	RegisterRoutes(r, cfg, RouterDeps{
		Signing:     signing,
		Audit:       audit,
		Idempotency: middleware.NewInMemIdempotencyStore(0),
		Limiters:    middleware.NewClientLimiters(0, 0),
	})
	return &testGateway{router: r, wallet: wallet, nonces: nonces, audit: audit}
}

func (g *testGateway) post(t *testing.T, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func TestSignActionEndpoint(t *testing.T) {
	g := newTestGateway(t, nil)

	w := g.post(t, "/v1/actions/DelBuilder/sign", map[string]interface{}{
		"params": map[string]interface{}{"builder": "0xc2af13e1B1de3A015252A115309A0F9DEEDCFa0A"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		PrimaryType string          `json:"primary_type"`
		Endpoint    model.Endpoint  `json:"endpoint"`
		Payload     json.RawMessage `json:"payload"`
		Form        string          `json:"form"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "DelBuilder", resp.PrimaryType)
	assert.Equal(t, model.Endpoint{Method: http.MethodDelete, Path: "/fapi/v3/builder"}, resp.Endpoint)

	payload := signer.NewParams()
	require.NoError(t, json.Unmarshal(resp.Payload, payload))
	assert.Equal(t, []string{"builder", "asterChain", "user", "nonce", "signature", "signatureChainId"}, payload.Keys())

	form, err := url.ParseQuery(resp.Form)
	require.NoError(t, err)
	assert.Equal(t, "1700000000000000", form.Get("nonce"))
	assert.Equal(t, g.wallet.Address(), form.Get("user"))
	assert.Equal(t, "56", form.Get("signatureChainId"))
}

func TestSignActionEndpointCarriesSubmissionURL(t *testing.T) {
	g := newTestGateway(t, &config.Config{Aster: config.AsterConfig{BaseURL: "https://fapi.asterdex.com/"}})

	w := g.post(t, "/v1/actions/DelBuilder/sign", map[string]interface{}{
		"params": map[string]interface{}{"builder": "0xc2af13e1B1de3A015252A115309A0F9DEEDCFa0A"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Endpoint model.Endpoint `json:"endpoint"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.Endpoint{
		Method: http.MethodDelete,
		Path:   "/fapi/v3/builder",
		URL:    "https://fapi.asterdex.com/fapi/v3/builder",
	}, resp.Endpoint)
}

func TestSignActionEndpointErrors(t *testing.T) {
	g := newTestGateway(t, nil)

	w := g.post(t, "/v1/actions/Withdraw/sign", map[string]interface{}{"params": map[string]interface{}{}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "UNKNOWN_ACTION")

	w = g.post(t, "/v1/actions/PlaceOrder/sign", map[string]interface{}{
		"params": map[string]interface{}{"symbol": "BTCUSDT", "side": "BUY", "quantity": "lots"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	g.wallet.Err = errors.New("user rejected the request")
	w = g.post(t, "/v1/actions/DelBuilder/sign", map[string]interface{}{"params": map[string]interface{}{"builder": "0xb"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "SIGNING_FAILED")

	g.wallet.Err = nil
	g.wallet.Disconnected = true
	beforeSec, beforeCount := g.nonces.Last()
	w = g.post(t, "/v1/actions/DelBuilder/sign", map[string]interface{}{"params": map[string]interface{}{"builder": "0xb"}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_CONNECTED")
	afterSec, afterCount := g.nonces.Last()
	assert.Equal(t, beforeSec, afterSec)
	assert.Equal(t, beforeCount, afterCount)
}

func TestNonCustodialFlow(t *testing.T) {
	g := newTestGateway(t, nil)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	user := crypto.PubkeyToAddress(key.PublicKey).Hex()
	params := map[string]interface{}{"agentAddress": "0x1E6d9bC5a3cD4b2e7F8a9B0c1D2E3f4A5b6C7d8E", "canSpotTrade": true}

	w := g.post(t, "/v1/actions/UpdateAgent/typed-data", map[string]interface{}{"user": user, "params": params})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var prepared model.PreparedAction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prepared))
	assert.Equal(t, "UpdateAgent", prepared.TypedData.PrimaryType)

	sig, err := signertest.SignTypedData(key, prepared.TypedData.TypedData())
	require.NoError(t, err)

	w = g.post(t, "/v1/actions/UpdateAgent/payload", map[string]interface{}{
		"user": user, "params": params, "nonce": prepared.Nonce, "signature": sig, "signature_chain_id": 56,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), sig)

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	forged, err := signertest.SignTypedData(other, prepared.TypedData.TypedData())
	require.NoError(t, err)
	w = g.post(t, "/v1/actions/UpdateAgent/payload", map[string]interface{}{
		"user": user, "params": params, "nonce": prepared.Nonce, "signature": forged,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SIGNATURE_MISMATCH")
	assert.Empty(t, g.wallet.Calls())
}

func TestSignMessageEndpoint(t *testing.T) {
	g := newTestGateway(t, nil)

	w := g.post(t, "/v1/messages/sign", map[string]string{"msg": "hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.SignMessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	doc := signer.BuildMessageDocument(signer.NewDomain(56), "hello")
	assert.NoError(t, signer.Verify(doc, resp.Signature, g.wallet.Address()))
}

func TestReadOnlyPausesSigning(t *testing.T) {
	g := newTestGateway(t, &config.Config{Server: config.ServerConfig{ReadOnly: true}})

	w := g.post(t, "/v1/actions/DelBuilder/sign", map[string]interface{}{"params": map[string]interface{}{"builder": "0xb"}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, g.wallet.Calls())
}

func TestAuditRecordsRedactedSignature(t *testing.T) {
	g := newTestGateway(t, nil)

	w := g.post(t, "/v1/actions/DelBuilder/sign", map[string]interface{}{"params": map[string]interface{}{"builder": "0xb"}})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/audit?action=DelBuilder", nil)
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var records []model.AuditLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "signed", records[0].Context["status"])
	assert.NotContains(t, records[0].ResponseBody, "signature\":\"0x")
}

func TestWalletStatus(t *testing.T) {
	g := newTestGateway(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/wallet", nil)
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status model.WalletStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Connected)
	assert.Equal(t, g.wallet.Address(), status.Address)
	assert.Equal(t, "AsterSignTransaction", status.Domain.Name)
	assert.Len(t, status.Actions, 7)
}
