package model

import (
	"encoding/json"
	"net/url"

	"github.com/asterdex/astergate/internal/signer"
)

// ActionRequest is the body of every /v1/actions/:action call. Params holds
// the action's own fields; the remaining fields are used by the
// non-custodial payload flow.
type ActionRequest struct {
	User             string          `json:"user"`
	Params           json.RawMessage `json:"params"`
	Nonce            int64           `json:"nonce,omitempty"`
	Signature        string          `json:"signature,omitempty"`
	SignatureChainID int64           `json:"signature_chain_id,omitempty"`
}

// PreparedAction is handed to a client wallet for signing.
type PreparedAction struct {
	PrimaryType string           `json:"primary_type"`
	Nonce       int64            `json:"nonce"`
	TypedData   *signer.Document `json:"typed_data"`
}

// Endpoint is where the submission layer sends a payload.
type Endpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	URL    string `json:"url,omitempty"`
}

// Payload is the signed parameter bundle: the action's fields with their
// call-boundary names, followed by signature and signatureChainId. Neither of
// the last two is part of the signed message.
type Payload struct {
	PrimaryType      string
	Params           *signer.Params
	Signature        string
	SignatureChainID int64
}

// Fields returns the submission fields in order.
func (p *Payload) Fields() *signer.Params {
	out := p.Params.Clone()
	out.Set("signature", signer.Text(p.Signature))
	out.Set("signatureChainId", signer.Int(p.SignatureChainID))
	return out
}

// Values renders the payload for a form-encoded request.
func (p *Payload) Values() url.Values {
	values := make(url.Values)
	p.Fields().Each(func(k string, v signer.Value) {
		values.Set(k, v.String())
	})
	return values
}

func (p *Payload) MarshalJSON() ([]byte, error) {
	return p.Fields().MarshalJSON()
}

type SignedActionResponse struct {
	PrimaryType string   `json:"primary_type"`
	Endpoint    Endpoint `json:"endpoint"`
	Payload     *Payload `json:"payload"`
	Form        string   `json:"form"`
}

type SignMessageRequest struct {
	Msg string `json:"msg" binding:"required"`
}

type SignMessageResponse struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

type WalletStatus struct {
	Connected         bool          `json:"connected"`
	Address           string        `json:"address,omitempty"`
	ChainID           int64         `json:"chain_id"`
	Domain            signer.Domain `json:"domain"`
	SigningInProgress bool          `json:"signing_in_progress"`
	Actions           []string      `json:"actions"`
}
