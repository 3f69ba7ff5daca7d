package model

import (
	"encoding/json"
	"testing"

	"github.com/asterdex/astergate/internal/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionFieldOrder(t *testing.T) {
	cases := []struct {
		action Action
		keys   []string
	}{
		{ApproveAgent{AgentAddress: "0x1"}, []string{"agentName", "agentAddress", "ipWhitelist", "expired", "canSpotTrade", "canPerpTrade", "canWithdraw", "builder", "maxFeeRate", "builderName"}},
		{ApproveBuilder{}, []string{"builder", "maxFeeRate", "builderName"}},
		{UpdateBuilder{}, []string{"builder", "maxFeeRate"}},
		{UpdateAgent{}, []string{"agentAddress", "ipWhitelist", "canSpotTrade", "canPerpTrade", "canWithdraw"}},
		{DelAgent{}, []string{"agentAddress"}},
		{DelBuilder{}, []string{"builder"}},
		{PlaceOrder{}, []string{"symbol", "type", "builder", "feeRate", "side", "quantity"}},
	}
	for _, tc := range cases {
		t.Run(tc.action.PrimaryType(), func(t *testing.T) {
			assert.Equal(t, tc.keys, tc.action.Fields().Keys())
		})
	}
}

func TestApproveAgentFieldKinds(t *testing.T) {
	p := ApproveAgent{Expired: 1867945395040, CanSpotTrade: true}.Fields()

	v, _ := p.Get("expired")
	assert.Equal(t, signer.KindInteger, v.Kind())
	v, _ = p.Get("canSpotTrade")
	assert.Equal(t, signer.KindBool, v.Kind())
	v, _ = p.Get("maxFeeRate")
	assert.Equal(t, signer.KindText, v.Kind())
}

func TestActionValidate(t *testing.T) {
	assert.NoError(t, ApproveBuilder{Builder: "0xb", MaxFeeRate: "0.00001"}.Validate())
	assert.Error(t, ApproveBuilder{Builder: "0xb", MaxFeeRate: "abc"}.Validate())
	assert.Error(t, ApproveBuilder{Builder: "0xb", MaxFeeRate: "-1"}.Validate())
	assert.Error(t, ApproveBuilder{MaxFeeRate: "0.1"}.Validate())

	assert.NoError(t, PlaceOrder{Symbol: "BTCUSDT", Side: "BUY", Quantity: "0.03", FeeRate: "0.00001"}.Validate())
	assert.Error(t, PlaceOrder{Symbol: "BTCUSDT", Side: "HOLD", Quantity: "0.03"}.Validate())
	assert.Error(t, PlaceOrder{Symbol: "BTCUSDT", Side: "SELL"}.Validate())

	assert.Error(t, DelAgent{}.Validate())
	assert.Error(t, ApproveAgent{AgentAddress: "0xa", Expired: -1}.Validate())
}

func TestPayloadFieldsAndForm(t *testing.T) {
	params := signer.NewParams().
		Set("builder", signer.Text("0xb")).
		Set("canWithdraw", signer.Bool(false)).
		Set("user", signer.Text("0xu")).
		Set("nonce", signer.Int(1700000000000001))
	p := &Payload{PrimaryType: "DelBuilder", Params: params, Signature: "0xsig", SignatureChainID: 56}

	assert.Equal(t, []string{"builder", "canWithdraw", "user", "nonce", "signature", "signatureChainId"}, p.Fields().Keys())
	assert.Equal(t, 4, params.Len())

	values := p.Values()
	assert.Equal(t, "false", values.Get("canWithdraw"))
	assert.Equal(t, "1700000000000001", values.Get("nonce"))
	assert.Equal(t, "56", values.Get("signatureChainId"))

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"builder":"0xb","canWithdraw":false,"user":"0xu","nonce":1700000000000001,"signature":"0xsig","signatureChainId":56}`, string(out))
}
