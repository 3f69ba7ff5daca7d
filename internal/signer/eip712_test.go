package signer_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/asterdex/astergate/internal/signer"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approveBuilderParams() *signer.Params {
	return signer.NewParams().
		Set("builder", signer.Text("0xc2af13e1B1de3A015252A115309A0F9DEEDCFa0A")).
		Set("maxFeeRate", signer.Text("0.00001")).
		Set("user", signer.Text("0xUSER")).
		Set("nonce", signer.Int(1700000000000001))
}

func TestBuildDocumentApproveBuilder(t *testing.T) {
	doc, err := signer.BuildDocument(signer.NewDomain(56), "ApproveBuilder", signer.Canonicalize(approveBuilderParams()))
	require.NoError(t, err)

	assert.Equal(t, "ApproveBuilder", doc.PrimaryType)
	assert.Equal(t, []apitypes.Type{
		{Name: "Builder", Type: "string"},
		{Name: "MaxFeeRate", Type: "string"},
		{Name: "User", Type: "string"},
		{Name: "Nonce", Type: "uint256"},
	}, doc.Types["ApproveBuilder"])
	assert.Equal(t, []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}, doc.Types["EIP712Domain"])
	assert.Len(t, doc.Types, 2)

	out, err := json.Marshal(doc.Message)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Builder":"0xc2af13e1B1de3A015252A115309A0F9DEEDCFa0A","MaxFeeRate":"0.00001","User":"0xUSER","Nonce":1700000000000001}`, string(out))

	assert.Equal(t, signer.Domain{
		Name:              "AsterSignTransaction",
		Version:           "1",
		ChainID:           56,
		VerifyingContract: "0x0000000000000000000000000000000000000000",
	}, doc.Domain)
}

func TestBuildDocumentSchemaMatchesMessage(t *testing.T) {
	params := signer.Canonicalize(signer.NewParams().
		Set("zeta", signer.Bool(true)).
		Set("alpha", signer.Int(5)).
		Set("mid", signer.Text("x")).
		Set("addr", signer.Text("0xAbC0000000000000000000000000000000000042")))

	doc, err := signer.BuildDocument(signer.NewDomain(56), "Probe", params)
	require.NoError(t, err)

	names := make([]string, 0)
	types := make([]string, 0)
	for _, f := range doc.Types["Probe"] {
		names = append(names, f.Name)
		types = append(types, f.Type)
	}
	assert.Equal(t, params.Keys(), names)
	assert.Equal(t, []string{"bool", "uint256", "string", "string"}, types)
	assert.True(t, doc.Message.Equal(params))
}

func TestBuildDocumentIndependentCopies(t *testing.T) {
	params := signer.Canonicalize(approveBuilderParams())
	a, err := signer.BuildDocument(signer.NewDomain(56), "ApproveBuilder", params)
	require.NoError(t, err)
	b, err := signer.BuildDocument(signer.NewDomain(56), "ApproveBuilder", params)
	require.NoError(t, err)

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	assert.JSONEq(t, string(ja), string(jb))

	a.Message.Set("User", signer.Text("0xOTHER"))
	a.Types["ApproveBuilder"][0].Type = "address"
	a.Types["EIP712Domain"][0].Name = "mutated"
	a.Domain.ChainID = 1

	v, _ := b.Message.Get("User")
	assert.Equal(t, "0xUSER", v.String())
	assert.Equal(t, "string", b.Types["ApproveBuilder"][0].Type)
	assert.Equal(t, "name", b.Types["EIP712Domain"][0].Name)
	assert.Equal(t, int64(56), b.Domain.ChainID)

	v, _ = params.Get("User")
	assert.Equal(t, "0xUSER", v.String())

	c, err := signer.BuildDocument(signer.NewDomain(56), "ApproveBuilder", params)
	require.NoError(t, err)
	assert.Equal(t, "name", c.Types["EIP712Domain"][0].Name)
}

func TestBuildDocumentRejectsBadPrimaryType(t *testing.T) {
	_, err := signer.BuildDocument(signer.NewDomain(56), "", signer.NewParams())
	assert.ErrorIs(t, err, signer.ErrEmptyPrimaryType)

	_, err = signer.BuildDocument(signer.NewDomain(56), "EIP712Domain", signer.NewParams())
	assert.ErrorIs(t, err, signer.ErrReservedPrimaryType)
}

func TestDocumentTypedData(t *testing.T) {
	doc, err := signer.BuildDocument(signer.NewDomain(56), "ApproveBuilder", signer.Canonicalize(approveBuilderParams()))
	require.NoError(t, err)

	td := doc.TypedData()
	assert.Equal(t, "ApproveBuilder", td.PrimaryType)
	assert.Equal(t, "AsterSignTransaction", td.Domain.Name)
	assert.Equal(t, big.NewInt(56), (*big.Int)(td.Domain.ChainId))
	assert.Equal(t, "0x0000000000000000000000000000000000000000", td.Domain.VerifyingContract)

	nonce, ok := td.Message["Nonce"].(*math.HexOrDecimal256)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(1700000000000001), (*big.Int)(nonce))
	assert.Equal(t, "0.00001", td.Message["MaxFeeRate"])

	hash, raw, err := doc.Digest()
	require.NoError(t, err)
	assert.Len(t, hash, 32)
	assert.Len(t, raw, 66)

	again, _, err := doc.Clone().Digest()
	require.NoError(t, err)
	assert.Equal(t, hash, again)
}

func TestDigestDependsOnFieldOrder(t *testing.T) {
	first := signer.NewParams().Set("A", signer.Text("x")).Set("B", signer.Text("y"))
	second := signer.NewParams().Set("B", signer.Text("y")).Set("A", signer.Text("x"))

	d1, err := signer.BuildDocument(signer.NewDomain(56), "Probe", first)
	require.NoError(t, err)
	d2, err := signer.BuildDocument(signer.NewDomain(56), "Probe", second)
	require.NoError(t, err)

	h1, _, err := d1.Digest()
	require.NoError(t, err)
	h2, _, err := d2.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestBuildMessageDocument(t *testing.T) {
	doc := signer.BuildMessageDocument(signer.NewDomain(97), "hello")
	assert.Equal(t, "Message", doc.PrimaryType)
	assert.Equal(t, []apitypes.Type{{Name: "msg", Type: "string"}}, doc.Types["Message"])
	assert.Equal(t, int64(97), doc.Domain.ChainID)

	_, _, err := doc.Digest()
	assert.NoError(t, err)
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	doc, err := signer.BuildDocument(signer.NewDomain(56), "ApproveBuilder", signer.Canonicalize(approveBuilderParams()))
	require.NoError(t, err)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var back signer.Document
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, doc.PrimaryType, back.PrimaryType)
	assert.Equal(t, doc.Domain, back.Domain)
	assert.Equal(t, doc.Types, back.Types)
	assert.True(t, doc.Message.Equal(back.Message))
}
