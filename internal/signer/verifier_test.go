package signer_test

import (
	"testing"

	"github.com/asterdex/astergate/internal/signer"
	"github.com/asterdex/astergate/internal/signer/signertest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyDocumentSignature(t *testing.T) {
	wallet := signertest.NewWallet(56)

	doc, err := signer.BuildDocument(signer.NewDomain(56), "DelBuilder", signer.Canonicalize(signer.NewParams().
		Set("builder", signer.Text("0xc2af13e1B1de3A015252A115309A0F9DEEDCFa0A")).
		Set("user", signer.Text(wallet.Address())).
		Set("nonce", signer.Int(1700000000000000))))
	require.NoError(t, err)

	sig, err := signertest.SignTypedData(wallet.Key, doc.TypedData())
	require.NoError(t, err)

	recovered, err := signer.Recover(doc, sig)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(wallet.Address()), recovered)
	assert.NoError(t, signer.Verify(doc, sig, wallet.Address()))

	wrongAddr := "0x0000000000000000000000000000000000000001"
	assert.ErrorIs(t, signer.Verify(doc, sig, wrongAddr), signer.ErrSignatureMismatch)

	tampered := doc.Clone()
	tampered.Message.Set("Nonce", signer.Int(1700000000000001))
	assert.ErrorIs(t, signer.Verify(tampered, sig, wallet.Address()), signer.ErrSignatureMismatch)

	otherChain := doc.Clone()
	otherChain.Domain.ChainID = 1
	assert.ErrorIs(t, signer.Verify(otherChain, sig, wallet.Address()), signer.ErrSignatureMismatch)
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	doc := signer.BuildMessageDocument(signer.NewDomain(56), "hi")

	_, err := signer.Recover(doc, "")
	assert.Error(t, err)
	_, err = signer.Recover(doc, "0xzz")
	assert.Error(t, err)
	_, err = signer.Recover(doc, "0x1234")
	assert.Error(t, err)
	assert.ErrorIs(t, signer.Verify(doc, "0x1234", "not-an-address"), signer.ErrInvalidWallet)
}
