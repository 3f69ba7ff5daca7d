package signer

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrSignatureMismatch = errors.New("signature mismatch")

// Recover returns the address that produced signature over doc.
func Recover(doc *Document, signature string) (common.Address, error) {
	if signature == "" {
		return common.Address{}, fmt.Errorf("signature is required")
	}
	hash, _, err := doc.Digest()
	if err != nil {
		return common.Address{}, err
	}
	rawSig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature encoding")
	}
	if len(rawSig) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length")
	}
	// Normalize V to 0/1 for recovery.
	if rawSig[64] >= 27 {
		rawSig[64] -= 27
	}
	pub, err := crypto.SigToPub(hash, rawSig)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature recovery failed")
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify checks that signature over doc was produced by address.
func Verify(doc *Document, signature string, address string) error {
	if !common.IsHexAddress(address) {
		return ErrInvalidWallet
	}
	recovered, err := Recover(doc, signature)
	if err != nil {
		return err
	}
	if recovered != common.HexToAddress(address) {
		return ErrSignatureMismatch
	}
	return nil
}
