package signer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Constants for EIP-712
const (
	EIP712DomainName    = "AsterSignTransaction"
	EIP712DomainVersion = "1"
	DefaultChainID      = 56

	// Aster signs against the zero address; the domain is scoped by chain only.
	ZeroVerifyingContract = "0x0000000000000000000000000000000000000000"

	domainTypeName  = "EIP712Domain"
	messageTypeName = "Message"
)

var (
	ErrEmptyPrimaryType    = errors.New("primary type is required")
	ErrReservedPrimaryType = errors.New("primary type cannot be EIP712Domain")
)

// domainType is the field list of the EIP712Domain struct.
var domainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// Domain is the fixed signing context for a deployment.
type Domain struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	ChainID           int64  `json:"chainId"`
	VerifyingContract string `json:"verifyingContract"`
}

// NewDomain returns the Aster domain for chainID.
func NewDomain(chainID int64) Domain {
	return Domain{
		Name:              EIP712DomainName,
		Version:           EIP712DomainVersion,
		ChainID:           chainID,
		VerifyingContract: ZeroVerifyingContract,
	}
}

func (d Domain) typedDataDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           (*math.HexOrDecimal256)(big.NewInt(d.ChainID)),
		VerifyingContract: common.HexToAddress(d.VerifyingContract).Hex(),
	}
}

// Document is a complete typed-data payload ready for a wallet. It owns all
// of its state; nothing is shared between documents.
type Document struct {
	Domain      Domain
	Types       map[string][]apitypes.Type
	PrimaryType string
	Message     *Params
}

// template is the domain-only starting point every document is copied from.
func template(domain Domain) *Document {
	types := make(map[string][]apitypes.Type, 2)
	types[domainTypeName] = append([]apitypes.Type(nil), domainType...)
	return &Document{
		Domain:  domain,
		Types:   types,
		Message: NewParams(),
	}
}

// Schema derives the primary type's field list from params in insertion order.
func Schema(params *Params) []apitypes.Type {
	fields := make([]apitypes.Type, 0, params.Len())
	params.Each(func(k string, v Value) {
		fields = append(fields, apitypes.Type{Name: k, Type: InferType(v)})
	})
	return fields
}

// BuildDocument assembles the typed-data document for primaryType from
// already canonicalized params. The message is a copy of params.
func BuildDocument(domain Domain, primaryType string, params *Params) (*Document, error) {
	if primaryType == "" {
		return nil, ErrEmptyPrimaryType
	}
	if primaryType == domainTypeName {
		return nil, ErrReservedPrimaryType
	}
	doc := template(domain)
	doc.PrimaryType = primaryType
	doc.Types[primaryType] = Schema(params)
	doc.Message = params.Clone()
	return doc, nil
}

// BuildMessageDocument wraps a free-form text in the single-field Message
// type, for plain message signing.
func BuildMessageDocument(domain Domain, msg string) *Document {
	doc, _ := BuildDocument(domain, messageTypeName, NewParams().Set("msg", Text(msg)))
	return doc
}

// Clone returns an independent copy of the document.
func (d *Document) Clone() *Document {
	types := make(map[string][]apitypes.Type, len(d.Types))
	for name, fields := range d.Types {
		types[name] = append([]apitypes.Type(nil), fields...)
	}
	return &Document{
		Domain:      d.Domain,
		Types:       types,
		PrimaryType: d.PrimaryType,
		Message:     d.Message.Clone(),
	}
}

// TypedData converts the document to go-ethereum's representation used for
// hashing and wallet RPC calls.
func (d *Document) TypedData() apitypes.TypedData {
	types := make(apitypes.Types, len(d.Types))
	for name, fields := range d.Types {
		types[name] = append([]apitypes.Type(nil), fields...)
	}
	message := make(apitypes.TypedDataMessage, d.Message.Len())
	d.Message.Each(func(k string, v Value) {
		message[k] = v.typedDataValue()
	})
	return apitypes.TypedData{
		Types:       types,
		PrimaryType: d.PrimaryType,
		Domain:      d.Domain.typedDataDomain(),
		Message:     message,
	}
}

// Digest returns the EIP-712 signing hash and the raw pre-image.
func (d *Document) Digest() ([]byte, string, error) {
	hash, raw, err := apitypes.TypedDataAndHash(d.TypedData())
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash typed data: %w", err)
	}
	return hash, raw, nil
}

type documentJSON struct {
	Types       map[string][]apitypes.Type `json:"types"`
	PrimaryType string                     `json:"primaryType"`
	Domain      Domain                     `json:"domain"`
	Message     *Params                    `json:"message"`
}

// MarshalJSON writes the wallet-facing form: integers stay JSON numbers and
// message keys keep their order.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentJSON{
		Types:       d.Types,
		PrimaryType: d.PrimaryType,
		Domain:      d.Domain,
		Message:     d.Message,
	})
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var wire documentJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Message == nil {
		wire.Message = NewParams()
	}
	*d = Document{
		Domain:      wire.Domain,
		Types:       wire.Types,
		PrimaryType: wire.PrimaryType,
		Message:     wire.Message,
	}
	return nil
}
