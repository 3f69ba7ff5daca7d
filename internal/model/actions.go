package model

import (
	"fmt"

	"github.com/asterdex/astergate/internal/signer"
	"github.com/shopspring/decimal"
)

// Action is one signable account or trading operation. Fields returns the
// action-specific parameters in signing order; asterChain, user and nonce are
// appended by the signing service.
type Action interface {
	PrimaryType() string
	Fields() *signer.Params
	Validate() error
}

type ApproveAgent struct {
	AgentName    string `json:"agentName"`
	AgentAddress string `json:"agentAddress"`
	IPWhitelist  string `json:"ipWhitelist"`
	Expired      int64  `json:"expired"` // unix millis
	CanSpotTrade bool   `json:"canSpotTrade"`
	CanPerpTrade bool   `json:"canPerpTrade"`
	CanWithdraw  bool   `json:"canWithdraw"`
	Builder      string `json:"builder"`
	MaxFeeRate   string `json:"maxFeeRate"`
	BuilderName  string `json:"builderName"`
}

func (ApproveAgent) PrimaryType() string { return "ApproveAgent" }

func (a ApproveAgent) Fields() *signer.Params {
	return signer.NewParams().
		Set("agentName", signer.Text(a.AgentName)).
		Set("agentAddress", signer.Text(a.AgentAddress)).
		Set("ipWhitelist", signer.Text(a.IPWhitelist)).
		Set("expired", signer.Int(a.Expired)).
		Set("canSpotTrade", signer.Bool(a.CanSpotTrade)).
		Set("canPerpTrade", signer.Bool(a.CanPerpTrade)).
		Set("canWithdraw", signer.Bool(a.CanWithdraw)).
		Set("builder", signer.Text(a.Builder)).
		Set("maxFeeRate", signer.Text(a.MaxFeeRate)).
		Set("builderName", signer.Text(a.BuilderName))
}

func (a ApproveAgent) Validate() error {
	if a.AgentAddress == "" {
		return fmt.Errorf("agentAddress is required")
	}
	if a.Expired < 0 {
		return fmt.Errorf("expired must not be negative")
	}
	return checkDecimal("maxFeeRate", a.MaxFeeRate)
}

type ApproveBuilder struct {
	Builder     string `json:"builder"`
	MaxFeeRate  string `json:"maxFeeRate"`
	BuilderName string `json:"builderName"`
}

func (ApproveBuilder) PrimaryType() string { return "ApproveBuilder" }

func (a ApproveBuilder) Fields() *signer.Params {
	return signer.NewParams().
		Set("builder", signer.Text(a.Builder)).
		Set("maxFeeRate", signer.Text(a.MaxFeeRate)).
		Set("builderName", signer.Text(a.BuilderName))
}

func (a ApproveBuilder) Validate() error {
	if a.Builder == "" {
		return fmt.Errorf("builder is required")
	}
	return checkDecimal("maxFeeRate", a.MaxFeeRate)
}

type UpdateBuilder struct {
	Builder    string `json:"builder"`
	MaxFeeRate string `json:"maxFeeRate"`
}

func (UpdateBuilder) PrimaryType() string { return "UpdateBuilder" }

func (a UpdateBuilder) Fields() *signer.Params {
	return signer.NewParams().
		Set("builder", signer.Text(a.Builder)).
		Set("maxFeeRate", signer.Text(a.MaxFeeRate))
}

func (a UpdateBuilder) Validate() error {
	if a.Builder == "" {
		return fmt.Errorf("builder is required")
	}
	return checkDecimal("maxFeeRate", a.MaxFeeRate)
}

type UpdateAgent struct {
	AgentAddress string `json:"agentAddress"`
	IPWhitelist  string `json:"ipWhitelist"`
	CanSpotTrade bool   `json:"canSpotTrade"`
	CanPerpTrade bool   `json:"canPerpTrade"`
	CanWithdraw  bool   `json:"canWithdraw"`
}

func (UpdateAgent) PrimaryType() string { return "UpdateAgent" }

func (a UpdateAgent) Fields() *signer.Params {
	return signer.NewParams().
		Set("agentAddress", signer.Text(a.AgentAddress)).
		Set("ipWhitelist", signer.Text(a.IPWhitelist)).
		Set("canSpotTrade", signer.Bool(a.CanSpotTrade)).
		Set("canPerpTrade", signer.Bool(a.CanPerpTrade)).
		Set("canWithdraw", signer.Bool(a.CanWithdraw))
}

func (a UpdateAgent) Validate() error {
	if a.AgentAddress == "" {
		return fmt.Errorf("agentAddress is required")
	}
	return nil
}

type DelAgent struct {
	AgentAddress string `json:"agentAddress"`
}

func (DelAgent) PrimaryType() string { return "DelAgent" }

func (a DelAgent) Fields() *signer.Params {
	return signer.NewParams().Set("agentAddress", signer.Text(a.AgentAddress))
}

func (a DelAgent) Validate() error {
	if a.AgentAddress == "" {
		return fmt.Errorf("agentAddress is required")
	}
	return nil
}

type DelBuilder struct {
	Builder string `json:"builder"`
}

func (DelBuilder) PrimaryType() string { return "DelBuilder" }

func (a DelBuilder) Fields() *signer.Params {
	return signer.NewParams().Set("builder", signer.Text(a.Builder))
}

func (a DelBuilder) Validate() error {
	if a.Builder == "" {
		return fmt.Errorf("builder is required")
	}
	return nil
}

type PlaceOrder struct {
	Symbol   string `json:"symbol"`
	Type     string `json:"type"` // MARKET, LIMIT, ...
	Builder  string `json:"builder"`
	FeeRate  string `json:"feeRate"`
	Side     string `json:"side"` // BUY or SELL
	Quantity string `json:"quantity"`
}

func (PlaceOrder) PrimaryType() string { return "PlaceOrder" }

func (a PlaceOrder) Fields() *signer.Params {
	return signer.NewParams().
		Set("symbol", signer.Text(a.Symbol)).
		Set("type", signer.Text(a.Type)).
		Set("builder", signer.Text(a.Builder)).
		Set("feeRate", signer.Text(a.FeeRate)).
		Set("side", signer.Text(a.Side)).
		Set("quantity", signer.Text(a.Quantity))
}

func (a PlaceOrder) Validate() error {
	if a.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if a.Side != "BUY" && a.Side != "SELL" {
		return fmt.Errorf("side must be BUY or SELL")
	}
	if err := checkDecimal("feeRate", a.FeeRate); err != nil {
		return err
	}
	if a.Quantity == "" {
		return fmt.Errorf("quantity is required")
	}
	return checkDecimal("quantity", a.Quantity)
}

// checkDecimal accepts an empty value or a non-negative decimal. The string
// is signed as given, so it is never reformatted.
func checkDecimal(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %q", field, value)
	}
	if d.IsNegative() {
		return fmt.Errorf("%s must not be negative", field)
	}
	return nil
}
