package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/voltfinance/voltage-launchpad/services/launchpad"
)

// wadDecimals is the scale of fractions.
const wadDecimals = 18

// saleManifest is the operator-facing description of a sale. Token amounts
// and fractions are written in human units; floorPrice is reserve tokens
// per whole sale token.
type saleManifest struct {
	Issuer          string `yaml:"issuer"`
	SaleAsset       string `yaml:"saleAsset"`
	SaleDecimals    uint8  `yaml:"saleDecimals"`
	ReserveDecimals uint8  `yaml:"reserveDecimals"`

	PhaseOneStart int64         `yaml:"phaseOneStart"`
	StartIn       time.Duration `yaml:"startIn"`

	TokenAmount           string `yaml:"tokenAmount"`
	IncentivesPercent     string `yaml:"incentivesPercent"`
	FloorPrice            string `yaml:"floorPrice"`
	MaxWithdrawPenalty    string `yaml:"maxWithdrawPenalty"`
	FixedWithdrawPenalty  string `yaml:"fixedWithdrawPenalty"`
	MaxUnstakedAllocation string `yaml:"maxUnstakedAllocation"`
	MaxStakedAllocation   string `yaml:"maxStakedAllocation"`

	UserTimelock   time.Duration `yaml:"userTimelock"`
	IssuerTimelock time.Duration `yaml:"issuerTimelock"`
}

func loadManifest(path string) (*saleManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseManifest(data)
}

func parseManifest(data []byte) (*saleManifest, error) {
	m := &saleManifest{SaleDecimals: 18, ReserveDecimals: 18}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// Body converts the manifest into the API payload. A zero phaseOneStart
// schedules the sale startIn after now.
func (m *saleManifest) Body(now time.Time) (launchpad.CreateSaleBody, error) {
	body := launchpad.CreateSaleBody{
		Issuer:         m.Issuer,
		SaleAsset:      m.SaleAsset,
		PhaseOneStart:  m.PhaseOneStart,
		UserTimelock:   int64(m.UserTimelock / time.Second),
		IssuerTimelock: int64(m.IssuerTimelock / time.Second),
	}
	if body.PhaseOneStart == 0 {
		if m.StartIn <= 0 {
			return body, fmt.Errorf("manifest: phaseOneStart or startIn required")
		}
		body.PhaseOneStart = now.Add(m.StartIn).Unix()
	}
	fields := []struct {
		name     string
		raw      string
		decimals uint8
		dst      *string
	}{
		{"tokenAmount", m.TokenAmount, m.SaleDecimals, &body.TokenAmount},
		{"incentivesPercent", m.IncentivesPercent, wadDecimals, &body.IncentivesPercent},
		{"floorPrice", m.FloorPrice, m.ReserveDecimals, &body.FloorPrice},
		{"maxWithdrawPenalty", m.MaxWithdrawPenalty, wadDecimals, &body.MaxWithdrawPenalty},
		{"fixedWithdrawPenalty", m.FixedWithdrawPenalty, wadDecimals, &body.FixedWithdrawPenalty},
		{"maxUnstakedAllocation", m.MaxUnstakedAllocation, m.ReserveDecimals, &body.MaxUnstakedAllocation},
		{"maxStakedAllocation", m.MaxStakedAllocation, m.ReserveDecimals, &body.MaxStakedAllocation},
	}
	for _, f := range fields {
		value, err := toBaseUnits(f.raw, f.decimals)
		if err != nil {
			return body, fmt.Errorf("manifest %s: %w", f.name, err)
		}
		*f.dst = value
	}
	return body, nil
}

// toBaseUnits scales a human decimal amount by 10^decimals. Amounts finer
// than one base unit are rejected rather than rounded.
func toBaseUnits(raw string, decimals uint8) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "0", nil
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q", raw)
	}
	if value.IsNegative() {
		return "", fmt.Errorf("amount %q must not be negative", raw)
	}
	scaled := value.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return "", fmt.Errorf("amount %q has more than %d decimals", raw, decimals)
	}
	return scaled.BigInt().String(), nil
}

// fromBaseUnits renders a base-unit amount in human units.
func fromBaseUnits(raw string, decimals uint8) string {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return value.Shift(-int32(decimals)).String()
}
