package pumpportal

import (
	"encoding/json"
	"fmt"
)

// Transaction types carried on the stream.
const (
	TxTypeCreate = "create"
	TxTypeBuy    = "buy"
	TxTypeSell   = "sell"
)

// Launch is a token creation event.
type Launch struct {
	Mint            string
	Name            string
	Symbol          string
	Creator         string
	TxSignature     string
	InitialBuySOL   float64
	MarketCapSOL    float64
	BondingCurveKey string
	Pool            string
	ReceivedAt      int64 // Unix ms
}

// Trade is a buy or sell event for a tracked token.
type Trade struct {
	Mint         string
	TxSignature  string
	Trader       string
	Side         string // "buy" | "sell"
	SOLAmount    float64
	TokenAmount  float64
	MarketCapSOL float64
	ReceivedAt   int64 // Unix ms
}

// rawMessage is the superset of fields the stream sends for both
// creations and trades. Service notices (subscription confirmations)
// arrive with an empty txType and a message field instead.
type rawMessage struct {
	Signature       string  `json:"signature"`
	Mint            string  `json:"mint"`
	TraderPublicKey string  `json:"traderPublicKey"`
	TxType          string  `json:"txType"`
	SOLAmount       float64 `json:"solAmount"`
	TokenAmount     float64 `json:"tokenAmount"`
	InitialBuy      float64 `json:"initialBuy"`
	MarketCapSOL    float64 `json:"marketCapSol"`
	Name            string  `json:"name"`
	Symbol          string  `json:"symbol"`
	BondingCurveKey string  `json:"bondingCurveKey"`
	Pool            string  `json:"pool"`
	Message         string  `json:"message"`
}

// subscribeRequest is the outbound frame for all subscription methods.
type subscribeRequest struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys,omitempty"`
}

// parseMessage decodes one stream frame. It returns either *Launch or
// *Trade; service notices return (nil, "") with no error.
func parseMessage(data []byte, nowMs int64) (interface{}, error) {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode stream message: %w", err)
	}

	switch raw.TxType {
	case TxTypeCreate:
		if raw.Mint == "" {
			return nil, fmt.Errorf("create event without mint")
		}
		return &Launch{
			Mint:            raw.Mint,
			Name:            raw.Name,
			Symbol:          raw.Symbol,
			Creator:         raw.TraderPublicKey,
			TxSignature:     raw.Signature,
			InitialBuySOL:   raw.SOLAmount,
			MarketCapSOL:    raw.MarketCapSOL,
			BondingCurveKey: raw.BondingCurveKey,
			Pool:            raw.Pool,
			ReceivedAt:      nowMs,
		}, nil

	case TxTypeBuy, TxTypeSell:
		if raw.Mint == "" {
			return nil, fmt.Errorf("%s event without mint", raw.TxType)
		}
		return &Trade{
			Mint:         raw.Mint,
			TxSignature:  raw.Signature,
			Trader:       raw.TraderPublicKey,
			Side:         raw.TxType,
			SOLAmount:    raw.SOLAmount,
			TokenAmount:  raw.TokenAmount,
			MarketCapSOL: raw.MarketCapSOL,
			ReceivedAt:   nowMs,
		}, nil

	case "":
		// Subscription confirmations and other service notices.
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown txType %q", raw.TxType)
	}
}
