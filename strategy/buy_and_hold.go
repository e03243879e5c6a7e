package strategy

import (
	"fmt"

	"github.com/jumpei00/gocryptobacktest/app/models"
	"github.com/jumpei00/gocryptobacktest/backtest"
)

// BuyAndHold buys at the first bar and holds until the last
type BuyAndHold struct {
	params map[string]float64
}

// NewBuyAndHold is constructor of BuyAndHold
func NewBuyAndHold() *BuyAndHold {
	s := &BuyAndHold{}
	s.SetParams(nil)
	return s
}

// Name implements Strategy
func (s *BuyAndHold) Name() string { return "buy_and_hold" }

// Parameters implements Strategy
func (s *BuyAndHold) Parameters() []ParamSpec {
	return []ParamSpec{
		{Name: "portion_buy", DisplayName: "Buy Portion", Default: 0.5},
		{Name: "portion_sell", DisplayName: "Sell Portion", Default: 1.0},
	}
}

// RiskParameters implements Strategy
func (s *BuyAndHold) RiskParameters() []ParamSpec { return nil }

// SetParams implements Strategy
func (s *BuyAndHold) SetParams(params map[string]float64) {
	s.params = resolveParams(s.Name(), params, s.Parameters())
}

// GenerateSignals buys on the first candle and sells the full position on the last
func (s *BuyAndHold) GenerateSignals(cframe *models.CandleFrame) ([]backtest.Signal, error) {
	if len(cframe.Candles) == 0 {
		return nil, fmt.Errorf("no candles for %s", cframe.Symbol)
	}

	first := cframe.Candles[0]
	last := cframe.Candles[len(cframe.Candles)-1]

	return []backtest.Signal{
		{
			Timestamp: first.Timestamp(),
			Action:    backtest.Buy,
			Params:    backtest.Params{Portion: s.params["portion_buy"]},
		},
		{
			Timestamp: last.Timestamp(),
			Action:    backtest.Sell,
			Params:    backtest.Params{Portion: s.params["portion_sell"]},
		},
	}, nil
}
