package strategy

import (
	"fmt"

	"github.com/jumpei00/gocryptobacktest/app/models"
	"github.com/jumpei00/gocryptobacktest/backtest"
)

// DCA invests a fixed quote-currency amount at regular intervals
type DCA struct {
	params map[string]float64
}

// NewDCA is constructor of DCA
func NewDCA() *DCA {
	s := &DCA{}
	s.SetParams(nil)
	return s
}

// Name implements Strategy
func (s *DCA) Name() string { return "dca_strategy" }

// Parameters implements Strategy
func (s *DCA) Parameters() []ParamSpec {
	return []ParamSpec{
		{Name: "daily_investment", DisplayName: "Daily Investment", Default: 0},
		{Name: "monthly_investment", DisplayName: "Monthly Investment", Default: 100},
	}
}

// RiskParameters implements Strategy
func (s *DCA) RiskParameters() []ParamSpec { return nil }

// SetParams implements Strategy
func (s *DCA) SetParams(params map[string]float64) {
	s.params = resolveParams(s.Name(), params, s.Parameters())
}

// GenerateSignals buys the daily amount at every midnight bar and the monthly
// amount on the first of each month, the monthly buy replacing the daily one
func (s *DCA) GenerateSignals(cframe *models.CandleFrame) ([]backtest.Signal, error) {
	if len(cframe.Candles) == 0 {
		return nil, fmt.Errorf("no candles for %s", cframe.Symbol)
	}

	var signals []backtest.Signal
	for i := 1; i < len(cframe.Candles); i++ {
		ts := cframe.Candles[i].Timestamp()
		if ts.Hour() != 0 || ts.Minute() != 0 {
			continue
		}

		value := s.params["daily_investment"]
		if ts.Day() == 1 {
			value = s.params["monthly_investment"]
		}

		signals = append(signals, backtest.Signal{
			Timestamp: ts,
			Action:    backtest.Buy,
			Params:    backtest.Params{QuoteValue: value},
		})
	}

	return signals, nil
}
