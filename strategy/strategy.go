package strategy

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jumpei00/gocryptobacktest/app/models"
	"github.com/jumpei00/gocryptobacktest/backtest"
)

// ParamSpec describes one tunable strategy parameter for the config API
type ParamSpec struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Default     float64 `json:"default"`
}

// Strategy generates trading signals for one symbol's candle frame
type Strategy interface {
	Name() string
	Parameters() []ParamSpec
	RiskParameters() []ParamSpec
	SetParams(params map[string]float64)
	GenerateSignals(cframe *models.CandleFrame) ([]backtest.Signal, error)
}

var registry = map[string]func() Strategy{
	"BuyAndHoldStrategy":            func() Strategy { return NewBuyAndHold() },
	"DCAStrategy":                   func() Strategy { return NewDCA() },
	"RSIStrategy":                   func() Strategy { return NewRSI() },
	"EMACrossoverRSIVolumeStrategy": func() Strategy { return NewEMACrossoverRSIVolume() },
}

// New returns a fresh strategy for class, an unknown class is a configuration error
func New(class string) (Strategy, error) {
	constructor, ok := registry[class]
	if !ok {
		return nil, fmt.Errorf("unknown strategy class: %s", class)
	}
	return constructor(), nil
}

// Info describes a registered strategy for the config API
type Info struct {
	Class          string      `json:"class"`
	Name           string      `json:"name"`
	Parameters     []ParamSpec `json:"parameters"`
	RiskParameters []ParamSpec `json:"risk_parameters"`
}

// Supported lists every registered strategy with its parameter specs
func Supported() []Info {
	classes := []string{
		"BuyAndHoldStrategy",
		"DCAStrategy",
		"RSIStrategy",
		"EMACrossoverRSIVolumeStrategy",
	}

	infos := make([]Info, 0, len(classes))
	for _, class := range classes {
		s := registry[class]()
		infos = append(infos, Info{
			Class:          class,
			Name:           s.Name(),
			Parameters:     s.Parameters(),
			RiskParameters: s.RiskParameters(),
		})
	}
	return infos
}

// resolveParams returns params when every spec is present,
// otherwise the defaults
func resolveParams(name string, params map[string]float64, specs ...[]ParamSpec) map[string]float64 {
	complete := true
	for _, group := range specs {
		for _, spec := range group {
			if _, ok := params[spec.Name]; !ok {
				complete = false
			}
		}
	}

	if complete {
		return params
	}

	logrus.Infof("using default parameters for %v", name)
	defaults := map[string]float64{}
	for _, group := range specs {
		for _, spec := range group {
			defaults[spec.Name] = spec.Default
		}
	}
	return defaults
}
