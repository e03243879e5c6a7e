package config

import (
	"github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// Config represents config info
var Config ConfList

// ConfList has contents of config.ini
type ConfList struct {
	DBdriver string
	DBname   string
	Port     int
	IP       string

	// supported trading universe, used by the config API
	Pairs      []string
	Timeframes []string

	// backtest defaults when a request omits them
	InitialCapital float64
	CommissionRate float64
	Timeframe      string
	PeriodDays     int
}

// InitConfig initializes config settings
func InitConfig() {
	conf, err := ini.Load("config.ini")
	if err != nil {
		logrus.Warnf("init file open error: %v", err)
	}

	Config = ConfList{
		DBdriver:       conf.Section("db").Key("driver").String(),
		DBname:         conf.Section("db").Key("name").String(),
		Port:           conf.Section("web").Key("port").MustInt(),
		IP:             conf.Section("web").Key("ip").String(),
		Pairs:          conf.Section("trading").Key("pairs").Strings(","),
		Timeframes:     conf.Section("trading").Key("timeframes").Strings(","),
		InitialCapital: conf.Section("backtest").Key("initial_capital").MustFloat64(10000),
		CommissionRate: conf.Section("backtest").Key("commission_rate").MustFloat64(0.001),
		Timeframe:      conf.Section("backtest").Key("timeframe").MustString("1h"),
		PeriodDays:     conf.Section("backtest").Key("period_days").MustInt(90),
	}
}
