package models

import "time"

// Bar is one OHLCV sample. Series are ordered by strictly increasing Timestamp.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// BarSeries is the /data response body. The query fields are echoed back.
type BarSeries struct {
	Symbol      string      `json:"symbol"`
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
	Granularity Granularity `json:"granularity"`
	Count       int         `json:"count"`
	Bars        []Bar       `json:"bars"`
}
