package model

type ScannerSubscription struct {
	NumberOfRows    int
	Instrument      string
	LocationCode    string
	ScanCode        string
	AbovePrice      float64
	BelowPrice      float64
	AboveVolume     int64
	MarketCapAbove  float64
	MarketCapBelow  float64
	StockTypeFilter string
}

type ScanData struct {
	Rank       int
	Details    ContractDetails
	Distance   string
	Benchmark  string
	Projection string
	LegsStr    string
}
