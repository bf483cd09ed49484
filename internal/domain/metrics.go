package domain

// MarketMetrics is the running aggregate maintained incrementally by every
// trade-creating operation. AveragePrice is totalValue/totalVolume with
// integer truncation; it is derived, never written directly.
type MarketMetrics struct {
	TotalTrades  uint64 `json:"total_trades"`
	TotalVolume  int64  `json:"total_volume"` // kWh
	TotalValue   int64  `json:"total_value"`  // minor currency units
	AveragePrice int64  `json:"average_price"`
}

// Apply folds one trade into the aggregate.
func (m *MarketMetrics) Apply(energyAmount, totalPrice int64) {
	m.TotalTrades++
	m.TotalVolume += energyAmount
	m.TotalValue += totalPrice
	if m.TotalVolume > 0 {
		m.AveragePrice = m.TotalValue / m.TotalVolume
	}
}

// RegionMetrics scopes market metrics to one region and carries the region's
// participant count from the identity registry.
type RegionMetrics struct {
	Region       string `json:"region"`
	Participants int    `json:"participants"`
	MarketMetrics
}
