package catalog

import "time"

// StockDepletedEvent is emitted when a sale takes a product's stock to zero.
type StockDepletedEvent struct {
	ProductID  string
	Slug       string
	Name       string
	SoldCount  int
	OccurredAt time.Time
}

func (StockDepletedEvent) EventName() string { return "catalog.stock_depleted" }

func NewStockDepletedEvent(p *Product) StockDepletedEvent {
	return StockDepletedEvent{
		ProductID:  p.ID,
		Slug:       p.Slug,
		Name:       p.Name,
		SoldCount:  p.SoldCount,
		OccurredAt: time.Now().UTC(),
	}
}
