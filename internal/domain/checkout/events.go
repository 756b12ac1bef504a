package checkout

import "time"

type FulfilledLine struct {
	ProductID string
	Quantity  int
}

// FulfilledEvent is published once per paid session after stock was taken.
type FulfilledEvent struct {
	SessionID  string
	UserID     string
	CartID     string
	Lines      []FulfilledLine
	OccurredAt time.Time
}

func (FulfilledEvent) EventName() string { return "checkout.fulfilled" }

func (e FulfilledEvent) Units() int {
	n := 0
	for _, l := range e.Lines {
		n += l.Quantity
	}
	return n
}
