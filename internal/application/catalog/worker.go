package catalog

import (
	"context"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	domcheckout "github.com/Zhima-Mochi/minishop-storefront/internal/domain/checkout"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const workerService = "catalog-worker"

// Worker reacts to post-checkout events with sales telemetry.
type Worker struct {
	subscriber domoutbox.Subscriber
	probe      *application.Probe

	unitsSold observability.Counter // checkout_units_sold_total
	soldOut   observability.Counter // catalog_sold_out_total
}

func NewWorker(subscriber domoutbox.Subscriber, tel observability.Observability) *Worker {
	probe := application.NewProbe(tel, workerService)
	return &Worker{
		subscriber: subscriber,
		probe:      probe,
		unitsSold:  probe.Metrics().Counter(observability.MUnitsSold),
		soldOut:    probe.Metrics().Counter(observability.MSoldOut),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domcheckout.FulfilledEvent{}.EventName(), w.handleCheckoutFulfilled)
	w.subscriber.Subscribe(domain.StockDepletedEvent{}.EventName(), w.handleStockDepleted)
}

func (w *Worker) handleCheckoutFulfilled(ctx context.Context, e domoutbox.Event) (err error) {
	evt, ok := e.(domcheckout.FulfilledEvent)
	if !ok {
		return nil
	}
	_, run := w.probe.Begin(ctx, "catalog.worker.checkout_fulfilled", "CheckoutFulfilled",
		attribute.String("event", e.EventName()),
		attribute.String("checkout.session_id", evt.SessionID),
	)
	defer func() { run.End(err) }()

	units := evt.Units()
	w.unitsSold.Add(float64(units))
	run.With(
		observability.F("session_id", evt.SessionID),
		observability.F("cart_id", evt.CartID),
		observability.F("lines", len(evt.Lines)),
		observability.F("units", units),
	)
	return nil
}

func (w *Worker) handleStockDepleted(ctx context.Context, e domoutbox.Event) (err error) {
	evt, ok := e.(domain.StockDepletedEvent)
	if !ok {
		return nil
	}
	_, run := w.probe.Begin(ctx, "catalog.worker.stock_depleted", "StockDepleted",
		attribute.String("event", e.EventName()),
		attribute.String("catalog.product_id", evt.ProductID),
	)
	defer func() { run.End(err) }()

	w.soldOut.Add(1)
	run.Logger().Warn("product_sold_out",
		observability.F("product_id", evt.ProductID),
		observability.F("slug", evt.Slug),
		observability.F("sold_count", evt.SoldCount),
	)
	return nil
}
