package payments

import (
	"context"
	"fmt"

	"github.com/bookcourier/bookcourier/pkg/observability"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

// Reconciler detects payments whose follow-up writes never landed, that
// is payments pointing at a missing or still-unpaid order. It reports
// drift through logs and a gauge; it never mutates data.
type Reconciler struct {
	store   storage.PaymentStore
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewReconciler creates a drift reconciler over the payment store.
func NewReconciler(store storage.PaymentStore, logger *observability.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{store: store, logger: logger, metrics: metrics}
}

// Run performs one reconciliation sweep and returns the number of
// drifting payments found.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	drifting, err := r.store.ListDriftingPayments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list drifting payments: %w", err)
	}

	for _, p := range drifting {
		r.logger.Warn("payment drift detected",
			"payment_id", p.ID,
			"order_id", p.OrderID,
			"email", p.UserEmail,
			"amount_cents", p.AmountCents,
		)
	}

	if r.metrics != nil {
		r.metrics.PaymentDriftDetected.Set(float64(len(drifting)))
	}
	if len(drifting) == 0 {
		r.logger.Debug("payment reconciliation clean")
	} else {
		r.logger.Warn("payment reconciliation found drift", "count", len(drifting))
	}
	return len(drifting), nil
}
