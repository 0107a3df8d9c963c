package payments

import (
	"context"
	"fmt"

	"github.com/bookcourier/bookcourier/pkg/model"
	"github.com/bookcourier/bookcourier/pkg/observability"
	"github.com/bookcourier/bookcourier/pkg/storage"
)

// Service records completed payments and their side effects on orders
// and book stock.
type Service struct {
	store   storage.Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates a payment recording service.
func NewService(store storage.Store, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{store: store, logger: logger, metrics: metrics}
}

// Record persists a payment, marks its order paid, and decrements the
// book's stock. The three writes are sequential and not transactional;
// a fault between them leaves partial state that the drift reconciler
// reports. Each later write failing is logged and surfaced, but the
// payment row already exists at that point.
func (s *Service) Record(ctx context.Context, payment *model.Payment) error {
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return fmt.Errorf("record payment: %w", err)
	}

	log := s.logger.FromContext(ctx).WithField("payment_id", payment.ID).
		WithField("order_id", payment.OrderID)

	if err := s.store.MarkOrderPaid(ctx, payment.OrderID); err != nil {
		log.WithError(err).Error("payment recorded but order not marked paid")
		return fmt.Errorf("mark order paid: %w", err)
	}

	if err := s.store.DecrementBookQuantity(ctx, payment.BookID); err != nil {
		log.WithError(err).Error("payment recorded but stock not decremented")
		return fmt.Errorf("decrement stock: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PaymentsRecordedTotal.Inc()
	}
	log.Info("payment recorded", "amount_cents", payment.AmountCents)
	return nil
}
