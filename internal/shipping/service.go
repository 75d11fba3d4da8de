// Package shipping implements the shipping operations on top of the quote client.
package shipping

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"shipping/internal/core"
)

// Service implements core.ShippingService. It holds no mutable state.
type Service struct {
	quotes     core.QuoteProvider
	trackingID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithTrackingIDGenerator replaces the random UUID tracking ID generator.
func WithTrackingIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.trackingID = gen
		}
	}
}

// NewService creates a shipping service backed by the given quote provider.
func NewService(quotes core.QuoteProvider, opts ...Option) *Service {
	s := &Service{
		quotes:     quotes,
		trackingID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetQuote returns the quote service's price for numberOfItems items.
func (s *Service) GetQuote(ctx context.Context, numberOfItems int) (core.Quote, error) {
	q, err := s.quotes.GetQuote(ctx, numberOfItems)
	if err != nil {
		return core.Quote{}, err
	}
	slog.DebugContext(ctx, "quote received",
		"items", numberOfItems,
		"quote", q.String(),
		"request_id", core.GetRequestID(ctx),
	)
	return q, nil
}

// ShipOrder validates the order and issues a tracking ID. Nothing is persisted.
func (s *Service) ShipOrder(ctx context.Context, order *core.Order) (*core.ShipmentConfirmation, error) {
	if order == nil {
		return nil, core.NewInvalidOrderPayloadError("order is required", nil)
	}
	if err := order.Validate(); err != nil {
		return nil, core.NewInvalidOrderPayloadError(err.Error(), err)
	}

	confirmation := &core.ShipmentConfirmation{TrackingID: s.trackingID()}
	slog.InfoContext(ctx, "order shipped",
		"tracking_id", confirmation.TrackingID,
		"items", len(order.Items),
		"country", order.Address.Country,
		"request_id", core.GetRequestID(ctx),
	)
	return confirmation, nil
}
