package core

import "context"

// QuoteProvider fetches shipping quotes from the pricing dependency.
type QuoteProvider interface {
	// GetQuote returns the price of shipping numberOfItems items.
	GetQuote(ctx context.Context, numberOfItems int) (Quote, error)
}

// ShippingService implements the shipping operations exposed over HTTP.
type ShippingService interface {
	// GetQuote returns the cost of shipping the given number of items.
	GetQuote(ctx context.Context, numberOfItems int) (Quote, error)

	// ShipOrder validates the order and returns a confirmation with a new tracking ID.
	ShipOrder(ctx context.Context, order *Order) (*ShipmentConfirmation, error)
}
