package core

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyUSD is the only currency quotes are issued in.
const CurrencyUSD = "USD"

var nanosPerUnit = decimal.New(1, 9)

// Quote is a shipping price returned by the quote service.
type Quote struct {
	Value decimal.Decimal
}

// NewQuote creates a quote from a decimal value.
func NewQuote(v decimal.Decimal) Quote {
	return Quote{Value: v}
}

// String renders the quote as a plain decimal string, e.g. "5.99".
func (q Quote) String() string {
	return q.Value.String()
}

// Money converts the quote to a USD Money value.
func (q Quote) Money() Money {
	return MoneyFromDecimal(CurrencyUSD, q.Value)
}

// Money is an amount split into whole units and nanos (10^-9 units).
// Units and nanos always carry the same sign.
type Money struct {
	CurrencyCode string `json:"currency_code" example:"USD"`
	Units        int64  `json:"units" example:"5"`
	Nanos        int32  `json:"nanos" example:"990000000"`
}

// MoneyFromDecimal splits a decimal into units and nanos.
// Precision beyond nanos is rounded half away from zero.
func MoneyFromDecimal(currency string, d decimal.Decimal) Money {
	units := d.Truncate(0)
	nanos := d.Sub(units).Mul(nanosPerUnit).Round(0)
	if nanos.Abs().GreaterThanOrEqual(nanosPerUnit) {
		units = units.Add(decimal.NewFromInt(int64(nanos.Sign())))
		nanos = decimal.Zero
	}
	return Money{
		CurrencyCode: currency,
		Units:        units.IntPart(),
		Nanos:        int32(nanos.IntPart()),
	}
}

// Decimal converts the Money value back to a decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Units).Add(decimal.New(int64(m.Nanos), -9))
}

// Address is a shipping destination.
type Address struct {
	StreetAddress string `json:"street_address" example:"1600 Amphitheatre Parkway"`
	City          string `json:"city" example:"Mountain View"`
	State         string `json:"state" example:"CA"`
	Country       string `json:"country" example:"United States"`
	ZipCode       string `json:"zip_code" example:"94043"`
}

// CartItem is a product and the quantity ordered.
type CartItem struct {
	ProductID string `json:"product_id" example:"OLJCESPC7Z"`
	Quantity  int    `json:"quantity" example:"1"`
}

// Order is an inbound request to ship items to an address.
type Order struct {
	Address Address    `json:"address"`
	Items   []CartItem `json:"items"`
}

// Validate checks the required order fields. The returned error lists every problem found.
func (o *Order) Validate() error {
	var problems []string

	required := []struct {
		field string
		value string
	}{
		{"address.street_address", o.Address.StreetAddress},
		{"address.city", o.Address.City},
		{"address.country", o.Address.Country},
		{"address.zip_code", o.Address.ZipCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, r.field+" is required")
		}
	}

	if len(o.Items) == 0 {
		problems = append(problems, "items must not be empty")
	}
	for i, item := range o.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			problems = append(problems, fmt.Sprintf("items[%d].product_id is required", i))
		}
		if item.Quantity < 1 {
			problems = append(problems, fmt.Sprintf("items[%d].quantity must be at least 1", i))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// QuoteRequest asks for the shipping cost of a cart. Only the item count is used for pricing.
type QuoteRequest struct {
	Address Address    `json:"address"`
	Items   []CartItem `json:"items"`
}

// MaxItemCount bounds the total quantity of a quote request.
const MaxItemCount = math.MaxInt32

// ErrTooManyItems is returned by ItemCount when the quantities add up past MaxItemCount.
var ErrTooManyItems = errors.New("total item quantity exceeds the maximum")

// ItemCount returns the total quantity of all items, ignoring non-positive quantities.
func (r *QuoteRequest) ItemCount() (int, error) {
	n := 0
	for _, item := range r.Items {
		if item.Quantity <= 0 {
			continue
		}
		if item.Quantity > MaxItemCount-n {
			return 0, ErrTooManyItems
		}
		n += item.Quantity
	}
	return n, nil
}

// QuoteResponse is the JSON form of a quote.
type QuoteResponse struct {
	CostUSD Money `json:"cost_usd"`
}

// ShipmentConfirmation acknowledges an accepted order.
type ShipmentConfirmation struct {
	TrackingID string `json:"tracking_id" example:"6f1c1b9e-2a0e-4d1e-9a57-0d5b8f7c9e21"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
