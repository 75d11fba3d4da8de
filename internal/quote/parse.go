package quote

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Prices must fit Money: at most maxIntegerDigits whole digits and no more than
// maxFractionDigits decimal places.
const (
	maxIntegerDigits  = 18
	maxFractionDigits = 18
)

var (
	errEmptyBody     = errors.New("empty body")
	errNegativePrice = errors.New("price is negative")
	errPriceTooLarge = errors.New("price is out of range")
	errTooPrecise    = errors.New("price has too many decimal places")
)

// ParseQuote extracts a price from a quote service response body.
//
// Accepted forms, after trimming whitespace: a bare numeric token ("5.99"), a JSON number,
// a JSON string holding a number ("\"5.99\""), or, when valuePath is set, a JSON document in
// which the gjson path selects one of those values.
func ParseQuote(body []byte, valuePath string) (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return decimal.Zero, errEmptyBody
	}

	raw := string(trimmed)
	switch {
	case valuePath != "":
		if !gjson.ValidBytes(trimmed) {
			return decimal.Zero, fmt.Errorf("body is not valid JSON")
		}
		result := gjson.GetBytes(trimmed, valuePath)
		if !result.Exists() {
			return decimal.Zero, fmt.Errorf("path %q not found in body", valuePath)
		}
		value, err := scalar(result)
		if err != nil {
			return decimal.Zero, fmt.Errorf("path %q: %w", valuePath, err)
		}
		raw = value
	case trimmed[0] == '"':
		if !gjson.ValidBytes(trimmed) {
			return decimal.Zero, fmt.Errorf("unterminated JSON string")
		}
		value, err := scalar(gjson.ParseBytes(trimmed))
		if err != nil {
			return decimal.Zero, err
		}
		raw = value
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", truncate(raw, 64))
	}
	if price.IsNegative() {
		return decimal.Zero, errNegativePrice
	}
	if err := checkRange(price); err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

// checkRange works on the exponent and coefficient only; rescaling a value such as
// 1e50000000 would allocate the full expansion.
func checkRange(price decimal.Decimal) error {
	exp := int64(price.Exponent())
	if exp > maxIntegerDigits {
		return errPriceTooLarge
	}
	if exp < -maxFractionDigits {
		return errTooPrecise
	}
	if !price.IsZero() && int64(price.NumDigits())+exp > maxIntegerDigits {
		return errPriceTooLarge
	}
	return nil
}

func scalar(r gjson.Result) (string, error) {
	switch r.Type {
	case gjson.Number:
		return r.Raw, nil
	case gjson.String:
		return r.Str, nil
	default:
		return "", fmt.Errorf("expected number or string, got %s", r.Type)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
