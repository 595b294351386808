package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217). Each school bills in exactly one currency.
type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	KES Currency = "KES"
	UGX Currency = "UGX"
	JPY Currency = "JPY"
)

// DefaultCurrency is used when a school has no configured currency
const DefaultCurrency = INR

var minorUnits = map[Currency]int32{
	INR: 2,
	USD: 2,
	EUR: 2,
	GBP: 2,
	KES: 2,
	UGX: 0,
	JPY: 0,
}

// MinorUnitPlaces returns the number of decimal places of the currency's minor unit.
// Unknown currencies default to 2.
func (c Currency) MinorUnitPlaces() int32 {
	if places, ok := minorUnits[c]; ok {
		return places
	}
	return 2
}

var hundred = decimal.NewFromInt(100)

// Money is an immutable amount in one currency
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustMoney creates Money and panics on an empty currency. For constants and tests.
func MustMoney(amount decimal.Decimal, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoneyFromInt creates Money from whole units
func NewMoneyFromInt(amount int64, currency Currency) (Money, error) {
	return NewMoney(decimal.NewFromInt(amount), currency)
}

// NewMoneyFromString creates Money from a decimal string
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

func (m Money) sameCurrency(other Money, op string) error {
	if m.currency != other.currency {
		return fmt.Errorf("cannot %s money with different currencies: %s and %s", op, m.currency, other.currency)
	}
	return nil
}

// Add returns the sum of both amounts
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other, "add"); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns the difference of both amounts
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other, "subtract"); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Min returns the smaller of both amounts
func (m Money) Min(other Money) (Money, error) {
	if err := m.sameCurrency(other, "compare"); err != nil {
		return Money{}, err
	}
	if other.amount.LessThan(m.amount) {
		return other, nil
	}
	return m, nil
}

// FloorAtZero returns zero when the amount is negative
func (m Money) FloorAtZero() Money {
	if m.amount.IsNegative() {
		return Zero(m.currency)
	}
	return m
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Abs returns a new Money with the absolute value
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// RoundToMinorUnit rounds half-up (away from zero at .5) to the currency's minor unit
func (m Money) RoundToMinorUnit() Money {
	return Money{amount: m.amount.Round(m.currency.MinorUnitPlaces()), currency: m.currency}
}

// Percentage returns percent% of the amount, rounded half-up to the minor unit
func (m Money) Percentage(percent decimal.Decimal) Money {
	raw := Money{amount: m.amount.Mul(percent).Div(hundred), currency: m.currency}
	return raw.RoundToMinorUnit()
}

// Equals returns true if amount and currency are equal
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other, "compare"); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) (bool, error) {
	if err := m.sameCurrency(other, "compare"); err != nil {
		return false, err
	}
	return m.amount.LessThan(other.amount), nil
}

// String returns the amount at minor-unit precision followed by the currency
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(m.currency.MinorUnitPlaces()), m.currency)
}

// Allocate splits the amount into n parts at minor-unit precision.
// Earlier parts absorb the remainder, so parts always sum to the original amount.
func (m Money) Allocate(parts int) ([]Money, error) {
	if parts <= 0 {
		return nil, errors.New("parts must be positive")
	}
	places := m.currency.MinorUnitPlaces()
	unit := decimal.New(1, -places)
	n := decimal.NewFromInt(int64(parts))

	base := m.amount.Div(n).Truncate(places)
	remainder := m.amount.Sub(base.Mul(n))
	extra := remainder.Div(unit).IntPart()

	result := make([]Money, parts)
	for i := range parts {
		share := base
		if int64(i) < extra {
			share = share.Add(unit)
		}
		result[i] = Money{amount: share, currency: m.currency}
	}
	return result, nil
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(m.currency.MinorUnitPlaces()),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if v.Currency == "" {
		v.Currency = DefaultCurrency
	}
	m.amount = amount
	m.currency = v.Currency
	return nil
}

// Value implements driver.Valuer; only the amount is stored, the currency lives on the school
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan implements sql.Scanner
func (m *Money) Scan(value any) error {
	if value == nil {
		m.amount = decimal.Zero
		if m.currency == "" {
			m.currency = DefaultCurrency
		}
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("cannot scan %T into Money: %w", value, err)
	}
	m.amount = d
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}
