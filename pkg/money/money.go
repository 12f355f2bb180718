package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places every monetary amount is rounded to
const Precision int32 = 2

// Money is an immutable amount in a given currency.
// It is embedded by value wherever an entity needs a monetary field.
type Money struct {
	Amount   decimal.Decimal `gorm:"type:decimal(18,2);default:0" json:"amount"`
	Currency string          `gorm:"size:3" json:"currency"`
}

// New builds a Money rounded to Precision
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: Round(amount), Currency: NormalizeCode(currency)}
}

// FromFloat builds a Money from a float amount
func FromFloat(amount float64, currency string) Money {
	return New(decimal.NewFromFloat(amount), currency)
}

// Zero returns a zero amount in the given currency
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: NormalizeCode(currency)}
}

// Round applies the rounding policy: half away from zero, two decimals
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}

// NormalizeCode upper-cases and trims a currency code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

// IsSet reports whether the money carries a currency and a non-zero amount
func (m Money) IsSet() bool {
	return m.Currency != "" && !m.Amount.IsZero()
}

// Add sums two amounts of the same currency
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("money: cannot add %s to %s", o.Currency, m.Currency)
	}
	return New(m.Amount.Add(o.Amount), m.Currency), nil
}

// Sub substracts an amount of the same currency
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("money: cannot substract %s from %s", o.Currency, m.Currency)
	}
	return New(m.Amount.Sub(o.Amount), m.Currency), nil
}

// Mul multiplies the amount by a factor (quantity, percentage ratio)
func (m Money) Mul(factor decimal.Decimal) Money {
	return New(m.Amount.Mul(factor), m.Currency)
}

// Percent returns pct percent of the amount
func (m Money) Percent(pct decimal.Decimal) Money {
	return New(m.Amount.Mul(pct).Div(decimal.NewFromInt(100)), m.Currency)
}

func (m Money) String() string {
	return m.Amount.StringFixed(Precision) + " " + m.Currency
}

// List is an ordered list of amounts, one entry per currency.
// It is persisted as a JSON column.
type List []Money

// Of builds a normalized List from the given amounts
func Of(items ...Money) List {
	return List(items).Normalize()
}

// Normalize merges entries sharing a currency, rounds them, drops zero
// entries and sorts by currency code so the result never depends on input order.
func (l List) Normalize() List {
	totals := make(map[string]decimal.Decimal, len(l))
	for _, m := range l {
		code := NormalizeCode(m.Currency)
		totals[code] = totals[code].Add(m.Amount)
	}
	out := make(List, 0, len(totals))
	for _, code := range sortedKeys(totals) {
		amount := Round(totals[code])
		if amount.IsZero() {
			continue
		}
		out = append(out, Money{Amount: amount, Currency: code})
	}
	return out
}

// Add appends an amount and normalizes
func (l List) Add(items ...Money) List {
	merged := make(List, 0, len(l)+len(items))
	merged = append(merged, l...)
	merged = append(merged, items...)
	return merged.Normalize()
}

// Get returns the amount held for a currency (zero when absent)
func (l List) Get(currency string) decimal.Decimal {
	code := NormalizeCode(currency)
	total := decimal.Zero
	for _, m := range l {
		if NormalizeCode(m.Currency) == code {
			total = total.Add(m.Amount)
		}
	}
	return total
}

// Currencies returns the sorted set of currency codes in the list
func (l List) Currencies() []string {
	set := make(map[string]decimal.Decimal, len(l))
	for _, m := range l {
		set[NormalizeCode(m.Currency)] = decimal.Zero
	}
	return sortedKeys(set)
}

// Equal compares two lists after normalization
func (l List) Equal(o List) bool {
	a, b := l.Normalize(), o.Normalize()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Currency != b[i].Currency || !a[i].Amount.Equal(b[i].Amount) {
			return false
		}
	}
	return true
}

// Value implements driver.Valuer
func (l List) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *List) Scan(value interface{}) error {
	if value == nil {
		*l = List{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("money: unsupported list column type")
	}
	return json.Unmarshal(data, l)
}

// GormDataType stores the list as jsonb on postgres
func (List) GormDataType() string {
	return "jsonb"
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
