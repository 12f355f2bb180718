package money

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Rates holds the exchange rates of a business.
// Each rate is the number of main-currency units one unit of the currency is worth.
type Rates struct {
	main  string
	rates map[string]decimal.Decimal
}

// NewRates builds a rate table. The main currency always has rate 1.
func NewRates(main string, rates map[string]decimal.Decimal) Rates {
	main = NormalizeCode(main)
	table := make(map[string]decimal.Decimal, len(rates)+1)
	for code, rate := range rates {
		table[NormalizeCode(code)] = rate
	}
	table[main] = decimal.NewFromInt(1)
	return Rates{main: main, rates: table}
}

// Main returns the main currency code
func (r Rates) Main() string { return r.main }

// Has reports whether the currency is available
func (r Rates) Has(currency string) bool {
	_, ok := r.rates[NormalizeCode(currency)]
	return ok
}

// Rate returns the exchange rate of a currency
func (r Rates) Rate(currency string) (decimal.Decimal, error) {
	rate, ok := r.rates[NormalizeCode(currency)]
	if !ok {
		return decimal.Zero, fmt.Errorf("money: currency %s is not available", NormalizeCode(currency))
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("money: currency %s has an invalid exchange rate", NormalizeCode(currency))
	}
	return rate, nil
}

// Codes returns every available currency sorted by code
func (r Rates) Codes() []string {
	codes := make([]string, 0, len(r.rates))
	for code := range r.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ToMain converts an amount into main-currency units, rounded to two decimals
func (r Rates) ToMain(m Money) (Money, error) {
	rate, err := r.Rate(m.Currency)
	if err != nil {
		return Money{}, err
	}
	return New(m.Amount.Mul(rate), r.main), nil
}

// FromMain converts a main-currency amount into the target currency, rounded to two decimals
func (r Rates) FromMain(amount decimal.Decimal, target string) (Money, error) {
	rate, err := r.Rate(target)
	if err != nil {
		return Money{}, err
	}
	return New(amount.Div(rate), target), nil
}

// Exchange converts an amount into another currency through the main currency
func (r Rates) Exchange(m Money, target string) (Money, error) {
	if NormalizeCode(m.Currency) == NormalizeCode(target) {
		return New(m.Amount, target), nil
	}
	inMain, err := r.ToMain(m)
	if err != nil {
		return Money{}, err
	}
	return r.FromMain(inMain.Amount, target)
}

// SumInMain converts every entry to the main currency and sums them.
// Each conversion is rounded before accumulation.
func (r Rates) SumInMain(l List) (Money, error) {
	total := decimal.Zero
	for _, m := range l {
		inMain, err := r.ToMain(m)
		if err != nil {
			return Money{}, err
		}
		total = total.Add(inMain.Amount)
	}
	return New(total, r.main), nil
}
