package service

import (
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/shopspring/decimal"
)

// Settlement is the result of balancing received payments against the owed amounts
type Settlement struct {
	// Outstanding is what is still owed per currency. Zero balances are omitted.
	Outstanding money.List `json:"outstanding"`
	// Remain is the surplus left after covering every balance, in main currency
	Remain         money.Money `json:"remain"`
	OwedInMain     money.Money `json:"owed_in_main"`
	ReceivedInMain money.Money `json:"received_in_main"`
}

// Sufficient reports whether the received amount covers the owed amount in main currency
func (s Settlement) Sufficient() bool {
	return s.ReceivedInMain.Amount.GreaterThanOrEqual(s.OwedInMain.Amount)
}

// Reconcile balances payments against the owed vector.
//
// Payments first settle the balance of their own currency; any surplus is converted to
// main currency and pooled. The pool then covers non-main balances in currency code order
// and finally the main currency balance. Every conversion is rounded to two decimals.
func Reconcile(owed, payments money.List, rates money.Rates) (Settlement, error) {
	owed = owed.Normalize()
	payments = payments.Normalize()

	for _, list := range []money.List{owed, payments} {
		for _, m := range list {
			if !rates.Has(m.Currency) {
				return Settlement{}, apperror.NewFieldError("currency", "Currency "+m.Currency+" is not available")
			}
		}
	}

	outstanding := make(map[string]decimal.Decimal, len(owed))
	for _, m := range owed {
		outstanding[m.Currency] = m.Amount
	}

	remain := decimal.Zero
	for _, p := range payments {
		due, isOwed := outstanding[p.Currency]
		if !isOwed {
			inMain, err := rates.ToMain(p)
			if err != nil {
				return Settlement{}, err
			}
			remain = remain.Add(inMain.Amount)
			continue
		}
		if p.Amount.GreaterThanOrEqual(due) {
			outstanding[p.Currency] = decimal.Zero
			inMain, err := rates.ToMain(money.New(p.Amount.Sub(due), p.Currency))
			if err != nil {
				return Settlement{}, err
			}
			remain = remain.Add(inMain.Amount)
			continue
		}
		outstanding[p.Currency] = due.Sub(p.Amount)
	}

	main := rates.Main()
	for _, code := range owed.Currencies() {
		if code == main || !remain.IsPositive() {
			continue
		}
		due := outstanding[code]
		if !due.IsPositive() {
			continue
		}
		rate, err := rates.Rate(code)
		if err != nil {
			return Settlement{}, err
		}
		dueInMain := money.Round(due.Mul(rate))
		if remain.GreaterThanOrEqual(dueInMain) {
			remain = remain.Sub(dueInMain)
			outstanding[code] = decimal.Zero
			continue
		}
		covered := money.Round(remain.Div(rate))
		if covered.GreaterThan(due) {
			covered = due
		}
		outstanding[code] = due.Sub(covered)
		remain = decimal.Zero
	}

	if due := outstanding[main]; due.IsPositive() && remain.IsPositive() {
		if remain.GreaterThanOrEqual(due) {
			remain = remain.Sub(due)
			outstanding[main] = decimal.Zero
		} else {
			outstanding[main] = due.Sub(remain)
			remain = decimal.Zero
		}
	}

	balance := make(money.List, 0, len(outstanding))
	for code, amount := range outstanding {
		balance = append(balance, money.New(amount, code))
	}

	owedInMain, err := rates.SumInMain(owed)
	if err != nil {
		return Settlement{}, err
	}
	receivedInMain, err := rates.SumInMain(payments)
	if err != nil {
		return Settlement{}, err
	}

	return Settlement{
		Outstanding:    balance.Normalize(),
		Remain:         money.New(remain, main),
		OwedInMain:     owedInMain,
		ReceivedInMain: receivedInMain,
	}, nil
}
