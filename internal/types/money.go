// README: Common money value object used across modules; amounts are exact decimals.
package types

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const CurrencyEUR = "EUR"

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// EUR builds a euro amount rounded to the cent (half away from zero).
func EUR(amount decimal.Decimal) Money {
	return Money{Amount: amount.Round(2), Currency: CurrencyEUR}
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// String returns the amount with exactly two decimals, e.g. "121.00".
func (m Money) String() string {
	return m.Amount.StringFixed(2)
}

// Format renders the amount as fr-FR currency text, e.g. "1 234,50 €".
func (m Money) Format() string {
	f, _ := m.Amount.Round(2).Float64()
	p := message.NewPrinter(language.French)
	return p.Sprintf("%v", number.Decimal(f, number.Scale(2))) + "\u00a0" + currencySymbol(m.Currency)
}

func currencySymbol(code string) string {
	switch code {
	case "", CurrencyEUR:
		return "€"
	default:
		return code
	}
}
