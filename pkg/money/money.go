// Package money holds the fixed-point arithmetic and currency helpers shared by
// the amortization calculator and the payment ledger.
//
// Amounts are stored and displayed with two decimal places. Intermediate values
// (monthly rates, annuity factors) keep IntermediatePrecision digits and are
// rounded half-up only when a schedule row or payment total is finalized.
package money

import (
	"strings"

	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// Scale is the number of decimal places kept for stored amounts.
	Scale = 2
	// IntermediatePrecision bounds the digits carried by unrounded values.
	IntermediatePrecision = 16
)

var (
	Hundred = decimal.NewFromInt(100)
	Twelve  = decimal.NewFromInt(12)
	One     = decimal.NewFromInt(1)
)

// Round rounds half-up to Scale decimals.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Div divides a by b, returning a validation error naming field when b is zero.
func Div(a, b decimal.Decimal, field string) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, customError.NewValidationError(field, "division by zero")
	}
	return a.DivRound(b, IntermediatePrecision), nil
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// MonthlyRate converts an annual percentage (12 for 12%) to a monthly fraction.
func MonthlyRate(annualPercent decimal.Decimal) decimal.Decimal {
	return annualPercent.DivRound(Hundred.Mul(Twelve), IntermediatePrecision)
}

// Compound returns base^n for n >= 0, keeping IntermediatePrecision digits per step.
func Compound(base decimal.Decimal, n int) decimal.Decimal {
	result := One
	for i := 0; i < n; i++ {
		result = result.Mul(base).Round(IntermediatePrecision)
	}
	return result
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// FormatNumber renders d with two decimals and the given separators.
func FormatNumber(d decimal.Decimal, decimalSep, thousandsSep string) string {
	fixed := Round(d).StringFixed(Scale)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(thousandsSep)
		}
		b.WriteRune(r)
	}

	out := b.String() + decimalSep + fracPart
	if negative {
		return "-" + out
	}
	return out
}

// Currency describes a supported currency.
type Currency struct {
	Code   string
	Name   string
	Symbol string
}

// Currencies lists the codes the application can display.
var Currencies = map[string]Currency{
	"PEN": {Code: "PEN", Name: "Soles Peruanos", Symbol: "S/"},
	"USD": {Code: "USD", Name: "Dólares Estadounidenses", Symbol: "$"},
	"EUR": {Code: "EUR", Name: "Euros", Symbol: "€"},
	"BRL": {Code: "BRL", Name: "Reales Brasileños", Symbol: "R$"},
	"COP": {Code: "COP", Name: "Pesos Colombianos", Symbol: "$"},
	"CLP": {Code: "CLP", Name: "Pesos Chilenos", Symbol: "$"},
	"ARS": {Code: "ARS", Name: "Pesos Argentinos", Symbol: "$"},
	"MXN": {Code: "MXN", Name: "Pesos Mexicanos", Symbol: "$"},
}

// Symbol returns the display symbol for code, "$" when unknown.
func Symbol(code string) string {
	if c, ok := Currencies[strings.ToUpper(code)]; ok {
		return c.Symbol
	}
	return "$"
}

// Format renders amount as "<symbol> 1.234,56".
func Format(amount decimal.Decimal, code string) string {
	return Symbol(code) + " " + FormatNumber(amount, ",", ".")
}

// Converter converts amounts between currencies using rates quoted against a
// base currency (rate = units of the currency per one unit of base).
type Converter struct {
	rates map[string]decimal.Decimal
}

// NewConverter builds a converter from upper-case currency codes to rates.
func NewConverter(rates map[string]decimal.Decimal) *Converter {
	normalized := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		normalized[strings.ToUpper(code)] = rate
	}
	return &Converter{rates: normalized}
}

// Convert converts amount from one currency to another through the base
// currency. When either rate is missing or zero the amount is returned
// unchanged and converted is false.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (result decimal.Decimal, converted bool) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, true
	}

	fromRate, okFrom := c.rates[from]
	toRate, okTo := c.rates[to]
	if !okFrom || !okTo || fromRate.IsZero() {
		zap.L().Warn("exchange rate missing, amount left unconverted",
			zap.String("from", from),
			zap.String("to", to),
			zap.String("amount", amount.String()),
		)
		return amount, false
	}

	inBase := amount.DivRound(fromRate, IntermediatePrecision)
	return Round(inBase.Mul(toRate)), true
}
