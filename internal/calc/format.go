package calc

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatCurrency renders an amount as US dollars, e.g. "$1,234.50".
func FormatCurrency(amount decimal.Decimal) string {
	return FormatCurrencyFor("en", amount)
}

// FormatCurrencyFor renders a dollar amount using the number conventions of lang.
// English puts the symbol first; other languages append it.
//
// Only the whole part goes through the locale printer, as an integer; the cents
// come from the decimal string, so no float rounding is involved.
func FormatCurrencyFor(lang string, amount decimal.Decimal) string {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.AmericanEnglish
	}
	p := message.NewPrinter(tag)

	whole, cents, _ := strings.Cut(Round2(amount.Abs()).StringFixed(2), ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	grouped := whole
	if err == nil {
		grouped = p.Sprint(number.Decimal(n))
	}
	digits := grouped + decimalSeparator(p) + cents

	var b strings.Builder
	if amount.IsNegative() && !Round2(amount).IsZero() {
		b.WriteString("-")
	}
	base, _ := tag.Base()
	if base.String() == "en" {
		b.WriteString("$")
		b.WriteString(digits)
	} else {
		b.WriteString(digits)
		b.WriteString(" $")
	}
	return b.String()
}

// decimalSeparator returns the fraction separator of p's locale.
func decimalSeparator(p *message.Printer) string {
	one := p.Sprint(number.Decimal(1, number.MinFractionDigits(1)))
	return strings.TrimSuffix(strings.TrimPrefix(one, "1"), "0")
}
