package helpers

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var markdownV2Escaper = strings.NewReplacer(
	"\\", "\\\\",
	".", "\\.", "-", "\\-", "_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "<", "\\<", "#", "\\#", "+", "\\+", "=", "\\=", "|", "\\|",
	"{", "\\{", "}", "\\}", "!", "\\!",
)

func EscapeMarkdownV2(text string) string {
	return markdownV2Escaper.Replace(text)
}

// Bold wraps already escaped text in MarkdownV2 bold markers.
func Bold(escaped string) string {
	return "*" + escaped + "*"
}

// FormatMoney renders a USD amount with two decimals and no thousands separator, e.g. $3500.00.
func FormatMoney(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

// FormatQuantity renders an asset quantity with four decimals.
func FormatQuantity(quantity decimal.Decimal) string {
	return quantity.StringFixed(4)
}

// FormatPercent renders a percentage with two decimals, e.g. 5.00%.
func FormatPercent(pct decimal.Decimal) string {
	return pct.StringFixed(2) + "%"
}

// FormatSignedPercent always carries a sign, e.g. +16.67% or -3.10%.
func FormatSignedPercent(pct decimal.Decimal) string {
	if pct.IsNegative() && !pct.Round(2).IsZero() {
		return pct.StringFixed(2) + "%"
	}
	return "+" + pct.Abs().StringFixed(2) + "%"
}

// FormatDate renders a calendar date the way users type it.
func FormatDate(t time.Time) string {
	return t.Format("02-01-2006")
}
