package helpers

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"strconv"
	"strings"
)

var markdownV2Escaper = strings.NewReplacer(
	"\\", "\\\\",
	".", "\\.", "-", "\\-", "_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
	"(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#",
	"+", "\\+", "=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", "!", "\\!",
)

// EscapeMarkdownV2 escapes every character Telegram reserves in MarkdownV2.
func EscapeMarkdownV2(text string) string {
	return markdownV2Escaper.Replace(text)
}

// FormatPrice renders a price with thousands separators. Large prices drop
// decimals, sub-unit prices keep enough digits to be meaningful.
func FormatPrice(price float64, escapeMarkdown bool) string {
	decimals := 6

	if price >= 1000 {
		decimals = 0
	} else if price > 1.2 {
		decimals = 2
	} else if price < 0.00001 {
		decimals = 8
	}

	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%.*f", decimals, price)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatTarget renders a user supplied target exactly, without trailing
// zeros or rounding: 150 stays "150" and 0.0000001 stays "0.0000001".
func FormatTarget(target float64) string {
	return strconv.FormatFloat(target, 'f', -1, 64)
}
