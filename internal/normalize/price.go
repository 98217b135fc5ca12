package normalize

import (
	"strconv"
	"strings"
)

// VATPercent is the Polish standard VAT rate applied to net prices
const VATPercent = 23

// Benefit returns old minus current when both are present and the old price
// is not below the current one. Otherwise the benefit is absent.
func Benefit(old, current *int) *int {
	if old == nil || current == nil || *old < *current {
		return nil
	}
	b := *old - *current
	return &b
}

// NetToGross adds VAT to a net amount, truncating to whole units
func NetToGross(net int) int {
	return net * (100 + VATPercent) / 100
}

// FormatPLN renders 123456 as "123 456 PLN"
func FormatPLN(amount int) string {
	digits := strconv.Itoa(amount)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteString(" PLN")
	return b.String()
}
