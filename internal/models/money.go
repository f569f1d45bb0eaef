package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/divan/num2words"
)

// Centavos is a non-fractional peso amount (1 peso = 100 centavos)
type Centavos int64

// FromPesos converts a peso amount to centavos, rounding to the nearest centavo
func FromPesos(pesos float64) Centavos {
	return Centavos(math.Round(pesos * 100))
}

// Pesos returns the amount in pesos
func (c Centavos) Pesos() float64 {
	return float64(c) / 100
}

// String formats the amount as "₱12,000.00"
func (c Centavos) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}

	whole := fmt.Sprintf("%d", v/100)
	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	return fmt.Sprintf("%s₱%s.%02d", sign, grouped.String(), v%100)
}

// Words spells the amount out the way vouchers print it,
// e.g. "twelve thousand pesos" or "five hundred pesos and 50/100"
func (c Centavos) Words() string {
	v := int64(c)
	if v < 0 {
		v = -v
	}

	words := num2words.Convert(int(v/100)) + " pesos"
	if cents := v % 100; cents > 0 {
		words += fmt.Sprintf(" and %02d/100", cents)
	}
	return words
}
