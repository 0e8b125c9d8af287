// Package currency maps ISO 4217 alphabetic codes to English display names.
package currency

import (
	"sort"

	"github.com/pkg/errors"
)

var ErrUnknownCode = errors.New("currency code not found")

var names = map[string]string{
	"JPY": "Japanese yen",
	"BGN": "Bulgarian lev",
	"CZK": "Czech koruna",
	"DKK": "Danish krone",
	"GBP": "British pound",
	"HUF": "Hungarian forint",
	"PLN": "Polish zloty",
	"RON": "Romanian leu",
	"SEK": "Swedish krona",
	"CHF": "Swiss franc",
	"ISK": "Icelandic króna",
	"NOK": "Norwegian krone",
	"TRY": "Turkish new lira",
	"AUD": "Australian dollar",
	"BRL": "Brazilian real",
	"CAD": "Canadian dollar",
	"CNY": "Chinese/Yuan renminbi",
	"HKD": "Hong Kong dollar",
	"IDR": "Indonesian rupiah",
	"ILS": "Israeli new sheqel",
	"INR": "Indian rupee",
	"KRW": "South Korean won",
	"MXN": "Mexican peso",
	"MYR": "Malaysian ringgit",
	"NZD": "New Zealand dollar",
	"PHP": "Philippine peso",
	"SGD": "Singapore dollar",
	"THB": "Thai baht",
	"ZAR": "South African rand",
	"EUR": "European Euro",
	"USD": "United States dollar",
}

// NameForCode returns the display name of code or ErrUnknownCode.
// Codes are matched exactly; "gbp" is unknown.
func NameForCode(code string) (string, error) {
	n, ok := names[code]
	if !ok {
		return "", errors.Wrapf(ErrUnknownCode, "%q", code)
	}
	return n, nil
}

// Codes returns every known code in ascending order.
func Codes() []string {
	out := make([]string, 0, len(names))
	for k := range names {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
