package locale

import (
	"sort"
	"strings"
)

type Country struct {
	Code            string // ISO 3166-1 alpha-2 country code (e.g., "SG", "MY")
	Name            string
	DefaultTimezone string // IANA timezone identifier
	Currency        string // ISO 4217 code used for package prices
}

var Countries = map[string]Country{
	"SG": {Code: "SG", Name: "Singapore", DefaultTimezone: "Asia/Singapore", Currency: "SGD"},
	"MY": {Code: "MY", Name: "Malaysia", DefaultTimezone: "Asia/Kuala_Lumpur", Currency: "MYR"},
	"TH": {Code: "TH", Name: "Thailand", DefaultTimezone: "Asia/Bangkok", Currency: "THB"},
	"ID": {Code: "ID", Name: "Indonesia", DefaultTimezone: "Asia/Jakarta", Currency: "IDR"},
	"IL": {Code: "IL", Name: "Israel", DefaultTimezone: "Asia/Jerusalem", Currency: "ILS"},
	"US": {Code: "US", Name: "United States", DefaultTimezone: "America/New_York", Currency: "USD"},
}

// ParseCountry accepts a code or a country name in any case and returns the
// canonical code.
func ParseCountry(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if c, ok := Countries[strings.ToUpper(s)]; ok {
		return c.Code, true
	}
	for _, c := range Countries {
		if strings.EqualFold(c.Name, s) {
			return c.Code, true
		}
	}
	return "", false
}

func IsSupported(code string) bool {
	_, ok := Countries[code]
	return ok
}

func Codes() []string {
	codes := make([]string, 0, len(Countries))
	for code := range Countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
