package broker

import (
	"regexp"
	"strings"

	"github.com/fazecat/signalmaker/Internal/types"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]`)

// Normalize uppercases a symbol or name and strips everything that is
// not a letter or digit, so "Reliance Inds." and "RELIANCEINDS" compare
// equal.
func Normalize(s string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToUpper(s), "")
}

// acronym takes the first character of each word: "Tata Consultancy
// Services" -> "TCS".
func acronym(s string) string {
	var b strings.Builder
	for _, word := range strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) {
		b.WriteByte(word[0])
	}
	return b.String()
}

// ResolveSecurityID maps a symbol or company name onto the broker's
// security id. Strategies are tried strictly in order — exact symbol,
// exact name, substring in either direction, acronym — and the first
// listing that matches wins.
func ResolveSecurityID(query string, listings []types.SecurityListing) (string, error) {
	norm := Normalize(query)
	if norm == "" {
		return "", ErrSecurityIDNotFound
	}

	for _, l := range listings {
		if Normalize(l.Symbol) == norm {
			return l.SecurityID, nil
		}
	}
	for _, l := range listings {
		if Normalize(l.Name) == norm {
			return l.SecurityID, nil
		}
	}
	for _, l := range listings {
		sym, name := Normalize(l.Symbol), Normalize(l.Name)
		if sym != "" && (strings.Contains(sym, norm) || strings.Contains(norm, sym)) {
			return l.SecurityID, nil
		}
		if name != "" && (strings.Contains(name, norm) || strings.Contains(norm, name)) {
			return l.SecurityID, nil
		}
	}

	queryAcr := acronym(query)
	if queryAcr != "" {
		for _, l := range listings {
			if acronym(l.Symbol) == queryAcr || acronym(l.Name) == queryAcr {
				return l.SecurityID, nil
			}
		}
	}

	return "", ErrSecurityIDNotFound
}
