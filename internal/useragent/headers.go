package useragent

import (
	"strings"
)

// FromHeaders builds a Navigator from HTTP request headers: User-Agent, Sec-CH-UA
// and Sec-CH-UA-Platform. Empty client-hint headers leave UserAgentData nil so the
// raw string is used.
func FromHeaders(userAgent, secCHUA, secCHUAPlatform string) *Navigator {
	nav := &Navigator{UserAgent: userAgent}
	brands := ParseBrandList(secCHUA)
	platform, hasPlatform := parseSFString(secCHUAPlatform)
	if brands == nil && !hasPlatform {
		return nav
	}
	nav.UserAgentData = &Data{Brands: brands}
	if hasPlatform {
		nav.UserAgentData.Platform = &platform
	}
	return nav
}

// ParseBrandList parses a Sec-CH-UA structured-field list such as
// `"Chromium";v="124", "Google Chrome";v="124"`. Malformed members are skipped.
func ParseBrandList(header string) []Brand {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	out := []Brand{}
	for _, member := range splitOutsideQuotes(header, ',') {
		parts := splitOutsideQuotes(member, ';')
		if len(parts) == 0 {
			continue
		}
		name, ok := parseSFString(parts[0])
		if !ok {
			continue
		}
		b := Brand{Brand: name}
		for _, param := range parts[1:] {
			k, v, found := strings.Cut(strings.TrimSpace(param), "=")
			if !found || strings.TrimSpace(k) != "v" {
				continue
			}
			if s, ok := parseSFString(v); ok {
				b.Version = s
			} else {
				b.Version = strings.TrimSpace(v)
			}
		}
		out = append(out, b)
	}
	return out
}

// parseSFString unquotes a structured-field string (`"macOS"` -> macOS).
func parseSFString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", false
	}
	var b strings.Builder
	body := s[1 : len(s)-1]
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			c = body[i]
		}
		b.WriteByte(c)
	}
	return b.String(), true
}

func splitOutsideQuotes(s string, sep byte) []string {
	var (
		out     []string
		inQuote bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && inQuote:
			i++
		case c == '"':
			inQuote = !inQuote
		case c == sep && !inQuote:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}
