// Package useragent reduces a user-agent description to a browser/version token and
// an OS token: enough to reproduce a reported issue, nothing more.
package useragent

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
)

// Version is reported by DefaultNavigator.
var Version = "dev"

type Brand struct {
	Brand   string `json:"brand"`
	Version string `json:"version"`
}

// Data is the structured (client hints) part of a navigator.
type Data struct {
	Brands   []Brand `json:"brands,omitempty"`
	Platform *string `json:"platform,omitempty"`
}

// Navigator describes a client: the raw User-Agent string and, optionally,
// structured brand/platform data.
type Navigator struct {
	UserAgent     string `json:"userAgent"`
	UserAgentData *Data  `json:"userAgentData,omitempty"`
}

// DefaultNavigator describes this binary.
func DefaultNavigator() *Navigator {
	return &Navigator{
		UserAgent: fmt.Sprintf("arbor/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH),
	}
}

type brandTest struct {
	name  string
	value string
}

// Checked in this order; the first listed brand present wins, whatever order the
// client reports its brands in.
var brandTests = []brandTest{
	{name: "Google Chrome", value: "Chrome"},
	{name: "Chrome", value: "Chrome"},
	{name: "Opera", value: "Opera"},
	{name: "Edge", value: "Edge"},
	{name: "Chromium", value: "Chromium"},
}

type pattern struct {
	re    *regexp.Regexp
	value string
}

var browserPatterns = []pattern{
	{re: regexp.MustCompile(`(?i)(?:firefox|fxios)/(\d+)`), value: "Firefox"},
	{re: regexp.MustCompile(`(?i)(?:edg|edge|edga|edgios)/(\d+)`), value: "Edge"},
	{re: regexp.MustCompile(`(?i)opr/(\d+)`), value: "Opera"},
	{re: regexp.MustCompile(`(?i)(?:chrome|chromium|crios)/(\d+)`), value: "Chrome"},
	{re: regexp.MustCompile(`(?i)version/(\d+).*safari`), value: "Safari"},
}

var osPatterns = []pattern{
	{re: regexp.MustCompile(`(?i)windows`), value: "windows"},
	{re: regexp.MustCompile(`(?i)android`), value: "android"},
	{re: regexp.MustCompile(`(?i)linux`), value: "linux"},
	{re: regexp.MustCompile(`(?i)iphone|ipad|ipod`), value: "ios"},
	{re: regexp.MustCompile(`(?i)macintosh|mac os x`), value: "macos"},
}

// Info returns the browser token (if any) followed by the OS token (if any).
// A nil navigator describes this binary.
func Info(nav *Navigator) []string {
	if nav == nil {
		nav = DefaultNavigator()
	}
	out := make([]string, 0, 2)
	if b, ok := Browser(nav); ok {
		out = append(out, b)
	}
	if o, ok := OS(nav); ok {
		out = append(out, o)
	}
	return out
}

// Browser returns "<Name>/<major version>".
func Browser(nav *Navigator) (string, bool) {
	if nav == nil {
		return "", false
	}
	if d := nav.UserAgentData; d != nil && d.Brands != nil {
		for _, t := range brandTests {
			for _, b := range d.Brands {
				if b.Brand == t.name {
					return t.value + "/" + b.Version, true
				}
			}
		}
	}
	for _, p := range browserPatterns {
		if m := p.re.FindStringSubmatch(nav.UserAgent); m != nil {
			return p.value + "/" + m[1], true
		}
	}
	return "", false
}

// OS returns a lower-case operating system token. A structured platform is used
// whenever it is set, even when empty.
func OS(nav *Navigator) (string, bool) {
	if nav == nil {
		return "", false
	}
	if d := nav.UserAgentData; d != nil && d.Platform != nil {
		return strings.ToLower(*d.Platform), true
	}
	for _, p := range osPatterns {
		if p.re.MatchString(nav.UserAgent) {
			return p.value, true
		}
	}
	return "", false
}
