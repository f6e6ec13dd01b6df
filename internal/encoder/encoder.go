// Package encoder builds telemetry request URLs in the classic Google
// Analytics __utm.gif query format.
//
// The encoder is pure: it combines the event fields and a session snapshot
// into a fully-formed GET URL and holds no mutable state of its own beyond
// the account/domain it was created with.
package encoder

import (
	"fmt"
	"math/rand"
	"net/url"
	"strings"

	"github.com/Moqi/ganalytics/internal/models"
)

const (
	// DefaultCollectorURL is the legacy GA collection endpoint.
	DefaultCollectorURL = "http://www.google-analytics.com/__utm.gif"
	// trackerVersion is the utmwv protocol version this encoder emits.
	trackerVersion = "4.8.8"
)

// Encoder builds __utm.gif URLs for one tracking account and host domain.
type Encoder struct {
	account      string
	domain       string
	collectorURL string
	// nonce generates the utmn/utmhid cache-buster values. Replaceable in tests.
	nonce func() int32
}

// New creates an Encoder for the given tracking account (UA-XXXX-Y) and
// host domain. collectorURL may be empty to use the default endpoint.
func New(account, domain, collectorURL string) *Encoder {
	if collectorURL == "" {
		collectorURL = DefaultCollectorURL
	}
	return &Encoder{
		account:      account,
		domain:       domain,
		collectorURL: collectorURL,
		nonce:        rand.Int31,
	}
}

// PageView builds the URL reporting a page/view visit.
func (e *Encoder) PageView(pageTitle string, s models.SessionSnapshot) string {
	v := e.baseValues(pageTitle, s)
	return e.collectorURL + "?" + v.Encode()
}

// Event builds the URL reporting a categorized action. Label is omitted when
// empty; value is omitted when nil.
func (e *Encoder) Event(pageTitle, category, action, label string, value *int, s models.SessionSnapshot) string {
	v := e.baseValues(pageTitle, s)
	v.Set("utmt", "event")
	parts := []string{category, action}
	if label != "" {
		parts = append(parts, label)
	}
	utme := "5(" + strings.Join(parts, "*") + ")"
	if value != nil {
		utme += fmt.Sprintf("(%d)", *value)
	}
	v.Set("utme", utme)
	return e.collectorURL + "?" + v.Encode()
}

// baseValues assembles the parameters shared by page views and events.
func (e *Encoder) baseValues(pageTitle string, s models.SessionSnapshot) url.Values {
	v := url.Values{}
	v.Set("utmwv", trackerVersion)
	v.Set("utmn", fmt.Sprintf("%d", e.nonce()))
	v.Set("utmhn", e.domain)
	v.Set("utmcs", "UTF-8")
	v.Set("utmul", "en")
	v.Set("utmdt", pageTitle)
	v.Set("utmhid", fmt.Sprintf("%d", e.nonce()))
	v.Set("utmp", pagePath(pageTitle))
	v.Set("utmac", e.account)
	v.Set("utmcc", e.cookies(s))
	return v
}

// cookies renders the __utma visitor cookie: domain hash, cookie id, first
// visit, previous visit, current session start, and visit count.
func (e *Encoder) cookies(s models.SessionSnapshot) string {
	return fmt.Sprintf("__utma=%d.%d.%d.%d.%d.%d;",
		domainHash(e.domain), s.CookieID, s.FirstRun, s.LastRun, s.SessionStart, s.Visits)
}

// pagePath derives a path-like utmp value from a page title.
func pagePath(pageTitle string) string {
	p := strings.TrimSpace(strings.ToLower(pageTitle))
	p = strings.ReplaceAll(p, " ", "-")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// domainHash implements the classic GA domain hash used as the first field of
// the __utma cookie.
func domainHash(domain string) int {
	if domain == "" {
		return 1
	}
	a := 0
	for h := len(domain) - 1; h >= 0; h-- {
		o := int(domain[h])
		a = ((a << 6) & 0xfffffff) + o + (o << 14)
		if c := a & 0xfe00000; c != 0 {
			a ^= c >> 21
		}
	}
	return a
}
