package service

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	AdMarkerParam = "ad"
	AdMarkerValue = "seen"
	AdNextParam   = "next"
	PasscodeParam = "passcode"
)

// AdGate forces a visit to the interstitial page before a download link
// works. All state lives in the URL: the interstitial receives the original
// URL in ?next= and sends the browser back to it with ad=seen added.
//
// The countdown runs in the browser and the server accepts ad=seen at face
// value, so this is a nudge and not an access control.
type AdGate struct {
	// Path of the interstitial route
	Path string
	// Seconds the interstitial counts down before moving on
	Seconds int
}

// Seen reports whether the request already went through the interstitial.
func (g *AdGate) Seen(q url.Values) bool {
	return q.Get(AdMarkerParam) == AdMarkerValue
}

// RedirectURL returns the interstitial URL carrying requestURI verbatim.
func (g *AdGate) RedirectURL(requestURI string) string {
	return g.Path + "?" + url.Values{AdNextParam: {requestURI}}.Encode()
}

// Arm returns next with the ad=seen marker set. next must be a local path,
// anything else is rejected with ErrValidation so the page can't be used
// as an open redirect.
func (g *AdGate) Arm(next string) (string, error) {
	if next == "" {
		return "", fmt.Errorf("%w, no target provided", ErrValidation)
	}

	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "", fmt.Errorf("%w, target must be a local path", ErrValidation)
	}

	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", fmt.Errorf("%w, malformed target", ErrValidation)
	}

	// Never send the browser back to the interstitial itself
	if u.Path == g.Path {
		return "", fmt.Errorf("%w, target can't be the interstitial", ErrValidation)
	}

	q := u.Query()
	q.Set(AdMarkerParam, AdMarkerValue)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Cacheable reports whether the interstitial page for next may be cached.
// Targets carrying a passcode never are.
func (g *AdGate) Cacheable(next string) bool {
	u, err := url.Parse(next)
	if err != nil {
		return false
	}

	return !u.Query().Has(PasscodeParam)
}
