package service

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdGateRoundTrip(t *testing.T) {
	g := &AdGate{Path: "/ad", Seconds: 5}

	redirect := g.RedirectURL("/d/AbC12345?passcode=x")
	assert.Equal(t, "/ad?next=%2Fd%2FAbC12345%3Fpasscode%3Dx", redirect)

	u, err := url.Parse(redirect)
	require.NoError(t, err)

	armed, err := g.Arm(u.Query().Get(AdNextParam))
	require.NoError(t, err)

	back, err := url.Parse(armed)
	require.NoError(t, err)

	assert.Equal(t, "/d/AbC12345", back.Path)
	assert.Equal(t, "x", back.Query().Get("passcode"))
	assert.True(t, g.Seen(back.Query()))
}

func TestAdGateSeen(t *testing.T) {
	g := &AdGate{Path: "/ad"}

	assert.True(t, g.Seen(url.Values{"ad": {"seen"}}))
	assert.False(t, g.Seen(url.Values{}))
	assert.False(t, g.Seen(url.Values{"ad": {"yes"}}))
}

func TestAdGateArmRejects(t *testing.T) {
	g := &AdGate{Path: "/ad"}

	for _, next := range []string{
		"",
		"d/abc",
		"//evil.example/d/abc",
		"/\\evil.example",
		"https://evil.example/d/abc",
		"/ad?next=/d/abc",
	} {
		_, err := g.Arm(next)
		assert.ErrorIs(t, err, ErrValidation, "next=%q", next)
	}
}

func TestAdGateArmKeepsMarkerOnce(t *testing.T) {
	g := &AdGate{Path: "/ad"}

	armed, err := g.Arm("/d/abc?ad=seen")
	require.NoError(t, err)
	assert.Equal(t, "/d/abc?ad=seen", armed)
}

func TestAdGateCacheable(t *testing.T) {
	g := &AdGate{Path: "/ad"}

	assert.True(t, g.Cacheable("/d/AbC12345"))
	assert.True(t, g.Cacheable("/d/AbC12345?x=1"))
	assert.False(t, g.Cacheable("/d/AbC12345?passcode=x"))
	assert.False(t, g.Cacheable("/d/AbC12345?passcode="))
	assert.False(t, g.Cacheable("%zz"))
}
