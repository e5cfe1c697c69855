package packet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestReversePath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"A*,B*,WIDE1-1", "B,A"},
		{"WIDE2-1,RELAY*,DIGI1*", "DIGI1,RELAY"},
		{"LA1ABC,LA2XYZ*,WIDE2-1", "LA2XYZ,LA1ABC"},
		{"WIDE1-1,WIDE2-1", ""},
		{"", ""},
		{"TCPIP*,qAC,T2NORWAY", ""},
		{"LA1ABC*,TCPXX*", "LA1ABC"},
		{"LA1ABC*,NOGATE,LA2XYZ*", "LA1ABC"},
		{"WIDE1*,WIDE2*", ""},
		{"RFONLY,SAR1-1*,NO_TX,TRACE3-3", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ReversePath(tt.path), tt.path)
	}
}

func TestIsGenericAlias(t *testing.T) {
	for _, hop := range []string{"WIDE1-1", "TRACE3-3", "NOR", "SAR2-2", "TCPIP", "TCPXX", "NOGATE", "RFONLY", "NO_TX"} {
		assert.True(t, IsGenericAlias(hop), hop)
	}
	for _, hop := range []string{"LA7ECA", "RELAY", "TCP", "XWIDE"} {
		assert.False(t, IsGenericAlias(hop), hop)
	}
}

func TestHops(t *testing.T) {
	assert.Nil(t, Hops(""))
	assert.Equal(t, []string{"LA1ABC", "WIDE2-1"}, Hops("LA1ABC*,WIDE2-1"))
}

func TestReversePath_Properties(t *testing.T) {
	hop := rapid.OneOf(
		rapid.StringMatching(`[A-Z]{2}[0-9][A-Z]{1,3}(-[0-9])?`),
		rapid.SampledFrom([]string{"WIDE1-1", "WIDE2-2", "TCPIP", "NOGATE", "RFONLY", "TRACE3-3"}),
	)
	rapid.Check(t, func(t *rapid.T) {
		hops := rapid.SliceOfN(hop, 0, 8).Draw(t, "hops")
		marked := rapid.IntRange(0, len(hops)).Draw(t, "marked")
		path := make([]string, len(hops))
		for i, h := range hops {
			if i < marked {
				h += "*"
			}
			path[i] = h
		}

		got := ReversePath(strings.Join(path, ","))
		if marked == 0 {
			if got != "" {
				t.Fatalf("unmarked path reversed to %q", got)
			}
			return
		}

		var want []string
		for i := marked - 1; i >= 0; i-- {
			if !IsGenericAlias(hops[i]) {
				want = append(want, hops[i])
			}
		}
		if got != strings.Join(want, ",") {
			t.Fatalf("got %q, want %q", got, strings.Join(want, ","))
		}
	})
}
