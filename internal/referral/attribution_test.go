package referral

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const day = 24 * time.Hour

func TestCapture_ActiveAt(t *testing.T) {
	captured := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Capture{Code: "PARTNER42", CapturedAt: captured, Source: SourceLocal}

	assert.True(t, c.ActiveAt(captured))
	assert.True(t, c.ActiveAt(captured.Add(89*day)))
	assert.True(t, c.ActiveAt(captured.Add(90*day-time.Millisecond)))
	assert.False(t, c.ActiveAt(captured.Add(90*day)), "boundary is exclusive")
	assert.False(t, c.ActiveAt(captured.Add(91*day)))
}

func TestCapture_ActiveAtWithoutTimestamp(t *testing.T) {
	assert.True(t, Capture{Code: "PARTNER42", Source: SourceCookie}.ActiveAt(time.Now()))
	assert.False(t, Capture{Source: SourceCookie}.ActiveAt(time.Now()))
}

func TestResolve_Precedence(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	query := Capture{Code: "FROM_QUERY", CapturedAt: now, Source: SourceQuery}
	cookie := Capture{Code: "FROM_COOKIE", Source: SourceCookie}
	local := Capture{Code: "FROM_LOCAL", CapturedAt: now.Add(-10 * day), Source: SourceLocal}
	expiredLocal := Capture{Code: "OLD", CapturedAt: now.Add(-100 * day), Source: SourceLocal}

	tests := []struct {
		name       string
		candidates []Capture
		want       string
		found      bool
	}{
		{"query beats all", []Capture{local, cookie, query}, "FROM_QUERY", true},
		{"cookie beats local", []Capture{local, cookie}, "FROM_COOKIE", true},
		{"local alone", []Capture{local}, "FROM_LOCAL", true},
		{"expired local ignored", []Capture{expiredLocal}, "", false},
		{"empty cookie falls through", []Capture{{Source: SourceCookie}, local}, "FROM_LOCAL", true},
		{"unknown source ignored", []Capture{{Code: "X", Source: "header"}}, "", false},
		{"nothing", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(now, tt.candidates...)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got.Code)
		})
	}
}
