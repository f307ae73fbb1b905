package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  string
	}{
		{"two and a half hours", "2024-01-01T10:00", "2024-01-01T12:30", "02:30"},
		{"zero", "2024-01-01T10:00", "2024-01-01T10:00", "00:00"},
		{"over a day is not wrapped", "2024-01-01T10:00", "2024-01-03T11:05", "49:05"},
		{"hundreds of hours", "2024-01-01T00:00", "2024-01-06T04:09", "124:09"},
		{"seconds truncate", "2024-01-01T10:00:00", "2024-01-01T10:01:59", "00:01"},
		{"mixed layouts", "2024-01-01 10:00", "2024-01-01T11:15:00", "01:15"},
		{"rfc3339 with offset", "2024-01-01T10:00:00+05:30", "2024-01-01T05:00:00Z", "00:30"},
		{"missing start", "", "2024-01-01T12:30", DurationPlaceholder},
		{"missing end", "2024-01-01T10:00", "", DurationPlaceholder},
		{"blank", "   ", "2024-01-01T12:30", DurationPlaceholder},
		{"garbage", "yesterday", "2024-01-01T12:30", DurationPlaceholder},
		{"restored before failure", "2024-01-01T12:30", "2024-01-01T10:00", DurationPlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.start, tt.end))
		})
	}
}

func TestFormatDuration_AbsentInputAlwaysPlaceholder(t *testing.T) {
	others := []string{"", "2024-01-01T10:00", "2030-12-31T23:59", "not a date"}
	for _, other := range others {
		assert.Equal(t, DurationPlaceholder, FormatDuration("", other))
		assert.Equal(t, DurationPlaceholder, FormatDuration(other, ""))
	}
}
