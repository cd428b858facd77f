package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDateAndClock_UseIST(t *testing.T) {
	ts := time.Date(2025, 3, 9, 20, 15, 30, 0, time.UTC)

	assert.Equal(t, "10-03-2025", FormatDate(ts))
	assert.Equal(t, "01:45:30 AM", FormatClock(ts))
}

func TestSplitDuration(t *testing.T) {
	d := 2*24*time.Hour + 5*time.Hour + 7*time.Minute + 59*time.Second + 900*time.Millisecond
	days, hours, minutes, seconds := SplitDuration(d)
	assert.Equal(t, []int{2, 5, 7, 59}, []int{days, hours, minutes, seconds})

	days, hours, minutes, seconds = SplitDuration(-time.Hour)
	assert.Equal(t, []int{0, 0, 0, 0}, []int{days, hours, minutes, seconds})
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "0 days, 23 hours, 0 minutes", FormatRemaining(23*time.Hour))
	assert.Equal(t, "1 days, 2 hours, 3 minutes", FormatRemainingShort(26*time.Hour+3*time.Minute))
	assert.Equal(t, "2 hours, 0 minutes", FormatRemainingShort(2*time.Hour))
	assert.Equal(t, "5 minutes", FormatRemainingShort(5*time.Minute+10*time.Second))
	assert.Equal(t, "42 seconds", FormatRemainingShort(42*time.Second))
}

func TestNewSessionID(t *testing.T) {
	id1 := NewSessionID()
	id2 := NewSessionID()

	assert.NotEqual(t, id1, id2)
	assert.True(t, strings.HasPrefix(id1, "conv_"))
	assert.True(t, strings.HasPrefix(NewRunID(), "sweep_"))
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal string", "hello", "hello"},
		{"with control chars", "hello\x00world", "helloworld"},
		{"with newline", "hello\nworld", "hello\nworld"},
		{"with whitespace", "  hello  ", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeString(tt.input))
		})
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "he...", TruncateString("hello world", 5))
	assert.Equal(t, "he", TruncateString("hello", 2))
	assert.Equal(t, "héé...", TruncateString("héééééé", 6))
}

func TestMaskSensitive(t *testing.T) {
	assert.Equal(t, "abc***", MaskSensitive("abcdef", 3))
	assert.Equal(t, "**", MaskSensitive("ab", 3))
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;x&lt;/b&gt; &amp;", EscapeHTML("<b>x</b> &"))
}
