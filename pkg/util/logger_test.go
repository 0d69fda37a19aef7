package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerCollectsEntries(t *testing.T) {
	l := NewLogger()
	l.AddInfo("island has no slack bus", "island 1", "4 buses")
	l.AddWarning("voltage below limit", "bus 3", "0.88 pu")

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, Info, entries[0].Severity)
	assert.Equal(t, "island 1", entries[0].Device)
	assert.Equal(t, Warning, entries[1].Severity)
	assert.False(t, l.HasErrors())

	l.AddError("branch rating exceeded", "branch 5", "120 %")
	assert.True(t, l.HasErrors())
}

func TestLoggerAppend(t *testing.T) {
	a := NewLogger()
	a.AddInfo("first", "", "")

	b := NewLogger()
	b.AddError("second", "", "")

	a.Append(b)
	a.Append(nil)

	require.Len(t, a.Entries(), 2)
	assert.Equal(t, "first", a.Entries()[0].Message)
	assert.Equal(t, "second", a.Entries()[1].Message)
	assert.True(t, a.HasErrors())
}

func TestLoggerString(t *testing.T) {
	l := NewLogger()
	l.AddWarning("island did not converge", "island 0", "error=0.1")

	s := l.String()
	assert.Contains(t, s, "[Warning]")
	assert.Contains(t, s, "island did not converge")
	assert.Contains(t, s, "device=island 0")
	assert.Contains(t, s, "value=error=0.1")
}

func TestFormatters(t *testing.T) {
	assert.Contains(t, FormatPolar(complex(1, 0)), "1.00000")
	assert.Contains(t, FormatPower(complex(40, -20)), "MW")
	assert.Contains(t, FormatPower(complex(40, -20)), "MVAr")
	assert.Contains(t, FormatPerUnit(0.5), "pu")
	assert.Contains(t, FormatPerUnit(1e-6), "e-")
	assert.Equal(t, " 42.00 %", FormatPercent(0.42))
}
