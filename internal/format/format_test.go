package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrency(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "R$ 0,00"},
		{5, "R$ 0,05"},
		{150, "R$ 1,50"},
		{123456, "R$ 1.234,56"},
		{100000000, "R$ 1.000.000,00"},
		{-9890, "-R$ 98,90"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Currency(c.cents), "cents=%d", c.cents)
	}
}

func TestCPF(t *testing.T) {
	assert.Equal(t, "123.456.789-09", CPF("12345678909"))
	// Already-masked input normalizes to the same mask.
	assert.Equal(t, "123.456.789-09", CPF("123.456.789-09"))
	// Wrong length falls back to the raw string.
	assert.Equal(t, "1234567", CPF("1234567"))
	assert.Equal(t, "", CPF(""))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "(11) 91234-5678", Phone("11912345678"))
	assert.Equal(t, "(11) 1234-5678", Phone("1112345678"))
	assert.Equal(t, "(11) 91234-5678", Phone("(11) 91234-5678"))
	// Unknown shapes pass through untouched.
	assert.Equal(t, "12345", Phone("12345"))
}

func TestDateLabels(t *testing.T) {
	d := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC) // a Monday
	assert.Equal(t, "02/03/2026", Date(d))
	assert.Equal(t, "seg 02/03", DayLabel(d))
	assert.Equal(t, "seg, 02 mar 2026", DayLong(d))
	assert.Equal(t, "09:05", Clock(d))
	assert.Equal(t, "09:05 – 10:35", TimeRange(d, d.Add(90*time.Minute)))
}

func TestDurationLabel(t *testing.T) {
	assert.Equal(t, "45min", DurationLabel(45*time.Minute))
	assert.Equal(t, "1h", DurationLabel(time.Hour))
	assert.Equal(t, "1h30", DurationLabel(90*time.Minute))
	assert.Equal(t, "2h05", DurationLabel(125*time.Minute))
	assert.Equal(t, "0min", DurationLabel(0))
	assert.Equal(t, "0min", DurationLabel(-time.Minute))
}
