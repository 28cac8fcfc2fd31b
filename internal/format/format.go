// Package format holds the display formatters used by the agenda: BRL
// currency, Brazilian document/phone masks and pt-BR date labels. All
// formatters degrade to the raw input on malformed values; they sit in
// rendering paths and must never fail.
package format

import (
	"fmt"
	"strings"
	"time"
)

// Currency formats an amount in cents as Brazilian reais,
// e.g. 123456 -> "R$ 1.234,56".
func Currency(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	reais := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", reais)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), frac)
}

// CPF applies the standard CPF mask ("000.000.000-00") to an 11-digit
// document number. Anything else is returned unchanged.
func CPF(raw string) string {
	d := onlyDigits(raw)
	if len(d) != 11 {
		return raw
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}

// Phone masks a Brazilian phone number: 11 digits (mobile) as
// "(XX) XXXXX-XXXX", 10 digits (landline) as "(XX) XXXX-XXXX". Anything
// else is returned unchanged.
func Phone(raw string) string {
	d := onlyDigits(raw)
	switch len(d) {
	case 11:
		return "(" + d[0:2] + ") " + d[2:7] + "-" + d[7:11]
	case 10:
		return "(" + d[0:2] + ") " + d[2:6] + "-" + d[6:10]
	default:
		return raw
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	weekdaysShort = [7]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"}
	monthsShort   = [12]string{"jan", "fev", "mar", "abr", "mai", "jun",
		"jul", "ago", "set", "out", "nov", "dez"}
)

// Date formats a date as "02/01/2006".
func Date(t time.Time) string {
	return t.Format("02/01/2006")
}

// DayLabel formats the week-view column header, e.g. "seg 02/03".
func DayLabel(t time.Time) string {
	return weekdaysShort[int(t.Weekday())] + t.Format(" 02/01")
}

// DayLong formats a full day heading, e.g. "seg, 02 mar 2026".
func DayLong(t time.Time) string {
	return fmt.Sprintf("%s, %02d %s %d",
		weekdaysShort[int(t.Weekday())], t.Day(), monthsShort[int(t.Month())-1], t.Year())
}

// Clock formats a time of day as "15:04".
func Clock(t time.Time) string {
	return t.Format("15:04")
}

// TimeRange formats an appointment's time span, e.g. "09:00 – 09:30".
func TimeRange(start, end time.Time) string {
	return Clock(start) + " – " + Clock(end)
}

// DurationLabel renders a duration the way the agenda cards do:
// "45min", "1h", "1h30". Non-positive durations yield "0min".
func DurationLabel(d time.Duration) string {
	min := int(d.Minutes())
	if min <= 0 {
		return "0min"
	}
	h, m := min/60, min%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dmin", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02d", h, m)
	}
}
