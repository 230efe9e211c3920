package utils

import (
	"time"

	"github.com/username/taxpilot/src/models"
)

// Fixed-date Polish public holidays as (month, day). Easter-dependent
// holidays are computed per year.
var fixedPolishHolidays = map[[2]int]struct{}{
	{1, 1}:   {}, // Nowy Rok
	{1, 6}:   {}, // Trzech Kroli
	{5, 1}:   {}, // Swieto Pracy
	{5, 3}:   {}, // Swieto Konstytucji
	{8, 15}:  {}, // Wniebowziecie NMP
	{11, 1}:  {}, // Wszystkich Swietych
	{11, 11}: {}, // Swieto Niepodleglosci
	{12, 25}: {}, // Boze Narodzenie
	{12, 26}: {}, // Drugi dzien Bozego Narodzenia
}

// easterSunday computes Easter Sunday for a year using the Anonymous
// Gregorian algorithm.
func easterSunday(year int) models.Date {
	a := year % 19
	b, c := year/100, year%100
	d, e := b/4, b%4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i, k := c/4, c%4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return models.NewDate(year, time.Month(month), day)
}

// IsPolishBusinessDay reports whether NBP publishes a table for the given
// day: not a weekend and not a Polish public holiday.
func IsPolishBusinessDay(d models.Date) bool {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if _, ok := fixedPolishHolidays[[2]int{int(d.Month()), d.Day()}]; ok {
		return false
	}
	easter := easterSunday(d.Year())
	switch {
	case d.Equal(easter):
		return false
	case d.Equal(easter.AddDays(1)): // Poniedzialek Wielkanocny
		return false
	case d.Equal(easter.AddDays(49)): // Zielone Swiatki
		return false
	case d.Equal(easter.AddDays(60)): // Boze Cialo
		return false
	}
	return true
}

// PreviousBusinessDay returns the last Polish business day strictly before d.
func PreviousBusinessDay(d models.Date) models.Date {
	candidate := d.AddDays(-1)
	for !IsPolishBusinessDay(candidate) {
		candidate = candidate.AddDays(-1)
	}
	return candidate
}

// US, Canadian and Mexican exchanges moved to T+1 settlement on 2024-05-28.
var tPlusOneCutoff = models.NewDate(2024, time.May, 28)

// SettlementDateForTrade computes the settlement date for a trade:
// trade date + 1 business day for US/CA/MX exchanges on or after the
// 2024-05-28 cutover, + 2 business days otherwise, skipping weekends.
// The engine only uses this for manually-entered buys; parsed transactions
// arrive with the broker's settlement date already attached.
func SettlementDateForTrade(tradeDate models.Date, exchangeCountry string) models.Date {
	offset := 2
	switch exchangeCountry {
	case "US", "CA", "MX":
		if !tradeDate.Before(tPlusOneCutoff) {
			offset = 1
		}
	}

	settle := tradeDate
	for added := 0; added < offset; {
		settle = settle.AddDays(1)
		if wd := settle.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return settle
}
