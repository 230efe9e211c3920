package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/username/taxpilot/src/models"
)

func TestEasterSunday(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		day   int
	}{
		{2022, time.April, 17},
		{2023, time.April, 9},
		{2024, time.March, 31},
		{2025, time.April, 20},
		{2026, time.April, 5},
	}

	for _, tt := range tests {
		got := easterSunday(tt.year)
		assert.Equal(t, models.NewDate(tt.year, tt.month, tt.day), got, "Easter %d", tt.year)
	}
}

func TestIsPolishBusinessDay(t *testing.T) {
	cases := []struct {
		name string
		date models.Date
		want bool
	}{
		{"ordinary Wednesday", models.NewDate(2023, time.June, 7), true},
		{"Saturday", models.NewDate(2023, time.June, 3), false},
		{"Sunday", models.NewDate(2023, time.June, 4), false},
		{"New Year", models.NewDate(2023, time.January, 1), false},
		{"Epiphany", models.NewDate(2023, time.January, 6), false},
		{"Constitution Day", models.NewDate(2023, time.May, 3), false},
		{"Independence Day", models.NewDate(2023, time.November, 11), false},
		{"Christmas", models.NewDate(2023, time.December, 25), false},
		{"Easter Sunday 2023", models.NewDate(2023, time.April, 9), false},
		{"Easter Monday 2023", models.NewDate(2023, time.April, 10), false},
		{"Pentecost 2023", models.NewDate(2023, time.May, 28), false},
		{"Corpus Christi 2023", models.NewDate(2023, time.June, 8), false},
		{"Corpus Christi 2024", models.NewDate(2024, time.May, 30), false},
		{"day after Corpus Christi 2023", models.NewDate(2023, time.June, 9), true},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPolishBusinessDay(tt.date))
		})
	}
}

func TestPreviousBusinessDay(t *testing.T) {
	tests := []struct {
		name string
		from models.Date
		want models.Date
	}{
		{
			name: "Tuesday to Monday",
			from: models.NewDate(2023, time.June, 6),
			want: models.NewDate(2023, time.June, 5),
		},
		{
			name: "Monday skips the weekend",
			from: models.NewDate(2023, time.June, 5),
			want: models.NewDate(2023, time.June, 2),
		},
		{
			name: "skips a Friday holiday and the preceding weekend",
			from: models.NewDate(2023, time.January, 9),
			want: models.NewDate(2023, time.January, 5), // Jan 6 is Epiphany
		},
		{
			name: "skips Easter Monday back to Maundy Thursday",
			from: models.NewDate(2023, time.April, 11),
			want: models.NewDate(2023, time.April, 6),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PreviousBusinessDay(tt.from))
		})
	}
}

func TestSettlementDateForTrade(t *testing.T) {
	tests := []struct {
		name    string
		trade   models.Date
		country string
		want    models.Date
	}{
		{
			name:    "US trade on the cutover day settles T+1",
			trade:   models.NewDate(2024, time.May, 28),
			country: "US",
			want:    models.NewDate(2024, time.May, 29),
		},
		{
			name:    "US trade before the cutover settles T+2",
			trade:   models.NewDate(2024, time.May, 24),
			country: "US",
			want:    models.NewDate(2024, time.May, 28), // Friday + 2 business days
		},
		{
			name:    "US Friday trade settles Monday",
			trade:   models.NewDate(2024, time.June, 7),
			country: "US",
			want:    models.NewDate(2024, time.June, 10),
		},
		{
			name:    "Canadian trade follows the T+1 cutover",
			trade:   models.NewDate(2024, time.June, 3),
			country: "CA",
			want:    models.NewDate(2024, time.June, 4),
		},
		{
			name:    "German trade stays T+2 after the cutover",
			trade:   models.NewDate(2024, time.June, 6),
			country: "DE",
			want:    models.NewDate(2024, time.June, 10), // Thursday + 2 business days
		},
		{
			name:    "unknown exchange defaults to T+2",
			trade:   models.NewDate(2024, time.June, 3),
			country: "",
			want:    models.NewDate(2024, time.June, 5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SettlementDateForTrade(tt.trade, tt.country))
		})
	}
}
