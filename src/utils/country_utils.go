package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/username/taxpilot/src/logger"
)

type CountryInfo struct {
	Country string `json:"country"`
	Alpha2  string `json:"alpha2"`
	Alpha3  string `json:"alpha3"`
	Numeric string `json:"numeric"`
}

var (
	countryMap map[string]CountryInfo
	loadOnce   sync.Once
	loadError  error
	dataLoaded bool
)

// InitCountryData loads the ISO-3166 table from the given file path.
// Call once from main.go after config is loaded.
func InitCountryData(filePath string) error {
	loadOnce.Do(func() {
		fileData, err := os.ReadFile(filePath)
		if err != nil {
			loadError = fmt.Errorf("failed to read country data file '%s': %w", filePath, err)
			return
		}

		var countries []CountryInfo
		if err := json.Unmarshal(fileData, &countries); err != nil {
			loadError = fmt.Errorf("failed to unmarshal country data from '%s': %w", filePath, err)
			return
		}

		countryMap = make(map[string]CountryInfo)
		for _, country := range countries {
			countryMap[strings.ToUpper(country.Alpha2)] = country
		}
		dataLoaded = true
		if logger.L != nil {
			logger.L.Info("Country data loaded successfully.", "path", filePath, "countryCount", len(countryMap))
		}
	})
	return loadError
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// CountryFromISIN derives the ISO alpha-2 country of income from an ISIN
// prefix. Returns "" when the identifier is missing or its prefix is not
// alphabetic; such records stay out of per-country attribution but remain
// in aggregate totals.
func CountryFromISIN(isin string) string {
	if len(isin) < 2 {
		return ""
	}
	prefix := isin[:2]
	if !isAlpha(prefix) {
		return ""
	}
	return strings.ToUpper(prefix)
}

// Exchange-suffix hints for symbols without an ISIN, e.g. VWCE.DE.
var exchangeSuffixCountry = map[string]string{
	"DE": "DE",
	"L":  "GB",
	"AS": "NL",
	"PA": "FR",
	"MI": "IT",
	"MC": "ES",
	"SW": "CH",
	"TO": "CA",
	"AX": "AU",
	"HK": "HK",
	"T":  "JP",
	"SS": "SE",
	"CO": "DK",
	"HE": "FI",
	"OL": "NO",
	"WA": "PL",
}

// CountryFromSymbol guesses the country from an exchange suffix.
// Plain symbols default to US.
func CountryFromSymbol(symbol string) string {
	if idx := strings.LastIndex(symbol, "."); idx >= 0 && idx < len(symbol)-1 {
		suffix := strings.ToUpper(symbol[idx+1:])
		if country, ok := exchangeSuffixCountry[suffix]; ok {
			return country
		}
		return suffix
	}
	return "US"
}

// CountryName returns the English name for an alpha-2 code, falling back
// to the code itself when the table has no entry.
func CountryName(alpha2 string) string {
	if !dataLoaded {
		return alpha2
	}
	if info, ok := countryMap[strings.ToUpper(alpha2)]; ok {
		return info.Country
	}
	return alpha2
}

// CountryNumeric returns the ISO numeric code for an alpha-2 code, or ""
// when unknown.
func CountryNumeric(alpha2 string) string {
	if !dataLoaded {
		return ""
	}
	if info, ok := countryMap[strings.ToUpper(alpha2)]; ok {
		return strings.TrimSpace(info.Numeric)
	}
	return ""
}
