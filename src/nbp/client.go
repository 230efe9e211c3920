// Package nbp talks to the National Bank of Poland exchange-rate API
// (Table A mid-rates). The resolver layers caching on top; this client
// only knows how to ask for one currency on one date.
package nbp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/taxpilot/src/logger"
	"github.com/username/taxpilot/src/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type rateResponse struct {
	Rates []struct {
		Mid json.Number `json:"mid"`
	} `json:"rates"`
}

// FetchRate asks NBP for the Table A mid-rate of a currency on a specific
// day. A 404 means no table was published that day (weekend, holiday, data
// gap) and is reported as found=false, not as an error.
func (c *Client) FetchRate(ctx context.Context, currency string, day models.Date) (decimal.Decimal, bool, error) {
	url := fmt.Sprintf("%s/exchangerates/rates/A/%s/%s/", c.baseURL, strings.ToUpper(currency), day.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("building NBP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("NBP request for %s on %s: %w", currency, day, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, false, fmt.Errorf("NBP API returned status %d for %s on %s", resp.StatusCode, currency, day)
	}

	var parsed rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Zero, false, fmt.Errorf("decoding NBP response for %s on %s: %w", currency, day, err)
	}
	if len(parsed.Rates) == 0 {
		return decimal.Zero, false, nil
	}

	mid, err := decimal.NewFromString(parsed.Rates[0].Mid.String())
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid mid rate %q for %s on %s: %w", parsed.Rates[0].Mid, currency, day, err)
	}

	logger.L.Debug("Fetched NBP rate", "currency", currency, "date", day.String(), "mid", mid.String())
	return mid, true, nil
}
