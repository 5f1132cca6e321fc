// Package benchmark fetches the central-bank key rate used as the APR
// reference for debt danger scoring.
package benchmark

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// DefaultURL is the Bank of Russia DailyInfo SOAP endpoint.
const DefaultURL = "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	lookbackDays   = 30
)

var (
	// ErrNoRate means the response carried no usable rate.
	ErrNoRate = errors.New("benchmark: no key rate in response")
	// ErrUnavailable indicates the service refused or throttled the request.
	ErrUnavailable = errors.New("benchmark: service unavailable")
)

// Rate is one published key rate.
type Rate struct {
	Percent   decimal.Decimal `json:"percent"`
	Date      time.Time       `json:"date"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Client fetches key rates over SOAP.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a client for url, or DefaultURL when url is empty.
func NewClient(url string) *Client {
	url = strings.TrimSpace(url)
	if url == "" {
		url = DefaultURL
	}
	return &Client{url: url, http: &http.Client{}}
}

// FetchKeyRate returns the most recent key rate published in the 30 days
// before now.
func (c *Client) FetchKeyRate(ctx context.Context, now time.Time) (Rate, error) {
	body, err := c.post(ctx, buildSOAPRequest(now.AddDate(0, 0, -lookbackDays), now))
	if err != nil {
		return Rate{}, err
	}
	r, err := parseKeyRate(body)
	if err != nil {
		return Rate{}, err
	}
	r.FetchedAt = now
	return r, nil
}

// Ceiling is the APR at which a debt scores the full APR component: the key
// rate plus a lending margin, both in percent.
func Ceiling(r Rate, marginPercent float64) float64 {
	return r.Percent.Add(decimal.NewFromFloat(marginPercent)).Round(2).InexactFloat64()
}

func buildSOAPRequest(from, to time.Time) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
  <soap12:Body>
    <KeyRate xmlns="http://web.cbr.ru/">
      <fromDate>%s</fromDate>
      <ToDate>%s</ToDate>
    </KeyRate>
  </soap12:Body>
</soap12:Envelope>`, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

func (c *Client) post(ctx context.Context, envelope string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(envelope))
	if err != nil {
		return nil, fmt.Errorf("benchmark: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/KeyRate")
	req.Header.Set("User-Agent", "github.com/theirongolddev/finpilot/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("benchmark: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, ErrUnavailable
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("benchmark: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("benchmark: reading response: %w", err)
	}
	return body, nil
}

// parseKeyRate picks the latest dated KR row from the diffgram.
func parseKeyRate(body []byte) (Rate, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return Rate{}, fmt.Errorf("benchmark: parsing XML: %w", err)
	}

	var (
		best  Rate
		found bool
	)
	for _, kr := range doc.FindElements("//diffgram/KeyRate/KR") {
		rateEl := kr.FindElement("./Rate")
		dateEl := kr.FindElement("./DT")
		if rateEl == nil || dateEl == nil {
			continue
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(rateEl.Text()))
		if err != nil {
			continue
		}
		dt, err := time.Parse(time.RFC3339, strings.TrimSpace(dateEl.Text()))
		if err != nil {
			continue
		}
		if !found || dt.After(best.Date) {
			best = Rate{Percent: pct, Date: dt}
			found = true
		}
	}
	if !found {
		return Rate{}, ErrNoRate
	}
	return best, nil
}
