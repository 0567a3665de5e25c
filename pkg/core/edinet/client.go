// Package edinet provides EDINET API v2 integration for locating annual
// securities reports and fetching their tabular content.
// API documentation: https://disclosure2dl.edinet-fsa.go.jp/guide/static/disclosure/WZEK0110.html
package edinet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rental_valuation/pkg/core/apperr"
	"rental_valuation/pkg/core/extract"
	"rental_valuation/pkg/models"
)

const (
	// UserAgent identifies this client to the registry.
	UserAgent = "RentalValuation/1.0"

	// Document content types accepted by documents/{docID}.
	contentTypeZip = "1" // submitted documents and audit report (ZIP/XBRL)
	contentTypeCSV = "5" // XBRL converted to CSV

	listTypeMetadata = "2"

	dateLayout = "2006-01-02"

	DefaultLookbackDays = 90
	DefaultStepDays     = 7
	DefaultThrottle     = 100 * time.Millisecond
)

// ErrRegistryUnavailable marks a non-success answer from the registry.
var ErrRegistryUnavailable = errors.New("registry unavailable")

// Registry publishes on Japanese business days.
var jst = time.FixedZone("JST", 9*60*60)

// Client handles EDINET API requests.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	limiter      *rate.Limiter
	now          func() time.Time
	lookbackDays int
	stepDays     int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (tests use httptest servers).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock replaces time.Now for the extended scan.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithThrottle sets the minimum delay between scan requests. Zero disables it.
func WithThrottle(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithWindow overrides the lookback window and step of the extended scan.
func WithWindow(lookbackDays, stepDays int) Option {
	return func(c *Client) {
		if lookbackDays > 0 {
			c.lookbackDays = lookbackDays
		}
		if stepDays > 0 {
			c.stepDays = stepDays
		}
	}
}

// NewClient creates a registry client. apiKey may be empty; it is sent as
// Subscription-Key only when set. timeout bounds every single HTTP call.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		limiter:      rate.NewLimiter(rate.Every(DefaultThrottle), 1),
		now:          time.Now,
		lookbackDays: DefaultLookbackDays,
		stepDays:     DefaultStepDays,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchDocuments lists the filings of one calendar date and keeps annual
// securities reports whose filer name contains companyName (case-sensitive).
// A non-success answer is returned as a transport error wrapping
// ErrRegistryUnavailable.
func (c *Client) SearchDocuments(ctx context.Context, companyName string, date time.Time) ([]models.RegistryDocumentRef, error) {
	q := url.Values{}
	q.Set("date", date.Format(dateLayout))
	q.Set("type", listTypeMetadata)
	c.addKey(q)

	body, status, _, err := c.get(ctx, c.baseURL+"/documents.json?"+q.Encode())
	if err != nil {
		return nil, apperr.Transport("EDINET APIへの接続に失敗しました", err)
	}
	if status != http.StatusOK {
		return nil, apperr.Transport(fmt.Sprintf("EDINET API error: %d", status), ErrRegistryUnavailable)
	}

	var list ListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, apperr.Transport("EDINET APIの応答を解析できませんでした", err)
	}
	// Errors such as an invalid key arrive as HTTP 200 with a metadata status.
	if list.Metadata.Status != "" && list.Metadata.Status != "200" {
		return nil, apperr.Transport(
			fmt.Sprintf("EDINET API error: %s %s", list.Metadata.Status, list.Metadata.Message),
			ErrRegistryUnavailable)
	}

	var docs []models.RegistryDocumentRef
	for _, d := range list.Results {
		ref := d.Ref()
		if ref.IsAnnualReport() && strings.Contains(ref.FilerName, companyName) {
			docs = append(docs, ref)
		}
	}
	return docs, nil
}

// SearchExtendedPeriod walks back from the most recent business day in fixed
// steps, skipping weekends, and stops at the first date with a match. Individual date
// failures are logged and tolerated; only a scan where every sampled date
// failed returns an error. Results are deduplicated by document id.
func (c *Client) SearchExtendedPeriod(ctx context.Context, companyName string) ([]models.RegistryDocumentRef, error) {
	start := RecentBusinessDay(c.now())

	var (
		results  []models.RegistryDocumentRef
		attempts int
		failures int
		lastErr  error
	)

	for _, date := range ScanDates(start, c.lookbackDays, c.stepDays) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		attempts++
		docs, err := c.SearchDocuments(ctx, companyName, date)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			lastErr = err
			zap.L().Warn("edinet: date search failed",
				zap.String("date", date.Format(dateLayout)),
				zap.String("company", companyName),
				zap.Error(err))
			continue
		}

		results = append(results, docs...)
		if len(results) > 0 {
			break
		}
	}

	if attempts > 0 && failures == attempts {
		return nil, apperr.Transport("EDINETからのデータ取得に失敗しました", lastErr)
	}
	return Dedupe(results), nil
}

// ScanDates returns the dates SearchExtendedPeriod queries: start minus
// 0, step, 2*step, ... below lookback days, weekends removed.
func ScanDates(start time.Time, lookbackDays, stepDays int) []time.Time {
	if stepDays <= 0 {
		stepDays = DefaultStepDays
	}
	var dates []time.Time
	for i := 0; i < lookbackDays; i += stepDays {
		d := start.AddDate(0, 0, -i)
		if isWeekend(d) {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// RecentBusinessDay moves a weekend date back to the preceding Friday.
func RecentBusinessDay(t time.Time) time.Time {
	t = t.In(jst)
	switch t.Weekday() {
	case time.Sunday:
		return t.AddDate(0, 0, -2)
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	}
	return t
}

// Dedupe keeps the first occurrence of each document id.
func Dedupe(docs []models.RegistryDocumentRef) []models.RegistryDocumentRef {
	seen := make(map[string]bool, len(docs))
	out := make([]models.RegistryDocumentRef, 0, len(docs))
	for _, d := range docs {
		if seen[d.DocID] {
			continue
		}
		seen[d.DocID] = true
		out = append(out, d)
	}
	return out
}

// FetchDocumentContent downloads the CSV representation of a filing. When the
// registry refuses it, the binary ZIP/XBRL path is consulted instead; that
// path is not implemented and reports Available=false rather than failing,
// so callers can degrade to model extraction.
func (c *Client) FetchDocumentContent(ctx context.Context, docID string) (DocumentContent, error) {
	if strings.TrimSpace(docID) == "" {
		return DocumentContent{}, apperr.Validation("書類IDが指定されていません")
	}

	q := url.Values{}
	q.Set("type", contentTypeCSV)
	c.addKey(q)

	body, status, contentType, err := c.get(ctx, c.baseURL+"/documents/"+url.PathEscape(docID)+"?"+q.Encode())
	if err != nil {
		return DocumentContent{}, apperr.Transport("書類の取得に失敗しました", err)
	}

	// EDINET reports unknown ids and rejected keys as JSON.
	if status != http.StatusOK || strings.Contains(contentType, "application/json") {
		zap.L().Info("edinet: csv unavailable, trying binary path",
			zap.String("docID", docID), zap.Int("status", status))
		return c.fetchBinary(ctx, docID)
	}

	if isZip(body) {
		return DocumentContent{
			DocID:  docID,
			Format: "zip",
			Reason: "CSV(ZIP)形式の書類の展開は未実装です",
		}, nil
	}

	return DocumentContent{
		DocID:     docID,
		Available: true,
		Format:    "csv",
		Text:      extract.DecodeText(body),
	}, nil
}

// fetchBinary is the placeholder for the type=1 ZIP/XBRL representation.
func (c *Client) fetchBinary(_ context.Context, docID string) (DocumentContent, error) {
	return DocumentContent{
		DocID:  docID,
		Format: "xbrl",
		Reason: "XBRL(ZIP)形式（type=" + contentTypeZip + "）の解析は未実装です",
	}, nil
}

func (c *Client) addKey(q url.Values) {
	if c.apiKey != "" {
		q.Set("Subscription-Key", c.apiKey)
	}
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("EDINET request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, "", fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, resp.Header.Get("Content-Type"), nil
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func isZip(b []byte) bool {
	return bytes.HasPrefix(b, []byte("PK\x03\x04"))
}
