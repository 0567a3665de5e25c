package edinet

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"rental_valuation/pkg/core/apperr"
)

// wednesday is 2025-06-25 10:00 JST.
var wednesday = time.Date(2025, 6, 25, 10, 0, 0, 0, jst)

type fakeRegistry struct {
	mu       sync.Mutex
	dates    []string
	keys     []string
	byDate   map[string][]Document
	failDate map[string]int
}

func (f *fakeRegistry) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/documents.json", func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if r.URL.Query().Get("type") != "2" {
			t.Errorf("expected type=2, got %q", r.URL.Query().Get("type"))
		}
		f.mu.Lock()
		f.dates = append(f.dates, date)
		f.keys = append(f.keys, r.URL.Query().Get("Subscription-Key"))
		status := f.failDate[date]
		docs := f.byDate[date]
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		resp := ListResponse{Results: docs}
		resp.Metadata.Status = "200"
		json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func annualReport(id, filer string) Document {
	return Document{DocID: id, FilerName: filer, OrdinanceCode: "010", FormCode: "030000", DocTypeCode: "120"}
}

func newTestClient(t *testing.T, f *fakeRegistry, opts ...Option) (*Client, func()) {
	srv := httptest.NewServer(f.handler(t))
	opts = append([]Option{WithClock(func() time.Time { return wednesday }), WithThrottle(0)}, opts...)
	return NewClient(srv.URL, "", time.Second, opts...), srv.Close
}

func TestSearchDocuments_FiltersAnnualReportsByFilerName(t *testing.T) {
	f := &fakeRegistry{byDate: map[string][]Document{
		"2025-06-25": {
			annualReport("S100A", "株式会社ナガオカ"),
			{DocID: "S100B", FilerName: "株式会社ナガオカ", OrdinanceCode: "010", FormCode: "043000"},
			annualReport("S100C", "トヨタ自動車株式会社"),
		},
	}}
	c, done := newTestClient(t, f)
	defer done()

	docs, err := c.SearchDocuments(t.Context(), "ナガオカ", wednesday)
	if err != nil {
		t.Fatalf("SearchDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].DocID != "S100A" {
		t.Fatalf("unexpected docs: %+v", docs)
	}

	// Substring containment is case-sensitive.
	f.byDate["2025-06-25"] = []Document{annualReport("S100D", "ABC Holdings")}
	docs, err = c.SearchDocuments(t.Context(), "abc", wednesday)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no case-insensitive match, got %+v", docs)
	}
}

func TestSearchDocuments_NonSuccessStatusPropagates(t *testing.T) {
	f := &fakeRegistry{failDate: map[string]int{"2025-06-25": http.StatusServiceUnavailable}}
	c, done := newTestClient(t, f)
	defer done()

	_, err := c.SearchDocuments(t.Context(), "ナガオカ", wednesday)
	if !errors.Is(err, ErrRegistryUnavailable) {
		t.Fatalf("expected ErrRegistryUnavailable, got %v", err)
	}
	if !errors.Is(err, apperr.ErrTransport) {
		t.Fatalf("expected transport kind, got %v", err)
	}
}

func TestSearchDocuments_MetadataErrorWithHTTP200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"metadata":{"status":"401","message":"Access denied due to invalid subscription key."}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key", time.Second)
	_, err := c.SearchDocuments(t.Context(), "ナガオカ", wednesday)
	if !errors.Is(err, ErrRegistryUnavailable) {
		t.Fatalf("expected ErrRegistryUnavailable, got %v", err)
	}
}

func TestSearchDocuments_SendsSubscriptionKeyWhenConfigured(t *testing.T) {
	f := &fakeRegistry{}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "secret", time.Second).SearchDocuments(t.Context(), "x", wednesday); err != nil {
		t.Fatal(err)
	}
	if _, err := NewClient(srv.URL, "", time.Second).SearchDocuments(t.Context(), "x", wednesday); err != nil {
		t.Fatal(err)
	}
	if f.keys[0] != "secret" || f.keys[1] != "" {
		t.Errorf("unexpected keys sent: %q", f.keys)
	}
}

func TestSearchExtendedPeriod_StopsAtFirstMatchingDate(t *testing.T) {
	f := &fakeRegistry{byDate: map[string][]Document{
		"2025-06-11": {annualReport("S100A", "株式会社ナガオカ")},
		"2025-06-04": {annualReport("S100Z", "株式会社ナガオカ")},
	}}
	c, done := newTestClient(t, f)
	defer done()

	docs, err := c.SearchExtendedPeriod(t.Context(), "ナガオカ")
	if err != nil {
		t.Fatalf("SearchExtendedPeriod: %v", err)
	}
	if len(docs) != 1 || docs[0].DocID != "S100A" {
		t.Fatalf("unexpected docs: %+v", docs)
	}
	want := []string{"2025-06-25", "2025-06-18", "2025-06-11"}
	if strings.Join(f.dates, ",") != strings.Join(want, ",") {
		t.Errorf("queried %v, want %v", f.dates, want)
	}
}

func TestSearchExtendedPeriod_ToleratesPartialFailures(t *testing.T) {
	f := &fakeRegistry{
		failDate: map[string]int{"2025-06-25": http.StatusInternalServerError},
		byDate:   map[string][]Document{"2025-06-18": {annualReport("S100A", "株式会社ナガオカ")}},
	}
	c, done := newTestClient(t, f)
	defer done()

	docs, err := c.SearchExtendedPeriod(t.Context(), "ナガオカ")
	if err != nil {
		t.Fatalf("a single failed date must not abort the scan: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("unexpected docs: %+v", docs)
	}
}

func TestSearchExtendedPeriod_AllDatesFail(t *testing.T) {
	fail := map[string]int{}
	for _, d := range ScanDates(wednesday, DefaultLookbackDays, DefaultStepDays) {
		fail[d.Format(dateLayout)] = http.StatusBadGateway
	}
	f := &fakeRegistry{failDate: fail}
	c, done := newTestClient(t, f)
	defer done()

	_, err := c.SearchExtendedPeriod(t.Context(), "ナガオカ")
	if !errors.Is(err, apperr.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(f.dates) != 13 {
		t.Errorf("expected 13 sampled dates, got %d", len(f.dates))
	}
}

func TestSearchExtendedPeriod_NoMatchScansWholeWindow(t *testing.T) {
	f := &fakeRegistry{}
	c, done := newTestClient(t, f)
	defer done()

	docs, err := c.SearchExtendedPeriod(t.Context(), "存在しない会社")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no docs, got %+v", docs)
	}
	if len(f.dates) != 13 {
		t.Errorf("expected 13 sampled dates, got %d", len(f.dates))
	}
	for _, d := range f.dates {
		day, _ := time.ParseInLocation(dateLayout, d, jst)
		if isWeekend(day) {
			t.Errorf("weekend date queried: %s", d)
		}
	}
}

func TestSearchExtendedPeriod_DeduplicatesByDocID(t *testing.T) {
	f := &fakeRegistry{byDate: map[string][]Document{
		"2025-06-25": {
			annualReport("S100A", "株式会社ナガオカ"),
			annualReport("S100A", "株式会社ナガオカ"),
			annualReport("S100B", "株式会社ナガオカ"),
		},
	}}
	c, done := newTestClient(t, f)
	defer done()

	docs, err := c.SearchExtendedPeriod(t.Context(), "ナガオカ")
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, d := range docs {
		if seen[d.DocID] {
			t.Fatalf("duplicate doc id %s in %+v", d.DocID, docs)
		}
		seen[d.DocID] = true
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 unique docs, got %d", len(docs))
	}
}

func TestSearchExtendedPeriod_WeekendStartAnchorsOnFriday(t *testing.T) {
	f := &fakeRegistry{}
	saturday := time.Date(2025, 6, 28, 9, 0, 0, 0, jst)
	c, done := newTestClient(t, f, WithClock(func() time.Time { return saturday }))
	defer done()

	if _, err := c.SearchExtendedPeriod(t.Context(), "x"); err != nil {
		t.Fatal(err)
	}
	if len(f.dates) == 0 || f.dates[0] != "2025-06-27" {
		t.Errorf("expected scan to start on Friday 2025-06-27, got %v", f.dates)
	}
}

func TestScanDates_NeverContainsWeekends(t *testing.T) {
	for offset := 0; offset < 14; offset++ {
		start := wednesday.AddDate(0, 0, offset)
		for _, step := range []int{1, 3, 7} {
			for _, d := range ScanDates(start, 90, step) {
				if isWeekend(d) {
					t.Fatalf("start=%s step=%d produced weekend %s", start.Format(dateLayout), step, d.Format(dateLayout))
				}
			}
		}
	}
}

func TestRecentBusinessDay(t *testing.T) {
	tests := map[string]string{
		"2025-06-25": "2025-06-25", // Wednesday
		"2025-06-28": "2025-06-27", // Saturday
		"2025-06-29": "2025-06-27", // Sunday
	}
	for in, want := range tests {
		d, _ := time.ParseInLocation(dateLayout, in, jst)
		if got := RecentBusinessDay(d).Format(dateLayout); got != want {
			t.Errorf("RecentBusinessDay(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestFetchDocumentContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/documents/S100CSV", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "5" {
			t.Errorf("expected type=5")
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("賃貸等不動産 帳簿価額,2845000000\n"))
	})
	mux.HandleFunc("/documents/S100ZIP", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("PK\x03\x04binary"))
	})
	mux.HandleFunc("/documents/S100JSON", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"metadata":{"status":"404","message":"Not Found"}}`))
	})
	mux.HandleFunc("/documents/S100GONE", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := NewClient(srv.URL, "", time.Second)

	t.Run("csv", func(t *testing.T) {
		got, err := c.FetchDocumentContent(t.Context(), "S100CSV")
		if err != nil {
			t.Fatal(err)
		}
		if !got.Available || got.Format != "csv" || !strings.Contains(got.Text, "賃貸等不動産") {
			t.Errorf("unexpected content: %+v", got)
		}
	})

	for _, id := range []string{"S100ZIP", "S100JSON", "S100GONE"} {
		t.Run(id, func(t *testing.T) {
			got, err := c.FetchDocumentContent(t.Context(), id)
			if err != nil {
				t.Fatalf("fallback must not error: %v", err)
			}
			if got.Available || got.Reason == "" {
				t.Errorf("expected unavailable with reason, got %+v", got)
			}
		})
	}

	t.Run("missing id", func(t *testing.T) {
		_, err := c.FetchDocumentContent(t.Context(), " ")
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestFetchDocumentContent_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).FetchDocumentContent(t.Context(), "S100A")
	if !errors.Is(err, apperr.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
