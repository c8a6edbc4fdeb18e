package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"facturelec/internal/core"
	"facturelec/internal/services"
	"facturelec/internal/storage"
)

type fakeAPI struct {
	records      map[string]core.InvoiceRecord
	metricsCalls atomic.Int64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{records: make(map[string]core.InvoiceRecord)}
}

func (f *fakeAPI) Ingest(_ context.Context, rawBundle []byte) (core.InvoiceRecord, error) {
	var raw map[string]any
	if err := json.Unmarshal(rawBundle, &raw); err != nil || raw == nil {
		return core.InvoiceRecord{}, services.ErrInvalidBundle
	}
	rec := core.InvoiceRecord{ID: "generated"}
	if id, ok := raw["id"].(string); ok {
		rec.ID = id
	}
	if p, ok := raw["provider"].(string); ok {
		rec.Provider = p
	}
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeAPI) Get(_ context.Context, id string) (core.InvoiceRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return core.InvoiceRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

func (f *fakeAPI) List(_ context.Context) ([]core.InvoiceRecord, error) {
	out := make([]core.InvoiceRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeAPI) Delete(_ context.Context, id string) error {
	if _, ok := f.records[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeAPI) Metrics(_ context.Context) (core.Metrics, error) {
	f.metricsCalls.Add(1)
	return core.Metrics{TotalAmount: 42}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	s := NewServer(":0", api, 1<<20, time.Minute)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, api
}

func doRequest(s *Server, method, path string, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, r)
	return w
}

func TestServer_IngestInvoice(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/invoices", `{"id":"inv-1","provider":"ONEE"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", w.Code, w.Body)
	}

	var rec core.InvoiceRecord
	if err := json.NewDecoder(w.Body).Decode(&rec); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rec.ID != "inv-1" || rec.Provider != "ONEE" {
		t.Errorf("response record = %+v", rec)
	}
}

func TestServer_IngestInvalidBundle(t *testing.T) {
	s, _ := newTestServer(t)

	for _, body := range []string{`not json`, `[1,2]`, `null`} {
		w := doRequest(s, http.MethodPost, "/api/invoices", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("POST %q status = %d, want 400", body, w.Code)
		}
	}
}

func TestServer_IngestTooLarge(t *testing.T) {
	api := newFakeAPI()
	s := NewServer(":0", api, 64, time.Minute) // 64-byte cap
	defer s.Shutdown(context.Background())

	big := `{"provider":"` + strings.Repeat("x", 200) + `"}`
	w := doRequest(s, http.MethodPost, "/api/invoices", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestServer_GetInvoice(t *testing.T) {
	s, api := newTestServer(t)
	api.records["inv-1"] = core.InvoiceRecord{ID: "inv-1", Provider: "Lydec"}

	w := doRequest(s, http.MethodGet, "/api/invoices/inv-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	w = doRequest(s, http.MethodGet, "/api/invoices/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status for missing id = %d, want 404", w.Code)
	}
}

func TestServer_ListInvoices(t *testing.T) {
	s, api := newTestServer(t)
	api.records["a"] = core.InvoiceRecord{ID: "a"}
	api.records["b"] = core.InvoiceRecord{ID: "b"}

	w := doRequest(s, http.MethodGet, "/api/invoices", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Count    int                  `json:"count"`
		Invoices []core.InvoiceRecord `json:"invoices"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Invoices) != 2 {
		t.Errorf("count = %d, invoices = %d, want 2 each", resp.Count, len(resp.Invoices))
	}
}

func TestServer_DeleteInvoice(t *testing.T) {
	s, api := newTestServer(t)
	api.records["inv-1"] = core.InvoiceRecord{ID: "inv-1"}

	w := doRequest(s, http.MethodDelete, "/api/invoices/inv-1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	w = doRequest(s, http.MethodDelete, "/api/invoices/inv-1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestServer_DashboardCaching(t *testing.T) {
	s, api := newTestServer(t)

	for i := 0; i < 3; i++ {
		w := doRequest(s, http.MethodGet, "/api/dashboard", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	}
	if calls := api.metricsCalls.Load(); calls != 1 {
		t.Errorf("Metrics computed %d times, want 1 (cached)", calls)
	}

	// A write invalidates the cached dashboard.
	doRequest(s, http.MethodPost, "/api/invoices", `{"id":"x"}`)
	doRequest(s, http.MethodGet, "/api/dashboard", "")
	if calls := api.metricsCalls.Load(); calls != 2 {
		t.Errorf("Metrics computed %d times after write, want 2", calls)
	}
}

func TestServer_Export(t *testing.T) {
	s, api := newTestServer(t)
	api.records["a"] = core.InvoiceRecord{ID: "a", Provider: "ONEE"}

	w := doRequest(s, http.MethodGet, "/api/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %s, want XLSX", ct)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "attachment") {
		t.Error("export should be served as an attachment")
	}
	if w.Body.Len() == 0 {
		t.Error("export body should not be empty")
	}
}

func TestServer_HealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	if w := doRequest(s, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", w.Code)
	}
	if w := doRequest(s, http.MethodGet, "/readyz", ""); w.Code != http.StatusOK {
		t.Errorf("/readyz status = %d, want 200", w.Code)
	}
	w := doRequest(s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Errorf("/metrics body = %s", w.Body)
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/api/invoices", "")
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %s, want nosniff", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %s, want DENY", got)
	}
}

func TestServer_RateLimit(t *testing.T) {
	s, _ := newTestServer(t)

	limited := false
	for i := 0; i < requestsPerMinute+5; i++ {
		w := doRequest(s, http.MethodPost, "/api/invoices", `{"id":"spam"}`)
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("sustained writes from one client should hit the rate limit")
	}
}
