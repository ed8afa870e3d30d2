package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newStubPostgREST serves canned rows per table and records the query
// parameters of every request.
func newStubPostgREST(t *testing.T, responses map[string]string) (*httptest.Server, map[string]url.Values) {
	t.Helper()

	queries := make(map[string]url.Values)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
		queries[table] = r.URL.Query()

		body, ok := responses[table]
		if !ok {
			body = "[]"
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, queries
}

func TestLoadSnapshot_QueriesAndDecoding(t *testing.T) {
	server, queries := newStubPostgREST(t, map[string]string{
		"restaurants": `{"id":"rest-1","name":"Pizzaria Bella Napoli","instance_key":"inst-1"}`,
		"products":    `[{"id":"p1","restaurant_id":"rest-1","name":"Pizza","category":"Pizzas","price":30,"active":true}]`,
		"delivery_zones": `[{"id":"z1","restaurant_id":"rest-1","neighborhood":"Centro","delivery_fee":5,` +
			`"delivery_time_min":30,"delivery_time_max":45,"active":true}]`,
		"promotions": `[{"id":"pr1","restaurant_id":"rest-1","name":"Terça da Pizza","discount_percentage":20,` +
			`"active":true,"end_date":"2030-01-01T00:00:00Z"}]`,
	})

	store, err := NewStore(server.URL, "test-key", discardLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	before := time.Now().UTC().Add(-time.Minute)
	snap, err := store.LoadSnapshot(context.Background(), "rest-1")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if got := queries["restaurants"].Get("is_active"); got != "" {
		t.Errorf("Restaurant lookup must not filter a nonexistent column, got is_active=%q", got)
	}
	if got := queries["restaurants"].Get("id"); got != "eq.rest-1" {
		t.Errorf("Restaurant lookup must filter by id, got id=%q", got)
	}

	for _, table := range []string{"products", "delivery_zones", "promotions"} {
		if got := queries[table].Get("active"); got != "eq.true" {
			t.Errorf("%s query must filter active=eq.true, got active=%q", table, got)
		}
		if got := queries[table].Get("restaurant_id"); got != "eq.rest-1" {
			t.Errorf("%s query must be tenant scoped, got restaurant_id=%q", table, got)
		}
	}

	// Promotions must be bounded by end date so expired ones never load.
	endDate := queries["promotions"].Get("end_date")
	if !strings.HasPrefix(endDate, "gte.") {
		t.Fatalf("Promotions query must bound end_date with gte, got end_date=%q", endDate)
	}
	cutoff, err := time.Parse(time.RFC3339, strings.TrimPrefix(endDate, "gte."))
	if err != nil {
		t.Fatalf("end_date cutoff %q is not RFC3339: %v", endDate, err)
	}
	if cutoff.Before(before) {
		t.Errorf("end_date cutoff %v should be the current time, not the past", cutoff)
	}

	if snap.Restaurant.Name != "Pizzaria Bella Napoli" {
		t.Errorf("Unexpected restaurant: %+v", snap.Restaurant)
	}
	if len(snap.Products) != 1 || snap.Products[0].Category != "Pizzas" {
		t.Errorf("Unexpected products: %+v", snap.Products)
	}
	if len(snap.Zones) != 1 || snap.Zones[0].Neighborhood != "Centro" ||
		snap.Zones[0].DeliveryTimeMin != 30 || snap.Zones[0].DeliveryTimeMax != 45 {
		t.Errorf("Unexpected zones: %+v", snap.Zones)
	}
	if len(snap.Promotions) != 1 || snap.Promotions[0].Name != "Terça da Pizza" {
		t.Errorf("Unexpected promotions: %+v", snap.Promotions)
	}
}

func TestGetTenant_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"JSON object requested, multiple (or no) rows returned"}`, http.StatusNotAcceptable)
	}))
	t.Cleanup(server.Close)

	store, err := NewStore(server.URL, "test-key", discardLogger())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if _, err := store.GetTenant(context.Background(), "missing"); err == nil {
		t.Fatal("Expected error for missing tenant")
	}
}
