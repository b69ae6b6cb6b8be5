package maps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"googlemaps.github.io/maps"
)

type recordedRequest struct {
	path  string
	query map[string]string
}

func newFakeMaps(t *testing.T, body string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		reqs = append(reqs, recordedRequest{path: r.URL.Path, query: q})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestRoadDistanceKm_RoundsMeters(t *testing.T) {
	srv, reqs := newFakeMaps(t, `{"status":"OK","routes":[{"legs":[{"distance":{"value":65432,"text":"65,4 km"},"duration":{"value":3600,"text":"1 h"}}]}]}`)
	svc, err := NewRouteService("test-key", maps.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	km, err := svc.RoadDistanceKm(context.Background(), "Paris", "Reims")
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if km == nil || *km != 65 {
		t.Fatalf("expected 65 km, got %v", km)
	}

	if len(*reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*reqs))
	}
	got := (*reqs)[0]
	if !strings.HasSuffix(got.path, "/directions/json") {
		t.Errorf("unexpected path %s", got.path)
	}
	if got.query["origin"] != "Paris" || got.query["destination"] != "Reims" {
		t.Errorf("unexpected origin/destination: %v", got.query)
	}
	if got.query["mode"] != "driving" || got.query["language"] != "fr" {
		t.Errorf("expected driving mode in french, got %v", got.query)
	}
}

func TestRoadDistanceKm_HalfKilometreRoundsUp(t *testing.T) {
	srv, _ := newFakeMaps(t, `{"status":"OK","routes":[{"legs":[{"distance":{"value":40500,"text":"40,5 km"},"duration":{"value":1800,"text":"30 min"}}]}]}`)
	svc, _ := NewRouteService("test-key", maps.WithBaseURL(srv.URL))

	km, err := svc.RoadDistanceKm(context.Background(), "A", "B")
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if km == nil || *km != 41 {
		t.Fatalf("expected 41 km, got %v", km)
	}
}

func TestRoadDistanceKm_NoRouteIsNil(t *testing.T) {
	for _, body := range []string{
		`{"status":"ZERO_RESULTS","routes":[]}`,
		`{"status":"NOT_FOUND","routes":[]}`,
	} {
		srv, _ := newFakeMaps(t, body)
		svc, _ := NewRouteService("test-key", maps.WithBaseURL(srv.URL))

		km, err := svc.RoadDistanceKm(context.Background(), "Nowhere", "Elsewhere")
		if err != nil {
			t.Fatalf("expected nil error for %s, got %v", body, err)
		}
		if km != nil {
			t.Fatalf("expected nil distance for %s, got %d", body, *km)
		}
	}
}

func TestRoadDistanceKm_ProviderErrorIsReturned(t *testing.T) {
	srv, _ := newFakeMaps(t, `{"status":"REQUEST_DENIED","error_message":"bad key","routes":[]}`)
	svc, _ := NewRouteService("test-key", maps.WithBaseURL(srv.URL))

	if _, err := svc.RoadDistanceKm(context.Background(), "Paris", "Lyon"); err == nil {
		t.Fatal("expected error for denied request")
	}
}

func TestRoadDistanceKm_ErrorMentioningNotFoundIsNotNoRoute(t *testing.T) {
	srv, _ := newFakeMaps(t, `{"status":"INVALID_REQUEST","error_message":"waypoint NOT_FOUND in request","routes":[]}`)
	svc, _ := NewRouteService("test-key", maps.WithBaseURL(srv.URL))

	km, err := svc.RoadDistanceKm(context.Background(), "Paris", "Lyon")
	if err == nil || km != nil {
		t.Fatalf("expected a provider error, got km=%v err=%v", km, err)
	}
}

func TestIsNoRoute(t *testing.T) {
	cases := []struct {
		err  string
		want bool
	}{
		{"maps: NOT_FOUND - ", true},
		{"maps: ZERO_RESULTS - ", true},
		{"maps: INVALID_REQUEST - origin NOT_FOUND", false},
		{"Get \"https://maps.googleapis.com\": dial tcp: NOT_FOUND", false},
	}
	for _, tc := range cases {
		if got := isNoRoute(errors.New(tc.err)); got != tc.want {
			t.Errorf("isNoRoute(%q) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestSuggest_RestrictsToFrenchAddresses(t *testing.T) {
	srv, reqs := newFakeMaps(t, `{"status":"OK","predictions":[{"description":"10 Rue de Rivoli, Paris, France","place_id":"p1"},{"description":"10 Rue de Rivoli, Lille, France","place_id":"p2"}]}`)
	svc, err := NewPlacesService("test-key", maps.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	got, err := svc.Suggest(context.Background(), "10 rue de rivoli")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(got) != 2 || got[0].PlaceID != "p1" || got[1].Description != "10 Rue de Rivoli, Lille, France" {
		t.Fatalf("unexpected suggestions: %+v", got)
	}
	q := (*reqs)[0].query
	if q["components"] != "country:fr" {
		t.Errorf("expected country:fr component, got %q", q["components"])
	}
	if q["types"] != "address" || q["language"] != "fr" {
		t.Errorf("expected address type in french, got %v", q)
	}
}

func TestSuggest_ShortInputSkipsAPI(t *testing.T) {
	srv, reqs := newFakeMaps(t, `{"status":"OK","predictions":[]}`)
	svc, _ := NewPlacesService("test-key", maps.WithBaseURL(srv.URL))

	got, err := svc.Suggest(context.Background(), " pa ")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(got) != 0 || len(*reqs) != 0 {
		t.Fatalf("expected no call for short input, got %d suggestions / %d calls", len(got), len(*reqs))
	}
}
