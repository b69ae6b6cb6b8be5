package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"convoyage/internal/modules/pricing"
)

func TestPricingObserver(t *testing.T) {
	Init(nil)
	obs := PricingObserver{}

	okBefore := testutil.ToFloat64(rateFetchTotal.WithLabelValues(resultSuccess))
	errBefore := testutil.ToFloat64(rateFetchTotal.WithLabelValues(resultError))
	obs.RateFetch(nil, 6, 10*time.Millisecond)
	obs.RateFetch(errors.New("connection refused"), 0, time.Second)

	if got := testutil.ToFloat64(rateFetchTotal.WithLabelValues(resultSuccess)) - okBefore; got != 1 {
		t.Fatalf("expected 1 successful fetch, got %v", got)
	}
	if got := testutil.ToFloat64(rateFetchTotal.WithLabelValues(resultError)) - errBefore; got != 1 {
		t.Fatalf("expected 1 failed fetch, got %v", got)
	}
	if got := testutil.ToFloat64(rateCacheSize); got != 6 {
		t.Fatalf("failed fetch must not reset cache size, got %v", got)
	}

	fallback := rateResolutions.WithLabelValues(string(pricing.CustomerIndividual), string(pricing.SourceFallback))
	before := testutil.ToFloat64(fallback)
	obs.RateResolved(pricing.CustomerIndividual, pricing.SourceFallback)
	if got := testutil.ToFloat64(fallback) - before; got != 1 {
		t.Fatalf("expected fallback resolution counted, got %v", got)
	}
}

func TestCountersAndHandler(t *testing.T) {
	Init(nil)
	Init(nil)

	IncSubmission(SubmissionStored)
	IncDistanceLookup(DistanceNotFound)
	IncNotification(nil)
	ObserveHTTP("GET", "/api/quotes/:id", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{
		"convoyage_quote_submissions_total",
		"convoyage_distance_lookups_total",
		"convoyage_notifications_total",
		`convoyage_http_requests_total{method="GET",route="/api/quotes/:id",status="200"}`,
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in exposition", name)
		}
	}
}
