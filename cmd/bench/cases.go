// README: Smoke cases for the convoyage API; HTTP, DB, Redis and throughput checks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

const (
	msgSiretInvalid     = "Le numéro SIRET doit contenir 14 chiffres"
	msgAddressesMissing = "Veuillez renseigner les adresses de départ et d'arrivée"
)

func fullDraft() map[string]any {
	return map[string]any{
		"departure_location": "12 Rue de la Paix, 75002 Paris, France",
		"departure_selected": true,
		"arrival_location":   "1 Place Drouet d'Erlon, 51100 Reims, France",
		"arrival_selected":   true,
		"vehicle_brand":      "Peugeot",
		"vehicle_model":      "308",
		"license_plate":      "AB-123-CD",
		"client_name":        "Bench Runner",
		"client_email":       "bench@example.fr",
		"client_phone":       "0600000000",
	}
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "DB reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "Redis reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "FAIL", Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Migration: apply (optional)",
			Focus: "Apply migration SQL",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: "SKIP", Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "Tables from the migration exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
					if !exists {
						return Result{Status: "FAIL", Note: "missing table: " + t}
					}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Rates: active tiers present",
			Focus: "Seeded rate table",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				var n int
				if err := r.db.QueryRow(ctx, "SELECT count(*) FROM pricing_rates WHERE is_active").Scan(&n); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if n == 0 {
					return Result{Status: "PENDING", Note: "no active rates; prices come from the fallback table"}
				}
				return Result{Status: "PASS", Note: fmt.Sprintf("active=%d", n)}
			},
		},

		httpCaseMethod("API: health", http.MethodGet, base+"/health", nil, []int{200}, []int{503}),
		httpCaseMethod("API: metrics exposed", http.MethodGet, base+"/metrics", nil, []int{200}, []int{404}),

		// Pricing
		jsonCase("Pricing: 55 km individual = 121.00", http.MethodGet, base+"/api/pricing/quote?distance_km=55&customer_type=individual", nil, 200, "price", "121.00"),
		jsonCase("Pricing: 65 km professional = 118.30", http.MethodGet, base+"/api/pricing/quote?distance_km=65&customer_type=professional", nil, 200, "price", "118.30"),
		httpCaseMethod("Pricing: distance 0 -> 400", http.MethodGet, base+"/api/pricing/quote?distance_km=0", nil, []int{400}, nil),
		httpCaseMethod("Pricing: unknown customer type -> 400", http.MethodGet, base+"/api/pricing/quote?distance_km=10&customer_type=fleet", nil, []int{400}, nil),

		// Quote workflow
		httpCase("Quote: create draft", base+"/api/quotes", fullDraft(), []int{201}, nil),
		{
			Name:  "Quote: distance without addresses -> 422",
			Focus: "Distance gate",
			Run: func(ctx context.Context, r *Runner) Result {
				id, err := r.createDraft(ctx, map[string]any{"vehicle_brand": "Renault"})
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return r.expectError(ctx, base+"/api/quotes/"+id+"/distance", 422, msgAddressesMissing)
			},
		},
		{
			Name:  "Quote: 13-digit SIRET rejected before store",
			Focus: "Submission validation",
			Run: func(ctx context.Context, r *Runner) Result {
				body := fullDraft()
				body["customer_type"] = "professional"
				body["company_name"] = "Garage Bench"
				body["siret_number"] = "1234567890123"
				id, err := r.createDraft(ctx, body)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return r.expectError(ctx, base+"/api/quotes/"+id+"/submit", 422, msgSiretInvalid)
			},
		},
		{
			Name:  "Quote: distance via maps provider",
			Focus: "Road distance + price",
			Run: func(ctx context.Context, r *Runner) Result {
				id, err := r.createDraft(ctx, fullDraft())
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				start := time.Now()
				status, body, err := r.do(ctx, http.MethodPost, base+"/api/quotes/"+id+"/distance", nil)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				latency := time.Since(start)
				switch {
				case status == 200 && body["status"] == "priced":
					return Result{Status: "PASS", Latency: latency, Note: fmt.Sprintf("km=%v price=%v", body["distance_km"], body["price_formatted"])}
				case status == 422:
					return Result{Status: "PENDING", Latency: latency, Note: fmt.Sprintf("%v", body["error"])}
				default:
					return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
			},
		},
		{
			Name:  "Concurrency: parallel edits on one draft",
			Focus: "Every edit is applied exactly once",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentEdits(ctx, r, base)
			},
		},

		// Admin
		httpCaseMethod("Admin: rates without token -> 401", http.MethodGet, base+"/api/admin/rates", nil, []int{401}, []int{404}),
		{
			Name:  "Admin: list requests",
			Focus: "Admin token accepted",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.cfg.AdminToken == "" {
					return Result{Status: "SKIP", Note: "admin-token not set"}
				}
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/admin/requests?limit=5", nil)
				req.Header.Set("Authorization", "Bearer "+r.cfg.AdminToken)
				resp, err := r.httpc.Do(req)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				if resp.StatusCode != 200 {
					return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", resp.StatusCode)}
				}
				return Result{Status: "PASS"}
			},
		},

		manualCase("Rates: cache refresh after 5 min", "edit a rate in DB and observe the price change within the TTL"),
		manualCase("Error: DB down -> fallback prices", "stop Postgres and check /api/pricing/quote still answers"),
		manualCase("Submit: rate limit", "submit repeatedly from one IP and expect 429"),

		// Performance
		{
			Name:  "Perf: price preview throughput",
			Focus: "Cached rate lookups",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodGet, base+"/api/pricing/quote?distance_km=120&customer_type=individual", nil)
			},
		},
		{
			Name:  "Perf: draft creation throughput",
			Focus: "Redis draft writes",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodPost, base+"/api/quotes", fullDraft())
			},
		},
	}
}

func (r *Runner) do(ctx context.Context, method, url string, body any) (int, map[string]any, error) {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out, nil
}

func (r *Runner) createDraft(ctx context.Context, body map[string]any) (string, error) {
	status, out, err := r.do(ctx, http.MethodPost, r.cfg.BaseURL+"/api/quotes", body)
	if err != nil {
		return "", err
	}
	id, _ := out["id"].(string)
	if status != 201 || id == "" {
		return "", fmt.Errorf("create draft: status=%d", status)
	}
	return id, nil
}

func (r *Runner) expectError(ctx context.Context, url string, wantStatus int, wantMsg string) Result {
	start := time.Now()
	status, body, err := r.do(ctx, http.MethodPost, url, nil)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	latency := time.Since(start)
	if status != wantStatus || body["error"] != wantMsg {
		return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d error=%v", status, body["error"])}
	}
	return Result{Status: "PASS", Latency: latency}
}

func httpCase(name, url string, body any, okStatuses, pendingStatuses []int) TestCase {
	return httpCaseMethod(name, http.MethodPost, url, body, okStatuses, pendingStatuses)
}

func httpCaseMethod(name, method, url string, body any, okStatuses, pendingStatuses []int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			var reader io.Reader
			if body != nil {
				b, _ := json.Marshal(body)
				reader = strings.NewReader(string(b))
			}
			req, _ := http.NewRequestWithContext(ctx, method, url, reader)
			req.Header.Set("Content-Type", "application/json")
			start := time.Now()
			resp, err := r.httpc.Do(req)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			latency := time.Since(start)

			if contains(okStatuses, resp.StatusCode) {
				return Result{Status: "PASS", Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			if contains(pendingStatuses, resp.StatusCode) {
				return Result{Status: "PENDING", Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
		},
	}
}

// jsonCase checks the status code and one string field of the JSON response.
func jsonCase(name, method, url string, body any, wantStatus int, field, want string) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, out, err := r.do(ctx, method, url, body)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			latency := time.Since(start)
			if status != wantStatus || out[field] != want {
				return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d %s=%v", status, field, out[field])}
			}
			return Result{Status: "PASS", Latency: latency}
		},
	}
}

func manualCase(name, note string) TestCase {
	return TestCase{
		Name:  name,
		Focus: "Manual",
		Run: func(ctx context.Context, r *Runner) Result {
			return Result{Status: "SKIP", Note: note}
		},
	}
}

func concurrentEdits(ctx context.Context, r *Runner, base string) Result {
	id, err := r.createDraft(ctx, fullDraft())
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	url := base + "/api/quotes/" + id

	wg := sync.WaitGroup{}
	mu := sync.Mutex{}
	ok, conflicts := 0, 0
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, _, err := r.do(ctx, http.MethodPatch, url, map[string]any{"notes": fmt.Sprintf("edit %d", i)})
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch status {
			case 200:
				ok++
			case 409:
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	_, draft, err := r.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	version, _ := draft["version"].(float64)
	if int(version) != ok {
		return Result{Status: "FAIL", Note: fmt.Sprintf("ok=%d version=%v", ok, version)}
	}
	return Result{Status: "PASS", Note: fmt.Sprintf("ok=%d conflicts=%d", ok, conflicts)}
}

func perfLoad(ctx context.Context, r *Runner, method, url string, payload any) Result {
	var b []byte
	if payload != nil {
		b, _ = json.Marshal(payload)
	}
	end := time.Now().Add(r.cfg.Duration)
	var count int64
	var errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				req, _ := http.NewRequestWithContext(ctx, method, url, strings.NewReader(string(b)))
				req.Header.Set("Content-Type", "application/json")
				resp, err := r.httpc.Do(req)
				if err != nil {
					mu.Lock()
					errCount++
					mu.Unlock()
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				mu.Lock()
				count++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: "FAIL", Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	cleaned := strings.Join(filtered, "\n")
	parts := strings.Split(cleaned, ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
