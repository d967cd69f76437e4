// README: Bench cases: backend connectivity, the waypoint/position/compass API flows and load checks.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"trailquest/internal/infra"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
	// token authenticates API cases as a fresh bench user.
	token string
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
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
			defer db.Close()
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer r.redis.Close()
	}
	if r.cfg.JWTSecret != "" {
		token, err := infra.SignDevToken(r.cfg.JWTSecret, "bench-"+uuid.NewString())
		if err == nil {
			r.token = token
		}
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: StatusSkip, Note: "dsn not set"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			var exists bool
			err := r.db.QueryRow(ctx,
				"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name='waypoints')",
			).Scan(&exists)
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			if !exists {
				return Result{Status: StatusFail, Note: "missing table: waypoints"}
			}
			return Result{Status: StatusPass}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: StatusSkip, Note: "redis not set"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			return Result{Status: StatusPass}
		}},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, "/health", nil, false, http.StatusOK)
		}},
		{Name: "API: missing token -> 401", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, "/api/waypoints", nil, false, http.StatusUnauthorized)
		}},
		r.authed("Position: no permission -> 403", http.MethodGet, "/api/position", nil, http.StatusForbidden),
		r.authed("Position: grant permission", http.MethodPut, "/api/position/permission", map[string]any{"granted": true}, http.StatusNoContent),
		r.authed("Waypoint: save before first fix -> 422", http.MethodPost, "/api/waypoints", nil, http.StatusUnprocessableEntity),
		r.authed("Position: report invalid fix -> 400", http.MethodPut, "/api/position", map[string]any{"latitude": 123.0, "longitude": 0.0}, http.StatusBadRequest),
		r.authed("Position: report fix", http.MethodPut, "/api/position", map[string]any{"latitude": 46.5577, "longitude": 7.9826, "accuracy_m": 5.0}, http.StatusNoContent),
		r.authed("Position: current fix", http.MethodGet, "/api/position", nil, http.StatusOK),
		{Name: "Waypoint: save, list, delete", Run: saveListDelete},
		r.authed("Waypoint: geojson export", http.MethodGet, "/api/waypoints/geojson", nil, http.StatusOK),
		{Name: "Waypoint: concurrent saves are not deduplicated", Run: concurrentSaves},
		r.authed("Compass: sample without session -> 404", http.MethodPost, "/api/compass/samples", accelSample(), http.StatusNotFound),
		r.authed("Compass: open session", http.MethodPost, "/api/compass", nil, http.StatusCreated),
		{Name: "Perf: compass samples", Run: func(ctx context.Context, r *Runner) Result {
			if r.token == "" {
				return Result{Status: StatusSkip, Note: "jwt-secret not set"}
			}
			return perfLoad(ctx, r, http.MethodPost, "/api/compass/samples", accelSample())
		}},
		{Name: "Perf: position reports", Run: func(ctx context.Context, r *Runner) Result {
			if r.token == "" {
				return Result{Status: StatusSkip, Note: "jwt-secret not set"}
			}
			return perfLoad(ctx, r, http.MethodPut, "/api/position", map[string]any{"latitude": 46.5577, "longitude": 7.9826})
		}},
		r.authed("Compass: close session", http.MethodDelete, "/api/compass", nil, http.StatusNoContent),
	}
}

func accelSample() map[string]any {
	return map[string]any{"sensor": "accelerometer", "values": []float64{0, 0, 9.81}}
}

func (r *Runner) authed(name, method, path string, body any, want int) TestCase {
	return TestCase{Name: name, Run: func(ctx context.Context, r *Runner) Result {
		if r.token == "" {
			return Result{Status: StatusSkip, Note: "jwt-secret not set"}
		}
		return r.expect(ctx, method, path, body, true, want)
	}}
}

func (r *Runner) do(ctx context.Context, method, path string, body any, auth bool) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp, data, err
}

func (r *Runner) expect(ctx context.Context, method, path string, body any, auth bool, want int) Result {
	start := time.Now()
	resp, _, err := r.do(ctx, method, path, body, auth)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	latency := time.Since(start)
	if resp.StatusCode != want {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d want=%d", resp.StatusCode, want)}
	}
	return Result{Status: StatusPass, Latency: latency}
}

func saveListDelete(ctx context.Context, r *Runner) Result {
	if r.token == "" {
		return Result{Status: StatusSkip, Note: "jwt-secret not set"}
	}
	start := time.Now()
	resp, data, err := r.do(ctx, http.MethodPost, "/api/waypoints", nil, true)
	if err != nil || resp.StatusCode != http.StatusCreated {
		return Result{Status: StatusFail, Note: fmt.Sprintf("save: %v %s", err, data)}
	}
	var saved struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &saved); err != nil || saved.ID == "" {
		return Result{Status: StatusFail, Note: "save: no id in response"}
	}

	found, err := r.listContains(ctx, saved.ID)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if !found {
		return Result{Status: StatusFail, Note: "saved waypoint missing from list"}
	}

	resp, data, err = r.do(ctx, http.MethodDelete, "/api/waypoints/"+saved.ID, nil, true)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		return Result{Status: StatusFail, Note: fmt.Sprintf("delete: %v %s", err, data)}
	}
	found, err = r.listContains(ctx, saved.ID)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if found {
		return Result{Status: StatusFail, Note: "deleted waypoint still listed"}
	}
	return Result{Status: StatusPass, Latency: time.Since(start)}
}

func (r *Runner) listContains(ctx context.Context, id string) (bool, error) {
	resp, data, err := r.do(ctx, http.MethodGet, "/api/waypoints", nil, true)
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("list: status=%d", resp.StatusCode)
	}
	var listing struct {
		Waypoints []struct {
			ID string `json:"id"`
		} `json:"waypoints"`
	}
	if err := json.Unmarshal(data, &listing); err != nil {
		return false, err
	}
	for _, w := range listing.Waypoints {
		if w.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// concurrentSaves documents that simultaneous saves each create a waypoint.
func concurrentSaves(ctx context.Context, r *Runner) Result {
	if r.token == "" {
		return Result{Status: StatusSkip, Note: "jwt-secret not set"}
	}
	var created atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _, err := r.do(ctx, http.MethodPost, "/api/waypoints", nil, true)
			if err == nil && resp.StatusCode == http.StatusCreated {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	if int(created.Load()) != r.cfg.Concurrency {
		return Result{Status: StatusFail, Note: fmt.Sprintf("created=%d want=%d", created.Load(), r.cfg.Concurrency)}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("created=%d", created.Load())}
}

func perfLoad(ctx context.Context, r *Runner, method, path string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				resp, _, err := r.do(ctx, method, path, payload, true)
				if err != nil || resp.StatusCode >= 400 {
					errCount.Add(1)
					continue
				}
				count.Add(1)
			}
		}()
	}
	wg.Wait()
	if count.Load() == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount.Load())}
}
