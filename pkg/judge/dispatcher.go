package judge

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/judgecore/judgecore/internal/apperr"
	"github.com/judgecore/judgecore/internal/store"
)

const dispatchTimeout = 30 * time.Second

// RunRequest is an execution dispatch request: source code to run against
// a single stdin, under a language's resource limits.
type RunRequest struct {
	Language    string
	Src         string
	Stdin       string
	MaxCPUTime  int
	MaxMemoryMB int
}

// RunResult mirrors the judge worker's own response envelope. A judge
// worker encodes Err as null on success or an error code string such as
// "InvalidRequest"; judgecore's own synthesized envelopes (no worker
// available, worker unreachable) use the boolean true instead. Data
// carries either the diagnostic message or the worker's result payload.
type RunResult struct {
	Err  any `json:"err"`
	Data any `json:"data"`
}

// Dispatcher resolves a language config, leases a judge worker, and
// forwards the run request to it, falling back to the emulated
// test-case path when the worker rejects the lean payload outright.
type Dispatcher struct {
	languages        *LanguageResolver
	scheduler        *Scheduler
	judgeStore       *store.JudgeStore
	envToken         string
	testCaseDataPath string
	httpClient       *http.Client
	fallback         *Fallback
}

// NewDispatcher builds a Dispatcher. envToken is JUDGE_SERVER_TOKEN;
// an empty value falls back to the "judge_server_token" sysoption.
func NewDispatcher(languages *LanguageResolver, scheduler *Scheduler, judgeStore *store.JudgeStore, envToken, testCaseDataPath string) *Dispatcher {
	return &Dispatcher{
		languages:        languages,
		scheduler:        scheduler,
		judgeStore:       judgeStore,
		envToken:         envToken,
		testCaseDataPath: testCaseDataPath,
		httpClient:       &http.Client{Timeout: dispatchTimeout},
		fallback:         NewFallback(testCaseDataPath, &http.Client{Timeout: dispatchTimeout}),
	}
}

// Run dispatches req to an available judge worker.
func (d *Dispatcher) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	lang, err := d.languages.Resolve(ctx, req.Language)
	if err != nil {
		return nil, err
	}

	if d.testCaseDataPath == "" {
		return nil, apperr.New(apperr.KindMisconfigured, "TEST_CASE_DATA_PATH not configured")
	}

	lease, err := d.scheduler.Acquire(ctx)
	if err != nil {
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.KindNoAvailableWorker {
			return &RunResult{Err: true, Data: "No available judge server"}, nil
		}
		return nil, err
	}
	defer lease.Release(ctx)

	token, err := d.resolveToken(ctx)
	if err != nil {
		return nil, err
	}
	hashedToken := hashToken(token)

	maxRealTime := req.MaxCPUTime * 3
	if maxRealTime < 1 {
		maxRealTime = 1
	}
	maxMemoryMB := req.MaxMemoryMB
	if maxMemoryMB < 1 {
		maxMemoryMB = 1
	}
	maxMemoryBytes := maxMemoryMB * 1024 * 1024

	primary := map[string]any{
		"language_config": lang.Config,
		"src":             req.Src,
		"max_cpu_time":    req.MaxCPUTime,
		"max_real_time":   maxRealTime,
		"max_memory":      maxMemoryBytes,
		"input":           req.Stdin,
		"stdin":           req.Stdin,
		"output":          true,
	}

	result, err := d.post(ctx, lease.Worker.ServiceURL+"/run", hashedToken, primary)
	if err != nil {
		return &RunResult{Err: true, Data: fmt.Sprintf("Judge server error: %v", err)}, nil
	}
	if !isInvalidRequest(result) {
		return result, nil
	}

	minimal := map[string]any{
		"language_config": lang.Config,
		"src":             req.Src,
		"max_cpu_time":    req.MaxCPUTime,
		"max_real_time":   maxRealTime,
		"max_memory":      maxMemoryBytes,
		"stdin":           req.Stdin,
		"output":          true,
	}

	result, err = d.post(ctx, lease.Worker.ServiceURL+"/run", hashedToken, minimal)
	if err != nil {
		return &RunResult{Err: true, Data: fmt.Sprintf("Judge server error: %v", err)}, nil
	}
	if !isInvalidRequest(result) {
		return result, nil
	}

	return d.fallback.Run(ctx, lease.Worker.ServiceURL, hashedToken, *lang, req)
}

func isInvalidRequest(r *RunResult) bool {
	if r == nil {
		return false
	}
	s, ok := r.Err.(string)
	return ok && s == "InvalidRequest"
}

func (d *Dispatcher) resolveToken(ctx context.Context) (string, error) {
	if d.envToken != "" {
		return d.envToken, nil
	}
	raw, err := d.judgeStore.GetSysOptionJSON(ctx, "judge_server_token")
	if err != nil {
		return "", err
	}
	if raw == nil {
		return "", apperr.New(apperr.KindMisconfigured, "judge server token not configured")
	}
	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return "", fmt.Errorf("decoding judge_server_token sysoption: %w", err)
	}
	return token, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (d *Dispatcher) post(ctx context.Context, url, hashedToken string, payload map[string]any) (*RunResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling judge payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building judge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Judge-Server-Token", hashedToken)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling judge worker: %w", err)
	}
	defer resp.Body.Close()

	var result RunResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding judge worker response: %w", err)
	}
	return &result, nil
}
