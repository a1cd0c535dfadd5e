package judge

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// testCaseInfo is the per-case metadata judge workers expect alongside
// emulated test-case data.
type testCaseInfo struct {
	SPJ       bool                    `json:"spj"`
	TestCases map[string]testCaseMeta `json:"test_cases"`
}

type testCaseMeta struct {
	InputName         string `json:"input_name"`
	OutputName        string `json:"output_name"`
	OutputMD5         string `json:"output_md5"`
	StrippedOutputMD5 string `json:"stripped_output_md5"`
}

// Fallback emulates a single-test-case judge run when a judge worker
// rejects the lean "/run" payload outright: it materializes a throwaway
// test case on disk and dispatches to the worker's "/judge" endpoint
// instead.
type Fallback struct {
	dataPath   string
	httpClient *http.Client
}

// NewFallback builds a Fallback rooted at dataPath (TEST_CASE_DATA_PATH).
func NewFallback(dataPath string, httpClient *http.Client) *Fallback {
	return &Fallback{dataPath: dataPath, httpClient: httpClient}
}

// Run materializes an emulated test case for req.Stdin and dispatches it
// to serviceURL's "/judge" endpoint.
func (f *Fallback) Run(ctx context.Context, serviceURL, hashedToken string, lang LanguageConfig, req RunRequest) (*RunResult, error) {
	caseID := uuid.New().String()
	// uuid4().hex in the original has no dashes; mirror that exactly so
	// the directory name matches what judge workers expect.
	caseID = strings.ReplaceAll(caseID, "-", "")

	caseDir := filepath.Join(f.dataPath, caseID)
	if err := os.MkdirAll(caseDir, 0o755); err != nil {
		return &RunResult{Err: true, Data: fmt.Sprintf("Judge server error: %v", err)}, nil
	}

	if err := os.WriteFile(filepath.Join(caseDir, "1.in"), []byte(req.Stdin), 0o644); err != nil {
		return &RunResult{Err: true, Data: fmt.Sprintf("Judge server error: %v", err)}, nil
	}
	if err := os.WriteFile(filepath.Join(caseDir, "1.out"), []byte{}, 0o644); err != nil {
		return &RunResult{Err: true, Data: fmt.Sprintf("Judge server error: %v", err)}, nil
	}

	outputMD5 := md5Hex([]byte{})
	strippedMD5 := md5Hex([]byte(strippedLines("")))

	info := testCaseInfo{
		SPJ: false,
		TestCases: map[string]testCaseMeta{
			"1": {
				InputName:         "1.in",
				OutputName:        "1.out",
				OutputMD5:         outputMD5,
				StrippedOutputMD5: strippedMD5,
			},
		},
	}
	infoBytes, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshaling test case info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(caseDir, "info"), infoBytes, 0o644); err != nil {
		return &RunResult{Err: true, Data: fmt.Sprintf("Judge server error: %v", err)}, nil
	}

	maxMemoryMB := req.MaxMemoryMB
	if maxMemoryMB < 1 {
		maxMemoryMB = 1
	}

	payload := map[string]any{
		"language_config": lang.Config,
		"src":             req.Src,
		"max_cpu_time":    req.MaxCPUTime,
		"max_memory":      maxMemoryMB * 1024 * 1024,
		"test_case_id":    caseID,
		"output":          true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling judge payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, serviceURL+"/judge", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Judge-Server-Token", hashedToken)

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return &RunResult{Err: true, Data: fmt.Sprintf("Judge server error: %v", err)}, nil
	}
	defer resp.Body.Close()

	var result RunResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding judge worker response: %w", err)
	}
	return &result, nil
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// strippedLines joins each line's right-trimmed form back together, the
// same normalization judge workers apply before comparing output.
func strippedLines(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t\r")
	}
	return strings.Join(lines, "\n")
}
