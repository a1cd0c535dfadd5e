package judge

import (
	"encoding/json"
	"testing"
)

func TestIsInvalidRequest(t *testing.T) {
	cases := []struct {
		name string
		r    *RunResult
		want bool
	}{
		{"nil result", nil, false},
		{"success, err null", &RunResult{Err: nil, Data: map[string]any{"cpu_time": 1}}, false},
		{"judgecore-synthesized error", &RunResult{Err: true, Data: "No available judge server"}, false},
		{"worker error code, not invalid request", &RunResult{Err: "RuntimeError", Data: nil}, false},
		{"invalid request", &RunResult{Err: "InvalidRequest", Data: nil}, true},
	}
	for _, c := range cases {
		if got := isInvalidRequest(c.r); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

// TestIsInvalidRequestThroughRealJSONDecode exercises the actual wire
// shape a judge worker sends: "err" is a JSON string, not a boolean.
func TestIsInvalidRequestThroughRealJSONDecode(t *testing.T) {
	var result RunResult
	body := `{"err":"InvalidRequest","data":null}`
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("decoding worker response: %v", err)
	}
	if !isInvalidRequest(&result) {
		t.Errorf("expected InvalidRequest to be detected from decoded JSON")
	}

	var success RunResult
	body = `{"err":null,"data":{"cpu_time":12,"result":0}}`
	if err := json.Unmarshal([]byte(body), &success); err != nil {
		t.Fatalf("decoding worker response: %v", err)
	}
	if isInvalidRequest(&success) {
		t.Errorf("expected a null err to not be detected as InvalidRequest")
	}
}

func TestHashTokenIsDeterministicSHA256Hex(t *testing.T) {
	got := hashToken("secret")
	want := "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestStrippedLinesTrimsTrailingWhitespacePerLine(t *testing.T) {
	got := strippedLines("hello \nworld\t\n")
	want := "hello\nworld\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
