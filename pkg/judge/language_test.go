package judge

import "testing"

func TestNormalizeSeccompRuleCollapsesMapToString(t *testing.T) {
	cfg := LanguageConfig{
		Name: "c",
		Config: map[string]any{
			"compile_command": "gcc {src}",
			"run": map[string]any{
				"command":      "{exe_path}",
				"seccomp_rule": map[string]any{"mode": "strict"},
			},
		},
	}

	got := normalizeSeccompRule(cfg)

	run, ok := got.Config["run"].(map[string]any)
	if !ok {
		t.Fatalf("expected run to remain a map, got %T", got.Config["run"])
	}
	if run["seccomp_rule"] != "c_cpp" {
		t.Errorf("expected run.seccomp_rule to collapse to \"c_cpp\", got %v", run["seccomp_rule"])
	}
	if run["command"] != "{exe_path}" {
		t.Errorf("expected other run keys to survive untouched")
	}
	if got.Config["compile_command"] != "gcc {src}" {
		t.Errorf("expected top-level config keys to survive untouched")
	}

	// original nested map must be unmodified (defensive copy)
	origRun := cfg.Config["run"].(map[string]any)
	if _, isMap := origRun["seccomp_rule"].(map[string]any); !isMap {
		t.Errorf("expected source run.seccomp_rule to remain untouched")
	}
}

func TestNormalizeSeccompRuleLeavesStringAlone(t *testing.T) {
	cfg := LanguageConfig{
		Name: "python3",
		Config: map[string]any{
			"run": map[string]any{"seccomp_rule": "general"},
		},
	}
	got := normalizeSeccompRule(cfg)
	run := got.Config["run"].(map[string]any)
	if run["seccomp_rule"] != "general" {
		t.Errorf("expected string seccomp_rule to pass through unchanged, got %v", run["seccomp_rule"])
	}
}

func TestNormalizeSeccompRuleWithoutRunKeyIsNoop(t *testing.T) {
	cfg := LanguageConfig{
		Name:   "go",
		Config: map[string]any{"compile_command": "go build"},
	}
	got := normalizeSeccompRule(cfg)
	if _, ok := got.Config["run"]; ok {
		t.Errorf("expected no run key to be introduced, got %v", got.Config["run"])
	}
	if got.Config["compile_command"] != "go build" {
		t.Errorf("expected other config keys to survive untouched")
	}
}
