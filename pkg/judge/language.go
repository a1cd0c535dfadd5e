// Package judge implements the Judge-Fleet Registry, Judge Scheduler, and
// Execution Dispatcher.
package judge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/judgecore/judgecore/internal/apperr"
	"github.com/judgecore/judgecore/internal/store"
)

// LanguageConfig is one entry of the "languages" sysoption array: a name
// plus an opaque config object forwarded to judge workers verbatim.
type LanguageConfig struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

// LanguageResolver looks up language configs from the options_sysoptions
// table.
type LanguageResolver struct {
	judgeStore *store.JudgeStore
}

// NewLanguageResolver builds a LanguageResolver.
func NewLanguageResolver(judgeStore *store.JudgeStore) *LanguageResolver {
	return &LanguageResolver{judgeStore: judgeStore}
}

// Resolve finds the language config with the given name, returning
// apperr.KindBadRequest if no such language is configured.
func (r *LanguageResolver) Resolve(ctx context.Context, name string) (*LanguageConfig, error) {
	raw, err := r.judgeStore.GetSysOptionJSON(ctx, "languages")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, apperr.New(apperr.KindBadRequest, "language not found")
	}

	var configs []LanguageConfig
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, fmt.Errorf("decoding languages sysoption: %w", err)
	}

	for i := range configs {
		if configs[i].Name == name {
			normalized := normalizeSeccompRule(configs[i])
			return &normalized, nil
		}
	}
	return nil, apperr.New(apperr.KindBadRequest, "language not found")
}

// normalizeSeccompRule returns a copy of cfg whose run.seccomp_rule
// field, when present as a nested object, is collapsed to the fixed
// string "c_cpp" expected by judge workers.
func normalizeSeccompRule(cfg LanguageConfig) LanguageConfig {
	out := LanguageConfig{Name: cfg.Name, Config: make(map[string]any, len(cfg.Config))}
	for k, v := range cfg.Config {
		out.Config[k] = v
	}

	run, ok := out.Config["run"].(map[string]any)
	if !ok {
		return out
	}
	runCopy := make(map[string]any, len(run))
	for k, v := range run {
		runCopy[k] = v
	}
	if rule, ok := runCopy["seccomp_rule"]; ok {
		if _, isMap := rule.(map[string]any); isMap {
			runCopy["seccomp_rule"] = "c_cpp"
		}
	}
	out.Config["run"] = runCopy
	return out
}
