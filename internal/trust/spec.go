package trust

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// A trust spec mirrors the registry-side trust policy so a claim
// mismatch fails the run locally, before the exchange endpoint is
// ever called. Evaluation is fail-closed: no matching rule means deny
// unless the spec says otherwise.

const SpecSchemaV1 = "pubforge.trust.v1"

const (
	EffectAllow = "allow"
	EffectDeny  = "deny"
)

type Spec struct {
	Schema        string `yaml:"schema"`
	DefaultEffect string `yaml:"default_effect,omitempty"`
	Rules         []Rule `yaml:"rules"`
}

type Rule struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description,omitempty"`
	Effect      string         `yaml:"effect"`
	When        ConditionGroup `yaml:"when"`
}

type ConditionGroup struct {
	All []Condition `yaml:"all,omitempty"`
	Any []Condition `yaml:"any,omitempty"`
}

type Condition struct {
	Field  string   `yaml:"field"`
	Op     string   `yaml:"op"`
	Value  string   `yaml:"value,omitempty"`
	Values []string `yaml:"values,omitempty"`
}

func LoadSpec(path string) (Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read trust policy: %w", err)
	}
	return ParseSpec(raw)
}

func ParseSpec(input []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(input, &spec); err != nil {
		return Spec{}, fmt.Errorf("decode trust policy: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func (s Spec) Validate() error {
	if strings.TrimSpace(s.Schema) != SpecSchemaV1 {
		return fmt.Errorf("schema must be %q", SpecSchemaV1)
	}
	if len(s.Rules) == 0 {
		return errors.New("rules must be non-empty")
	}

	defaultEffect := strings.ToLower(strings.TrimSpace(s.DefaultEffect))
	if defaultEffect != "" && !isEffectAllowed(defaultEffect) {
		return fmt.Errorf("default_effect unsupported: %q", s.DefaultEffect)
	}

	seen := make(map[string]struct{}, len(s.Rules))
	for i, rule := range s.Rules {
		ruleID := strings.TrimSpace(rule.ID)
		if ruleID == "" {
			return fmt.Errorf("rules[%d].id is required", i)
		}
		if _, ok := seen[ruleID]; ok {
			return fmt.Errorf("rules[%d].id must be unique (duplicate %q)", i, ruleID)
		}
		seen[ruleID] = struct{}{}

		effect := strings.ToLower(strings.TrimSpace(rule.Effect))
		if effect == "" {
			return fmt.Errorf("rules[%d].effect is required", i)
		}
		if !isEffectAllowed(effect) {
			return fmt.Errorf("rules[%d].effect unsupported: %q", i, rule.Effect)
		}

		if len(rule.When.All) == 0 && len(rule.When.Any) == 0 {
			return fmt.Errorf("rules[%d].when must include all or any", i)
		}
		if err := validateConditions(rule.When.All, fmt.Sprintf("rules[%d].when.all", i)); err != nil {
			return err
		}
		if err := validateConditions(rule.When.Any, fmt.Sprintf("rules[%d].when.any", i)); err != nil {
			return err
		}
	}
	return nil
}

func validateConditions(conds []Condition, prefix string) error {
	for i, cond := range conds {
		if strings.TrimSpace(cond.Field) == "" {
			return fmt.Errorf("%s[%d].field is required", prefix, i)
		}
		op := strings.ToLower(strings.TrimSpace(cond.Op))
		if op == "" {
			return fmt.Errorf("%s[%d].op is required", prefix, i)
		}
		if !isOpAllowed(op) {
			return fmt.Errorf("%s[%d].op unsupported: %q", prefix, i, cond.Op)
		}

		switch op {
		case "exists":
			continue
		case "in", "not_in":
			if len(trimNonEmpty(cond.Values)) == 0 {
				return fmt.Errorf("%s[%d].values must be non-empty for %s", prefix, i, op)
			}
		default:
			if strings.TrimSpace(cond.Value) == "" {
				return fmt.Errorf("%s[%d].value is required for %s", prefix, i, op)
			}
		}
	}
	return nil
}

func isEffectAllowed(effect string) bool {
	switch strings.ToLower(strings.TrimSpace(effect)) {
	case EffectAllow, EffectDeny:
		return true
	default:
		return false
	}
}

func isOpAllowed(op string) bool {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "eq", "neq", "in", "not_in", "matches", "exists":
		return true
	default:
		return false
	}
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, item := range values {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
