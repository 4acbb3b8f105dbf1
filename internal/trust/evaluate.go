package trust

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrDenied marks a claim set rejected by the trust policy.
var ErrDenied = errors.New("trust policy denied the identity token claims")

type Decision struct {
	Effect string
	RuleID string
	Reason string
}

// Evaluate runs the claims through the rules in order; the first
// matching rule wins. With no match the spec's default effect applies,
// deny when unset.
func Evaluate(spec Spec, claims map[string]string) (Decision, error) {
	for _, rule := range spec.Rules {
		matched, err := groupMatches(rule.When, claims)
		if err != nil {
			return Decision{}, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		if matched {
			return Decision{
				Effect: strings.ToLower(strings.TrimSpace(rule.Effect)),
				RuleID: rule.ID,
				Reason: rule.Description,
			}, nil
		}
	}

	effect := strings.ToLower(strings.TrimSpace(spec.DefaultEffect))
	if effect == "" {
		effect = EffectDeny
	}
	return Decision{Effect: effect, Reason: "no rule matched"}, nil
}

func groupMatches(group ConditionGroup, claims map[string]string) (bool, error) {
	for _, cond := range group.All {
		ok, err := conditionMatches(cond, claims)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if len(group.Any) == 0 {
		return true, nil
	}
	for _, cond := range group.Any {
		ok, err := conditionMatches(cond, claims)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func conditionMatches(cond Condition, claims map[string]string) (bool, error) {
	value, present := claims[strings.TrimSpace(cond.Field)]

	switch strings.ToLower(strings.TrimSpace(cond.Op)) {
	case "exists":
		return present && strings.TrimSpace(value) != "", nil
	case "eq":
		return present && value == cond.Value, nil
	case "neq":
		return !present || value != cond.Value, nil
	case "in":
		return present && contains(cond.Values, value), nil
	case "not_in":
		return !present || !contains(cond.Values, value), nil
	case "matches":
		if !present {
			return false, nil
		}
		re, err := regexp.Compile(cond.Value)
		if err != nil {
			return false, fmt.Errorf("bad pattern %q: %w", cond.Value, err)
		}
		return re.MatchString(value), nil
	default:
		return false, fmt.Errorf("unsupported op %q", cond.Op)
	}
}

func contains(values []string, needle string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == needle {
			return true
		}
	}
	return false
}
