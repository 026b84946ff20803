// Package validator implements the per-endpoint rule sets from spec §4
// ("Rule. A named parameter requirement... Ordered within an endpoint;
// first failure short-circuits"). The shape mirrors the ordered,
// early-return validation chain the CLI options layer uses before a scan
// starts: a ladder of independent checks, each returning as soon as one
// fails.
package validator

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TargetType is the typed extraction a Rule performs before applying its
// predicate.
type TargetType int

const (
	TypeString TargetType = iota
	TypeInteger
	TypeDecimal
	TypeDate
)

// Predicate inspects an already-typed value and reports whether it
// satisfies the rule. value holds a string, int64, float64 or
// time.Time depending on Target.
type Predicate func(value any) bool

// Rule is a single named parameter requirement.
type Rule struct {
	Name     string
	Required bool
	Target   TargetType
	Check    Predicate
	Message  string
}

// Validator is an ordered, immutable list of rules bound to one endpoint.
type Validator struct {
	rules []Rule
}

// New builds a Validator from an ordered rule list.
func New(rules ...Rule) *Validator {
	return &Validator{rules: rules}
}

// Error reports the first rule that failed.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate extracts and checks each rule in order against params,
// short-circuiting on the first failure (spec §3, §4).
func (v *Validator) Validate(params map[string]string) error {
	for _, rule := range v.rules {
		raw, present := params[rule.Name]
		if !present || raw == "" {
			if rule.Required {
				return &Error{Field: rule.Name, Message: rule.Message}
			}
			continue
		}

		value, err := extract(rule.Target, raw)
		if err != nil {
			return &Error{Field: rule.Name, Message: rule.Message}
		}

		if rule.Check != nil && !rule.Check(value) {
			return &Error{Field: rule.Name, Message: rule.Message}
		}
	}
	return nil
}

func extract(target TargetType, raw string) (any, error) {
	switch target {
	case TypeInteger:
		return strconv.ParseInt(raw, 10, 64)
	case TypeDecimal:
		return strconv.ParseFloat(raw, 64)
	case TypeDate:
		return time.Parse(time.RFC3339, raw)
	default:
		return raw, nil
	}
}

// ExactLenAlpha builds a predicate requiring exactly n alphabetic ASCII
// characters, used by the /customer endpoint's id rule (spec §8 scenario
// 5: "Customer ID must be exactly 5 alphabetic characters").
func ExactLenAlpha(n int) Predicate {
	return func(value any) bool {
		s, ok := value.(string)
		if !ok || len(s) != n {
			return false
		}
		return strings.IndexFunc(s, func(r rune) bool {
			return !(r >= 'A' && r <= 'Z') && !(r >= 'a' && r <= 'z')
		}) == -1
	}
}

// NonEmpty builds a predicate rejecting blank strings after trimming.
func NonEmpty() Predicate {
	return func(value any) bool {
		s, ok := value.(string)
		return ok && strings.TrimSpace(s) != ""
	}
}
