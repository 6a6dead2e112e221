package domain

import (
	"strconv"
	"strings"
)

// Criterion is the uniform filter language shared by every find operation.
// Keys are column names; values are either exact matches, slices (IN), or
// strings carrying a comparison prefix:
//
//	"!x"           not equal
//	"<x" "<=x"     less / less-or-equal
//	">x" ">=x"     greater / greater-or-equal
//	"BETWEEN a,b"  inclusive range
//	"%x%"          wildcard substring (ILIKE)
type Criterion map[string]any

// Op identifies a parsed comparison operator.
type Op int

const (
	OpEqual Op = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpBetween
	OpLike
	OpIn
)

// Condition is the parsed form of a single criterion value.
type Condition struct {
	Op    Op
	Value any
	High  any // BETWEEN upper bound
}

// ParseCondition decodes a raw criterion value into its operator form.
// Non-string, non-slice values are exact matches.
func ParseCondition(v any) Condition {
	switch val := v.(type) {
	case string:
		return parseStringCondition(val)
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return Condition{Op: OpIn, Value: items}
	case []any:
		return Condition{Op: OpIn, Value: val}
	case []int:
		items := make([]any, len(val))
		for i, n := range val {
			items[i] = n
		}
		return Condition{Op: OpIn, Value: items}
	default:
		return Condition{Op: OpEqual, Value: v}
	}
}

func parseStringCondition(s string) Condition {
	switch {
	case strings.HasPrefix(s, "!"):
		return Condition{Op: OpNotEqual, Value: s[1:]}
	case strings.HasPrefix(s, "<="):
		return Condition{Op: OpLessEqual, Value: s[2:]}
	case strings.HasPrefix(s, ">="):
		return Condition{Op: OpGreaterEqual, Value: s[2:]}
	case strings.HasPrefix(s, "<"):
		return Condition{Op: OpLess, Value: s[1:]}
	case strings.HasPrefix(s, ">"):
		return Condition{Op: OpGreater, Value: s[1:]}
	case strings.HasPrefix(s, "BETWEEN "):
		bounds := strings.SplitN(strings.TrimPrefix(s, "BETWEEN "), ",", 2)
		if len(bounds) == 2 {
			return Condition{Op: OpBetween, Value: strings.TrimSpace(bounds[0]), High: strings.TrimSpace(bounds[1])}
		}
		return Condition{Op: OpEqual, Value: s}
	case strings.Contains(s, "%"):
		return Condition{Op: OpLike, Value: s}
	default:
		return Condition{Op: OpEqual, Value: s}
	}
}

// Between renders an inclusive integer range in criterion syntax. Periodic
// tasks use it to scope queries to their assigned shard range.
func Between(low, high int) string {
	return "BETWEEN " + strconv.Itoa(low) + "," + strconv.Itoa(high)
}
