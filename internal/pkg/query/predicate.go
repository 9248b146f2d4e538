package query

import "regexp"

// Op identifies the kind of a predicate clause.
type Op int

const (
	OpEquals Op = iota + 1
	OpYearEquals
	OpMatches
	OpBetween
	OpNotEmpty
	OpIsNumber
	OpAnyOf
	OpIDIn
)

// Clause is a single constraint on one field. Which members are meaningful
// depends on Op.
type Clause struct {
	Op    Op
	Field string

	Value   string   // OpEquals
	Number  int      // OpYearEquals
	Pattern string   // OpMatches, raw case-insensitive fragment
	Min     *float64 // OpBetween, inclusive
	Max     *float64 // OpBetween, inclusive
	Any     []Clause // OpAnyOf
	IDs     []string // OpIDIn, hex object ids

	re *regexp.Regexp
}

// Regexp returns the compiled case-insensitive pattern of an OpMatches clause.
func (c Clause) Regexp() *regexp.Regexp {
	if c.re != nil {
		return c.re
	}
	re, err := compilePattern(c.Pattern)
	if err != nil {
		return nil
	}
	return re
}

// Equals requires field to be exactly value.
func Equals(field, value string) Clause {
	return Clause{Op: OpEquals, Field: field, Value: value}
}

// YearEquals requires field to hold the number n. String sentinels never match.
func YearEquals(field string, n int) Clause {
	return Clause{Op: OpYearEquals, Field: field, Number: n}
}

// Matches requires field to contain pattern, case-insensitively. The pattern
// is a regular expression fragment and is not escaped. It must be valid RE2
// syntax whichever store evaluates it, so PCRE-only constructs such as
// lookarounds are rejected up front.
func Matches(field, pattern string) (Clause, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return Clause{}, err
	}
	return Clause{Op: OpMatches, Field: field, Pattern: pattern, re: re}, nil
}

// Between requires field to be numeric and within [lo, hi]. A nil bound
// leaves that side open.
func Between(field string, lo, hi *float64) Clause {
	return Clause{Op: OpBetween, Field: field, Min: lo, Max: hi}
}

// NotEmpty excludes records whose field is the empty string.
func NotEmpty(field string) Clause {
	return Clause{Op: OpNotEmpty, Field: field}
}

// IsNumber requires field to hold a numeric value.
func IsNumber(field string) Clause {
	return Clause{Op: OpIsNumber, Field: field}
}

// AnyOf is satisfied when at least one of the clauses is.
func AnyOf(clauses ...Clause) Clause {
	return Clause{Op: OpAnyOf, Any: clauses}
}

// IDIn restricts the record identity to ids.
func IDIn(ids []string) Clause {
	return Clause{Op: OpIDIn, Field: "_id", IDs: ids}
}

// Predicate is a conjunction of clauses. The zero value matches every record.
type Predicate struct {
	clauses []Clause
}

// NewPredicate builds a predicate from clauses.
func NewPredicate(clauses ...Clause) Predicate {
	return Predicate{clauses: append([]Clause(nil), clauses...)}
}

// With returns a copy of p with extra clauses appended.
func (p Predicate) With(clauses ...Clause) Predicate {
	out := make([]Clause, 0, len(p.clauses)+len(clauses))
	out = append(out, p.clauses...)
	out = append(out, clauses...)
	return Predicate{clauses: out}
}

// Clauses returns the clauses of p. The slice must not be modified.
func (p Predicate) Clauses() []Clause { return p.clauses }

// IsEmpty reports whether p has no clauses.
func (p Predicate) IsEmpty() bool { return len(p.clauses) == 0 }

func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}
