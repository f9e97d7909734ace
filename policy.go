/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitysync

import (
	"fmt"
	"strings"
)

// Mode decides how a relationship is populated when its owner is materialized
type Mode uint8

const (
	// Lazy installs a placeholder that loads the relationship on first access.
	Lazy Mode = iota
	// Eager loads the relationship before the operation returns.
	Eager
	// Suppress leaves the relationship unset.
	Suppress
)

func (m Mode) String() string {
	switch m {
	case Lazy:
		return "LAZY"
	case Eager:
		return "EAGER"
	case Suppress:
		return "SUPPRESS"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode parses LAZY, EAGER or SUPPRESS, ignoring case
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LAZY":
		return Lazy, nil
	case "EAGER":
		return Eager, nil
	case "SUPPRESS":
		return Suppress, nil
	}
	return Lazy, fmt.Errorf("unknown hydration mode %q", s)
}

// Override sets the mode for relationships targeting one entity type.
// A positive Depth limits the override to relationships at depth <= Depth.
type Override struct {
	Type  string
	Mode  Mode
	Depth int
}

// Policy is the hydration policy of a Context.
//
// Top-level results of an operation sit at depth 0 and the relationships of an
// entity at depth d are resolved at depth d+1, so a policy of Eager bounded to
// depth 1 loads the direct relationships of returned entities and nothing more.
type Policy struct {
	// Default applies when no override matches.
	Default Mode
	// DefaultDepth bounds Default when positive; deeper relationships are Lazy.
	DefaultDepth int
	Overrides    []Override
}

// DefaultPolicy defers every relationship
func DefaultPolicy() Policy {
	return Policy{Default: Lazy}
}

// EagerTo loads every relationship up to depth
func EagerTo(depth int) Policy {
	return Policy{Default: Eager, DefaultDepth: depth}
}

// With returns a copy of p with an extra override
func (p Policy) With(o Override) Policy {
	overrides := make([]Override, 0, len(p.Overrides)+1)
	overrides = append(overrides, p.Overrides...)
	p.Overrides = append(overrides, o)
	return p
}

// Mode returns the effective mode of a relationship to target at depth. Suppress
// at any applicable level wins: a matching override or the default within its
// bound. Otherwise a depth-bounded override for the type wins over an unbounded
// one, which wins over the default. Among bounded overrides the tightest bound
// wins.
func (p Policy) Mode(target string, depth int) Mode {
	var bounded, unbounded *Override
	suppressed := false
	for i := range p.Overrides {
		o := &p.Overrides[i]
		if o.Type != target {
			continue
		}
		if o.Depth <= 0 {
			if unbounded == nil {
				unbounded = o
			}
			suppressed = suppressed || o.Mode == Suppress
			continue
		}
		if depth > o.Depth {
			continue
		}
		suppressed = suppressed || o.Mode == Suppress
		if bounded == nil || o.Depth < bounded.Depth {
			bounded = o
		}
	}

	def := p.Default
	if p.DefaultDepth > 0 && depth > p.DefaultDepth {
		def = Lazy
	}

	switch {
	case suppressed || def == Suppress:
		return Suppress
	case bounded != nil:
		return bounded.Mode
	case unbounded != nil:
		return unbounded.Mode
	}
	return def
}
