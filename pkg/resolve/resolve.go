// Package resolve maps product option names to the vendor pricing API's
// positional attribute slots.
//
// Resolution order, first match wins:
//  1. explicit mapping supplied by option discovery
//  2. the ordered name rule table (case-insensitive substrings)
//  3. numeric fallback: a value label containing a digit binds to the
//     quantity slot when no earlier option in the same pass claimed it
//  4. unresolved: the option contributes nothing to the payload
package resolve

import (
	"strings"
	"unicode"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// Source reports which resolution step produced a slot.
type Source string

// Resolution sources.
const (
	SourceExplicit   Source = "explicit"
	SourceRule       Source = "rule"
	SourceNumeric    Source = "numeric_fallback"
	SourceUnresolved Source = "unresolved"
)

// Rule binds option names containing any of its keywords to a slot.
type Rule struct {
	Name     string
	Slot     domain.SlotID
	Keywords []string
}

// Match reports whether the lower-cased option name hits the rule.
func (r Rule) Match(lowerName string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lowerName, kw) {
			return true
		}
	}
	return false
}

// DefaultRules is the name rule table in priority order. Order breaks ties
// when a name matches several rules ("Printing Time" hits both time and page).
var DefaultRules = []Rule{
	{Name: "time", Slot: domain.SlotTime, Keywords: []string{"printing time", "turnaround", "rush", "business day", "production time"}},
	{Name: "quantity", Slot: domain.SlotQuantity, Keywords: []string{"quantity"}},
	{Name: "size", Slot: domain.SlotSize, Keywords: []string{"size", "format"}},
	{Name: "paper", Slot: domain.SlotPaper, Keywords: []string{"paper", "material", "stock"}},
	{Name: "page", Slot: domain.SlotPage, Keywords: []string{"page", "side", "print"}},
	{Name: "bundling", Slot: domain.SlotBundling, Keywords: []string{"bundling", "binding", "finish"}},
}

// Resolver applies explicit mappings, the rule table, and the numeric
// fallback. It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	rules []Rule
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRules replaces the default rule table.
func WithRules(rules []Rule) Option {
	return func(r *Resolver) {
		r.rules = rules
	}
}

// New creates a Resolver using DefaultRules unless overridden.
func New(opts ...Option) *Resolver {
	r := &Resolver{rules: DefaultRules}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rules returns the active rule table.
func (r *Resolver) Rules() []Rule {
	return r.rules
}

// Resolve maps one option to a slot. claimed holds slots already bound by
// earlier options in the same pass; it is read, never written.
func (r *Resolver) Resolve(
	name, label string,
	explicit domain.AttributeMapping,
	claimed map[domain.SlotID]bool,
) (domain.SlotID, Source, bool) {
	if slot, ok := explicit[name]; ok && slot != "" {
		return slot, SourceExplicit, true
	}

	lower := strings.ToLower(name)
	for _, rule := range r.rules {
		if rule.Match(lower) {
			return rule.Slot, SourceRule, true
		}
	}

	if containsDigit(label) && !claimed[domain.SlotQuantity] {
		return domain.SlotQuantity, SourceNumeric, true
	}

	return "", SourceUnresolved, false
}

// ResolveName resolves an option by name alone, skipping the numeric
// fallback. Used to decide which names still need outside help.
func (r *Resolver) ResolveName(name string, explicit domain.AttributeMapping) (domain.SlotID, bool) {
	slot, src, ok := r.Resolve(name, "", explicit, nil)
	return slot, ok && src != SourceNumeric
}

// Collision records a slot written by two different options in one payload.
// The later option's value wins.
type Collision struct {
	Slot     domain.SlotID `json:"slot"`
	Previous string        `json:"previous_option"`
	Current  string        `json:"current_option"`
}

// Assignment is the result of resolving every selection of a combination.
type Assignment struct {
	Payload    domain.SlotPayload
	Sources    map[string]Source
	Collisions []Collision
	Unresolved []string
}

// Assign resolves selections in order and builds the slot payload. When two
// options land on the same slot the later write overwrites the earlier one
// and a Collision is recorded.
func (r *Resolver) Assign(selections []domain.Selection, explicit domain.AttributeMapping) Assignment {
	a := Assignment{
		Payload: make(domain.SlotPayload, len(selections)),
		Sources: make(map[string]Source, len(selections)),
	}
	owner := make(map[domain.SlotID]string, len(selections))
	claimed := make(map[domain.SlotID]bool, len(selections))

	for _, sel := range selections {
		slot, src, ok := r.Resolve(sel.Option, sel.Value.Label, explicit, claimed)
		a.Sources[sel.Option] = src
		if !ok {
			a.Unresolved = append(a.Unresolved, sel.Option)
			continue
		}

		if prev, taken := owner[slot]; taken && prev != sel.Option {
			a.Collisions = append(a.Collisions, Collision{
				Slot:     slot,
				Previous: prev,
				Current:  sel.Option,
			})
		}

		owner[slot] = sel.Option
		claimed[slot] = true
		a.Payload[slot] = sel.Value.ID
	}

	return a
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
