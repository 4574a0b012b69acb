// Package status holds the closed set of order statuses and the role-gated
// transition policy. No other package may move an order to a status that is
// not in the loaded catalog.
package status

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"orderdesk/internal/model"
)

// All is the filter sentinel meaning "no status filter".
const All = "ALL"

var ErrUnknownStatus = errors.New("unknown order status")

//go:embed catalog.yaml
var defaultCatalog []byte

type entry struct {
	Code     string `yaml:"code"`
	Label    string `yaml:"label"`
	Evidence bool   `yaml:"evidence"`
}

type document struct {
	Statuses        []entry           `yaml:"statuses"`
	UserTransitions []string          `yaml:"user_transitions"`
	Aliases         map[string]string `yaml:"aliases"`
}

// Catalog is an immutable status set loaded from YAML.
type Catalog struct {
	order    []string
	labels   map[string]string
	evidence map[string]bool
	user     map[string]bool
	aliases  map[string]string
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded status catalog: %v", err))
	}
	return c
}

// Load reads a catalog file, or returns the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read status catalog: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode status catalog: %w", err)
	}
	if len(doc.Statuses) == 0 {
		return nil, errors.New("status catalog is empty")
	}

	c := &Catalog{
		labels:   make(map[string]string, len(doc.Statuses)),
		evidence: make(map[string]bool),
		user:     make(map[string]bool, len(doc.UserTransitions)),
		aliases:  make(map[string]string, len(doc.Aliases)),
	}
	for _, e := range doc.Statuses {
		if e.Code == "" {
			return nil, errors.New("status catalog entry without code")
		}
		if _, dup := c.labels[e.Code]; dup {
			return nil, fmt.Errorf("duplicate status %q", e.Code)
		}
		c.order = append(c.order, e.Code)
		c.labels[e.Code] = e.Label
		if e.Evidence {
			c.evidence[e.Code] = true
		}
	}
	for from, to := range doc.Aliases {
		if _, ok := c.labels[to]; !ok {
			return nil, fmt.Errorf("alias %q points to unknown status %q", from, to)
		}
		c.aliases[from] = to
	}
	for _, s := range doc.UserTransitions {
		code, ok := c.Normalize(s)
		if !ok {
			return nil, fmt.Errorf("user transition %q: %w", s, ErrUnknownStatus)
		}
		c.user[code] = true
	}
	return c, nil
}

// Statuses returns every canonical code in catalog order.
func (c *Catalog) Statuses() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Normalize maps a wire spelling, including legacy aliases, to its canonical
// code. Surrounding whitespace and case are ignored.
func (c *Catalog) Normalize(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if _, ok := c.labels[s]; ok {
		return s, true
	}
	if to, ok := c.aliases[s]; ok {
		return to, true
	}
	return "", false
}

// Canonical is Normalize for display paths: unknown codes pass through as is.
func (c *Catalog) Canonical(raw string) string {
	if s, ok := c.Normalize(raw); ok {
		return s
	}
	return raw
}

func (c *Catalog) Valid(s string) bool {
	_, ok := c.labels[s]
	return ok
}

func (c *Catalog) Label(s string) string {
	if code, ok := c.Normalize(s); ok && c.labels[code] != "" {
		return c.labels[code]
	}
	return s
}

// AcceptsEvidence reports whether a transition into s may carry a screenshot.
func (c *Catalog) AcceptsEvidence(s string) bool {
	return c.evidence[s]
}

// AvailableTransitions lists the statuses role may select for an order that
// is currently in current. The current status is never offered.
func (c *Catalog) AvailableTransitions(role model.Role, current string) []string {
	current = c.Canonical(current)
	out := make([]string, 0, len(c.order))
	for _, s := range c.order {
		if s == current {
			continue
		}
		if role != model.RoleAdmin && !c.user[s] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// CanTransition reports whether role may move an order from one status to
// another. Moving to the same status is never a transition.
func (c *Catalog) CanTransition(role model.Role, from, to string) bool {
	if !c.Valid(to) || c.Canonical(from) == to {
		return false
	}
	if role == model.RoleAdmin {
		return true
	}
	return c.user[to]
}

// Index returns the position of s in catalog order, or len for unknown codes.
func (c *Catalog) Index(s string) int {
	for i, code := range c.order {
		if code == s {
			return i
		}
	}
	return len(c.order)
}
