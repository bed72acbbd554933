// Package terms generates plausible search phrases from a static catalog of
// templates, word banks, keywords, questions and location patterns.
package terms

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Catalog is the raw material the synthesizer draws from.
type Catalog struct {
	// Templates reference Banks through {role} placeholders.
	Templates []string
	Banks     map[string][]string
	// Keywords are combined 1-3 at a time.
	Keywords []string
	// Questions reference QuestionBanks through {role} placeholders.
	Questions     []string
	QuestionBanks map[string][]string
	// LocalTemplates carry a single {location} filled from LocalPlaces.
	LocalTemplates []string
	LocalPlaces    []string
}

// Validate checks that every placeholder a pattern uses has a non-empty bank.
func (c Catalog) Validate() error {
	var errs []error
	check := func(kind string, patterns []string, banks map[string][]string) {
		for _, p := range patterns {
			for _, role := range roles(p) {
				if len(banks[role]) == 0 {
					errs = append(errs, fmt.Errorf("%s %q: no words for {%s}", kind, p, role))
				}
			}
		}
	}
	check("template", c.Templates, c.Banks)
	check("question", c.Questions, c.QuestionBanks)
	check("local pattern", c.LocalTemplates, map[string][]string{"location": c.LocalPlaces})
	if len(c.Templates)+len(c.Keywords)+len(c.Questions)+len(c.LocalTemplates) == 0 {
		errs = append(errs, errors.New("catalog is empty"))
	}
	return errors.Join(errs...)
}

func roles(pattern string) []string {
	matches := placeholder.FindAllStringSubmatch(pattern, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// Strategy names one way of producing a phrase.
type Strategy string

const (
	StrategyTemplate Strategy = "template"
	StrategyKeyword  Strategy = "keyword"
	StrategyQuestion Strategy = "question"
	StrategyLocal    Strategy = "local"
)

// Synthesizer produces search phrases. It is not safe for concurrent use.
type Synthesizer struct {
	catalog    Catalog
	rng        *rand.Rand
	strategies []Strategy
	maxKeys    int
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithCatalog replaces the default catalog.
func WithCatalog(c Catalog) Option {
	return func(s *Synthesizer) { s.catalog = c }
}

// New builds a Synthesizer drawing from rng. A nil rng is seeded from the
// clock; pass a seeded one for reproducible output.
func New(rng *rand.Rand, opts ...Option) (*Synthesizer, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Synthesizer{catalog: DefaultCatalog(), rng: rng, maxKeys: 3}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.catalog.Validate(); err != nil {
		return nil, fmt.Errorf("terms: invalid catalog: %w", err)
	}

	// Strategies with nothing to draw from are left out of the pick.
	if len(s.catalog.Templates) > 0 {
		s.strategies = append(s.strategies, StrategyTemplate)
	}
	if len(s.catalog.Keywords) > 0 {
		s.strategies = append(s.strategies, StrategyKeyword)
	}
	if len(s.catalog.Questions) > 0 {
		s.strategies = append(s.strategies, StrategyQuestion)
	}
	if len(s.catalog.LocalTemplates) > 0 {
		s.strategies = append(s.strategies, StrategyLocal)
	}
	return s, nil
}

// Strategies reports the strategies this synthesizer picks between.
func (s *Synthesizer) Strategies() []Strategy {
	out := make([]Strategy, len(s.strategies))
	copy(out, s.strategies)
	return out
}

// GenerateOne returns a single phrase from a uniformly chosen strategy.
func (s *Synthesizer) GenerateOne() string {
	switch s.strategies[s.rng.Intn(len(s.strategies))] {
	case StrategyTemplate:
		return s.fill(s.pick(s.catalog.Templates), s.catalog.Banks)
	case StrategyKeyword:
		return s.combineKeywords()
	case StrategyQuestion:
		return s.fill(s.pick(s.catalog.Questions), s.catalog.QuestionBanks)
	default:
		return s.fill(s.pick(s.catalog.LocalTemplates), map[string][]string{"location": s.catalog.LocalPlaces})
	}
}

// GenerateMany returns up to count distinct phrases in generation order.
// Generation gives up early once fewer than one in ten draws has been new,
// so a small catalog yields fewer than count phrases rather than looping.
func (s *Synthesizer) GenerateMany(count int) []string {
	if count <= 0 {
		return []string{}
	}
	out := make([]string, 0, count)
	seen := make(map[string]struct{}, count)
	for draws := 1; len(out) < count; draws++ {
		term := s.GenerateOne()
		if _, dup := seen[term]; !dup {
			seen[term] = struct{}{}
			out = append(out, term)
			continue
		}
		if len(out)*10 < draws {
			break
		}
	}
	return out
}

func (s *Synthesizer) pick(list []string) string {
	return list[s.rng.Intn(len(list))]
}

// fill replaces each placeholder occurrence with an independent draw.
func (s *Synthesizer) fill(pattern string, banks map[string][]string) string {
	return placeholder.ReplaceAllStringFunc(pattern, func(m string) string {
		return s.pick(banks[m[1:len(m)-1]])
	})
}

func (s *Synthesizer) combineKeywords() string {
	n := 1 + s.rng.Intn(s.maxKeys)
	if n > len(s.catalog.Keywords) {
		n = len(s.catalog.Keywords)
	}
	idx := s.rng.Perm(len(s.catalog.Keywords))[:n]
	words := make([]string, n)
	for i, j := range idx {
		words[i] = s.catalog.Keywords[j]
	}
	return strings.Join(words, " ")
}

// Roles lists every placeholder role the catalog's patterns reference.
func (c Catalog) Roles() []string {
	set := map[string]struct{}{}
	for _, list := range [][]string{c.Templates, c.Questions, c.LocalTemplates} {
		for _, p := range list {
			for _, r := range roles(p) {
				set[r] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
