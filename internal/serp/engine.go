// Package serp describes the search engines a batch can drive: where their
// home page lives, how to find the query box and how to tell that a results
// page rendered.
package serp

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Strategy is the kind of lookup a Locator performs.
type Strategy string

const (
	ByID   Strategy = "id"
	ByName Strategy = "name"
	ByCSS  Strategy = "css"
)

// Locator identifies one element on a page.
type Locator struct {
	Strategy Strategy
	Value    string
}

// CSS renders the locator as a CSS selector.
func (l Locator) CSS() string {
	switch l.Strategy {
	case ByID:
		return "#" + l.Value
	case ByName:
		return fmt.Sprintf("[name=%q]", l.Value)
	default:
		return l.Value
	}
}

func (l Locator) String() string {
	return string(l.Strategy) + "=" + l.Value
}

// Engine is a search site the driver knows how to operate.
type Engine struct {
	Name    string
	HomeURL string
	// Host is matched against the current page to skip redundant navigation.
	Host string
	// InputLocators are tried in order until one matches the query box.
	InputLocators []Locator
	// ResultsIndicator appears once a results page has rendered.
	ResultsIndicator Locator
}

// Bing is the default engine.
func Bing() Engine {
	return Engine{
		Name:    "bing",
		HomeURL: "https://bing.com",
		Host:    "bing.com",
		InputLocators: []Locator{
			{Strategy: ByID, Value: "sb_form_q"},
			{Strategy: ByName, Value: "q"},
			{Strategy: ByCSS, Value: "input[type='search']"},
		},
		ResultsIndicator: Locator{Strategy: ByID, Value: "b_results"},
	}
}

// DuckDuckGo drives the html-light DuckDuckGo front end.
func DuckDuckGo() Engine {
	return Engine{
		Name:    "duckduckgo",
		HomeURL: "https://duckduckgo.com",
		Host:    "duckduckgo.com",
		InputLocators: []Locator{
			{Strategy: ByID, Value: "searchbox_input"},
			{Strategy: ByName, Value: "q"},
		},
		ResultsIndicator: Locator{Strategy: ByCSS, Value: "[data-testid='mainline']"},
	}
}

var registry = map[string]func() Engine{
	"bing":       Bing,
	"duckduckgo": DuckDuckGo,
}

// Names lists the registered engines in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the engine registered under name. Empty means Bing.
func Lookup(name string) (Engine, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Bing(), nil
	}
	f, ok := registry[name]
	if !ok {
		return Engine{}, fmt.Errorf("serp: unknown engine %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return f(), nil
}

// OnSite reports whether currentURL already belongs to the engine, so the
// driver can search from where the browser is instead of reloading home.
func (e Engine) OnSite(currentURL string) bool {
	u, err := url.Parse(currentURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == e.Host || strings.HasSuffix(host, "."+e.Host)
}
