package scraper

import (
	"errors"
	"regexp"
)

// errSkip makes a build function drop its candidate silently, the same way a
// match with an empty required capture is dropped.
var errSkip = errors.New("skip candidate")

// grammar describes one link shape. Captures are named: scheme, cred, host,
// port and query; required lists those that must be non-empty for a match to
// count as a candidate at all.
type grammar struct {
	pattern  *regexp.Regexp
	required []string
}

func newGrammar(pattern string, required ...string) grammar {
	return grammar{
		pattern:  regexp.MustCompile(pattern),
		required: required,
	}
}

// match is one raw hit of a grammar over the isolated link stream.
type match struct {
	link   string
	scheme string
	cred   string
	host   string
	port   string
	query  string
}

func (g grammar) matches(links string) []match {
	var out []match
	for _, sub := range g.pattern.FindAllStringSubmatch(links, -1) {
		if !g.complete(sub) {
			continue
		}
		out = append(out, match{
			link:   sub[0],
			scheme: g.group(sub, "scheme"),
			cred:   g.group(sub, "cred"),
			host:   g.group(sub, "host"),
			port:   g.group(sub, "port"),
			query:  g.group(sub, "query"),
		})
	}
	return out
}

func (g grammar) complete(sub []string) bool {
	for _, name := range g.required {
		if g.group(sub, name) == "" {
			return false
		}
	}
	return true
}

func (g grammar) group(sub []string, name string) string {
	i := g.pattern.SubexpIndex(name)
	if i < 0 || i >= len(sub) {
		return ""
	}
	return sub[i]
}

// Codec is the parse and format pair for one link scheme. The grammar finds
// candidates; build decodes a candidate into a descriptor.
type Codec[T Proxy] struct {
	protocol string
	grammar  grammar
	build    func(m match) (T, error)
}

// Protocol returns the name the codec is registered under.
func (c *Codec[T]) Protocol() string { return c.protocol }

// Scrape returns every descriptor of this codec's protocol found in source,
// in order of appearance. Malformed or undecodable candidates are left out.
func (c *Codec[T]) Scrape(source string) []T {
	return c.scrape(Isolate(source))
}

// Candidates is Scrape with decode failures reported instead of dropped.
func (c *Codec[T]) Candidates(source string) []Candidate[T] {
	return c.candidates(Isolate(source))
}

func (c *Codec[T]) scrape(links string) []T {
	var out []T
	for _, cand := range c.candidates(links) {
		if cand.Err == nil {
			out = append(out, cand.Proxy)
		}
	}
	return out
}

func (c *Codec[T]) candidates(links string) []Candidate[T] {
	var out []Candidate[T]
	for _, m := range c.grammar.matches(links) {
		p, err := c.build(m)
		switch {
		case errors.Is(err, errSkip):
			continue
		case err != nil:
			out = append(out, Candidate[T]{
				Link: m.link,
				Err:  &DecodeError{Protocol: c.protocol, Link: m.link, Err: err},
			})
		default:
			out = append(out, Candidate[T]{Link: m.link, Proxy: p})
		}
	}
	return out
}

func (c *Codec[T]) scrapeAny(links string) []Proxy {
	found := c.scrape(links)
	out := make([]Proxy, 0, len(found))
	for _, p := range found {
		out = append(out, p)
	}
	return out
}

func (c *Codec[T]) inspectAny(links string) []Candidate[Proxy] {
	found := c.candidates(links)
	out := make([]Candidate[Proxy], 0, len(found))
	for _, cand := range found {
		if cand.Err != nil {
			out = append(out, Candidate[Proxy]{Link: cand.Link, Err: cand.Err})
			continue
		}
		out = append(out, Candidate[Proxy]{Link: cand.Link, Proxy: cand.Proxy})
	}
	return out
}
