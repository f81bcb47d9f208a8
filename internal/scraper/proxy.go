// Package scraper extracts proxy share links from unstructured text and
// converts them between typed descriptors and their canonical URI form.
package scraper

import (
	"errors"
	"fmt"
	"net/url"
)

// Proxy is implemented by every descriptor type.
type Proxy interface {
	// Protocol returns the registry name of the descriptor's codec.
	Protocol() string
	// URI renders the descriptor back into its canonical share link.
	URI() string
}

// Parameters holds the decoded query values carried by a descriptor beyond
// its named fields.
type Parameters map[string]string

// Encode renders the parameters as a URL-form query, sorted by key.
func (p Parameters) Encode() string {
	values := make(url.Values, len(p))
	for k, v := range p {
		values.Set(k, v)
	}
	return values.Encode()
}

func (p Parameters) clone() Parameters {
	if p == nil {
		return nil
	}
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// DecodeError reports a candidate link that matched a protocol grammar but
// whose embedded payload could not be decoded.
type DecodeError struct {
	Protocol string
	Link     string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: cannot decode %q: %v", e.Protocol, truncate(e.Link, 80), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Candidate is the outcome of decoding one grammar match. Exactly one of
// Proxy and Err is meaningful.
type Candidate[T Proxy] struct {
	Link  string
	Proxy T
	Err   error
}

// engine is the type-erased view of a Codec used by the registry.
type engine interface {
	Protocol() string
	scrapeAny(links string) []Proxy
	inspectAny(links string) []Candidate[Proxy]
}

var engines = []engine{
	VLessCodec,
	TrojanCodec,
	HysteriaCodec,
	TUICCodec,
	ShadowsocksCodec,
	VMessCodec,
	MTProxyCodec,
}

// Protocols lists the protocol names understood by ScrapeProtocol.
func Protocols() []string {
	names := make([]string, 0, len(engines))
	for _, e := range engines {
		names = append(names, e.Protocol())
	}
	return names
}

func lookup(protocol string) (engine, error) {
	for _, e := range engines {
		if e.Protocol() == protocol {
			return e, nil
		}
	}
	return nil, fmt.Errorf("unknown protocol %q", protocol)
}

// ScrapeAll isolates the links in text once and runs every codec over them.
// Results are grouped by codec, each group in order of appearance.
func ScrapeAll(text string) []Proxy {
	links := Isolate(text)
	var out []Proxy
	for _, e := range engines {
		out = append(out, e.scrapeAny(links)...)
	}
	return out
}

// ScrapeProtocol runs a single codec, selected by name, over text.
func ScrapeProtocol(protocol, text string) ([]Proxy, error) {
	e, err := lookup(protocol)
	if err != nil {
		return nil, err
	}
	return e.scrapeAny(Isolate(text)), nil
}

// Inspect is ScrapeAll with per-candidate outcomes, including decode failures.
func Inspect(text string) []Candidate[Proxy] {
	links := Isolate(text)
	var out []Candidate[Proxy]
	for _, e := range engines {
		out = append(out, e.inspectAny(links)...)
	}
	return out
}

// ErrNoProxy is returned by Parse when the input holds no recognisable link.
var ErrNoProxy = errors.New("no proxy link found")

// Parse decodes a single share link. When s holds several links, codec
// order decides which one is returned.
func Parse(s string) (Proxy, error) {
	var firstErr error
	for _, c := range Inspect(s) {
		if c.Err == nil {
			return c.Proxy, nil
		}
		if firstErr == nil {
			firstErr = c.Err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, ErrNoProxy
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Endpoint returns the server address a descriptor points at.
func Endpoint(p Proxy) (host string, port uint16) {
	switch v := p.(type) {
	case VLess:
		return v.Host, v.Port
	case Trojan:
		return v.Host, v.Port
	case Hysteria:
		return v.Host, v.Port
	case TUIC:
		return v.Host, v.Port
	case Shadowsocks:
		return v.Host, v.Port
	case VMess:
		return v.Host, v.Port
	case MTProxy:
		return v.Host, v.Port
	}
	return "", 0
}
