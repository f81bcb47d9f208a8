package scraper

import (
	"errors"
	"strconv"
)

// MTProxy describes a Telegram MTProto proxy.
type MTProxy struct {
	Host       string
	Port       uint16
	Secret     string
	Parameters Parameters
}

// MTProxyCodec matches tg://proxy?... and https://t.me/proxy?... links.
var MTProxyCodec = &Codec[MTProxy]{
	protocol: "mtproxy",
	grammar: newGrammar(
		`\b(?:tg://proxy|https://t\.me/proxy)\?(?P<query>[^\s#]+)`,
		"query",
	),
	build: func(m match) (MTProxy, error) {
		params, err := requireQuery(m.query)
		if err != nil {
			return MTProxy{}, err
		}
		p := MTProxy{
			Host:   params["server"],
			Port:   parsePort(params["port"]),
			Secret: params["secret"],
		}
		if p.Host == "" {
			return MTProxy{}, errors.New("missing server")
		}
		if p.Secret == "" {
			return MTProxy{}, errors.New("missing secret")
		}
		delete(params, "server")
		delete(params, "port")
		delete(params, "secret")
		if len(params) > 0 {
			p.Parameters = params
		}
		return p, nil
	},
}

// ScrapeMTProxy returns every MTProto proxy descriptor found in source.
func ScrapeMTProxy(source string) []MTProxy {
	return MTProxyCodec.Scrape(source)
}

func (p MTProxy) Protocol() string { return "mtproxy" }

func (p MTProxy) URI() string {
	q := p.Parameters.clone()
	if q == nil {
		q = make(Parameters, 3)
	}
	q["server"] = p.Host
	q["port"] = strconv.FormatUint(uint64(p.Port), 10)
	q["secret"] = p.Secret
	return "tg://proxy?" + q.Encode()
}

func (p MTProxy) MarshalJSON() ([]byte, error) {
	return marshalFlat(map[string]any{
		"host":   p.Host,
		"port":   p.Port,
		"secret": p.Secret,
	}, p.Parameters)
}

func (p *MTProxy) UnmarshalJSON(data []byte) error {
	params, err := unmarshalFlat(data, map[string]any{
		"host":   &p.Host,
		"port":   &p.Port,
		"secret": &p.Secret,
	})
	if err != nil {
		return err
	}
	p.Parameters = params
	return nil
}
