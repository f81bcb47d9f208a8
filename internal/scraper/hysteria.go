package scraper

// Hysteria describes a Hysteria server. Version is 1 for hysteria:// links
// and 2 for hysteria2:// and hy2:// links.
type Hysteria struct {
	Version    uint8
	Host       string
	Port       uint16
	Auth       string
	Parameters Parameters
}

// HysteriaCodec matches hysteria://, hysteria2:// and hy2:// links.
var HysteriaCodec = &Codec[Hysteria]{
	protocol: "hysteria",
	grammar: newGrammar(
		`\b(?P<scheme>hy2|hysteria2|hysteria)://(?P<cred>`+unreservedPattern+`)@(?P<host>.+):(?P<port>\d+)\?(?P<query>.+)#`,
		"scheme", "cred", "host", "port", "query",
	),
	build: func(m match) (Hysteria, error) {
		params, err := requireQuery(m.query)
		if err != nil {
			return Hysteria{}, err
		}
		return Hysteria{
			Version:    hysteriaVersion(m.scheme),
			Host:       m.host,
			Port:       parsePort(m.port),
			Auth:       m.cred,
			Parameters: params,
		}, nil
	},
}

func hysteriaVersion(scheme string) uint8 {
	switch scheme {
	case "hy2", "hysteria2":
		return 2
	default:
		return 1
	}
}

// ScrapeHysteria returns every Hysteria descriptor found in source.
func ScrapeHysteria(source string) []Hysteria {
	return HysteriaCodec.Scrape(source)
}

func (h Hysteria) Protocol() string { return "hysteria" }

// Scheme is the canonical scheme token for the descriptor's version.
func (h Hysteria) Scheme() string {
	if h.Version == 1 {
		return "hysteria"
	}
	return "hy2"
}

func (h Hysteria) URI() string {
	return formatURI(h.Scheme(), h.Auth, h.Host, h.Port, h.Parameters)
}

func (h Hysteria) MarshalJSON() ([]byte, error) {
	return marshalFlat(map[string]any{
		"version": h.Version,
		"host":    h.Host,
		"port":    h.Port,
		"auth":    h.Auth,
	}, h.Parameters)
}

func (h *Hysteria) UnmarshalJSON(data []byte) error {
	params, err := unmarshalFlat(data, map[string]any{
		"version": &h.Version,
		"host":    &h.Host,
		"port":    &h.Port,
		"auth":    &h.Auth,
	})
	if err != nil {
		return err
	}
	h.Parameters = params
	return nil
}
