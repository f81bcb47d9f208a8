package scraper

// Trojan describes a Trojan server.
type Trojan struct {
	Host       string
	Port       uint16
	Password   string
	Parameters Parameters
}

// TrojanCodec matches trojan://password@host:port?query#fragment.
var TrojanCodec = &Codec[Trojan]{
	protocol: "trojan",
	grammar: newGrammar(
		`\btrojan://(?P<cred>`+unreservedPattern+`)@(?P<host>.+):(?P<port>\d+)\?(?P<query>.+)#`,
		"cred", "host", "port", "query",
	),
	build: func(m match) (Trojan, error) {
		params, err := requireQuery(m.query)
		if err != nil {
			return Trojan{}, err
		}
		return Trojan{
			Host:       m.host,
			Port:       parsePort(m.port),
			Password:   m.cred,
			Parameters: params,
		}, nil
	},
}

// ScrapeTrojan returns every Trojan descriptor found in source.
func ScrapeTrojan(source string) []Trojan {
	return TrojanCodec.Scrape(source)
}

func (t Trojan) Protocol() string { return "trojan" }

func (t Trojan) URI() string {
	return formatURI("trojan", t.Password, t.Host, t.Port, t.Parameters)
}

func (t Trojan) MarshalJSON() ([]byte, error) {
	return marshalFlat(map[string]any{
		"host":     t.Host,
		"port":     t.Port,
		"password": t.Password,
	}, t.Parameters)
}

func (t *Trojan) UnmarshalJSON(data []byte) error {
	params, err := unmarshalFlat(data, map[string]any{
		"host":     &t.Host,
		"port":     &t.Port,
		"password": &t.Password,
	})
	if err != nil {
		return err
	}
	t.Parameters = params
	return nil
}
