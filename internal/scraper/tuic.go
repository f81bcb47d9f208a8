package scraper

// TUIC describes a TUIC server.
type TUIC struct {
	Host       string
	Port       uint16
	Auth       string
	Parameters Parameters
}

// TUICCodec matches tuic://auth@host:port?query#fragment.
var TUICCodec = &Codec[TUIC]{
	protocol: "tuic",
	grammar: newGrammar(
		`\btuic://(?P<cred>`+unreservedPattern+`)@(?P<host>.+):(?P<port>\d+)\?(?P<query>.+)#`,
		"cred", "host", "port", "query",
	),
	build: func(m match) (TUIC, error) {
		params, err := requireQuery(m.query)
		if err != nil {
			return TUIC{}, err
		}
		return TUIC{
			Host:       m.host,
			Port:       parsePort(m.port),
			Auth:       m.cred,
			Parameters: params,
		}, nil
	},
}

// ScrapeTUIC returns every TUIC descriptor found in source.
func ScrapeTUIC(source string) []TUIC {
	return TUICCodec.Scrape(source)
}

func (t TUIC) Protocol() string { return "tuic" }

func (t TUIC) URI() string {
	return formatURI("tuic", t.Auth, t.Host, t.Port, t.Parameters)
}

func (t TUIC) MarshalJSON() ([]byte, error) {
	return marshalFlat(map[string]any{
		"host": t.Host,
		"port": t.Port,
		"auth": t.Auth,
	}, t.Parameters)
}

func (t *TUIC) UnmarshalJSON(data []byte) error {
	params, err := unmarshalFlat(data, map[string]any{
		"host": &t.Host,
		"port": &t.Port,
		"auth": &t.Auth,
	})
	if err != nil {
		return err
	}
	t.Parameters = params
	return nil
}
