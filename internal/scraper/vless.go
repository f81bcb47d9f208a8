package scraper

import (
	"fmt"

	"github.com/google/uuid"
)

// VLess describes a VLESS server.
type VLess struct {
	Host       string
	Port       uint16
	ID         string
	Parameters Parameters
}

// VLessCodec matches vless://<uuid>@host:port?query#fragment.
var VLessCodec = &Codec[VLess]{
	protocol: "vless",
	grammar: newGrammar(
		`\bvless://(?P<cred>`+uuidPattern+`)@(?P<host>.+):(?P<port>\d+)\?(?P<query>.+)#`,
		"cred", "host", "port", "query",
	),
	build: func(m match) (VLess, error) {
		params, err := requireQuery(m.query)
		if err != nil {
			return VLess{}, err
		}
		return VLess{
			Host:       m.host,
			Port:       parsePort(m.port),
			ID:         m.cred,
			Parameters: params,
		}, nil
	},
}

// ScrapeVLess returns every VLESS descriptor found in source.
func ScrapeVLess(source string) []VLess {
	return VLessCodec.Scrape(source)
}

func (v VLess) Protocol() string { return "vless" }

func (v VLess) URI() string {
	return formatURI("vless", v.ID, v.Host, v.Port, v.Parameters)
}

// Validate checks that ID is a well-formed UUID.
func (v VLess) Validate() error {
	if err := uuid.Validate(v.ID); err != nil {
		return fmt.Errorf("vless id: %w", err)
	}
	return nil
}

func (v VLess) MarshalJSON() ([]byte, error) {
	return marshalFlat(map[string]any{
		"host": v.Host,
		"port": v.Port,
		"id":   v.ID,
	}, v.Parameters)
}

func (v *VLess) UnmarshalJSON(data []byte) error {
	params, err := unmarshalFlat(data, map[string]any{
		"host": &v.Host,
		"port": &v.Port,
		"id":   &v.ID,
	})
	if err != nil {
		return err
	}
	v.Parameters = params
	return nil
}
