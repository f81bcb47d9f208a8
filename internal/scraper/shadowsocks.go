package scraper

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// Shadowsocks describes a Shadowsocks server in SIP002 form.
type Shadowsocks struct {
	Host     string `json:"host"`
	Port     uint16 `json:"port"`
	Password string `json:"password"`
	Method   string `json:"method"`
}

// ShadowsocksCodec matches ss://<base64(method:password)>@host:port. The
// userinfo may use either base64 alphabet and may drop its padding.
var ShadowsocksCodec = &Codec[Shadowsocks]{
	protocol: "shadowsocks",
	grammar: newGrammar(
		`\bss://(?P<cred>`+base64Pattern+`)@(?P<host>[^@/?#\s]+):(?P<port>\d+)(?:[/?#\s]|$)`,
		"cred", "host", "port",
	),
	build: func(m match) (Shadowsocks, error) {
		userinfo, err := decodeBase64Text(m.cred)
		if err != nil {
			return Shadowsocks{}, err
		}
		method, password, ok := strings.Cut(userinfo, ":")
		if !ok {
			return Shadowsocks{}, errors.New("userinfo has no method separator")
		}
		return Shadowsocks{
			Host:     m.host,
			Port:     parsePort(m.port),
			Password: password,
			Method:   method,
		}, nil
	},
}

// ScrapeShadowsocks returns every Shadowsocks descriptor found in source.
func ScrapeShadowsocks(source string) []Shadowsocks {
	return ShadowsocksCodec.Scrape(source)
}

func (s Shadowsocks) Protocol() string { return "shadowsocks" }

func (s Shadowsocks) URI() string {
	userinfo := base64.URLEncoding.EncodeToString([]byte(s.Method + ":" + s.Password))
	return "ss://" + userinfo + "@" + s.Host + ":" + strconv.FormatUint(uint64(s.Port), 10)
}
