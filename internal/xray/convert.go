package xray

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"proxyscraper/internal/scraper"

	"github.com/xtls/xray-core/infra/conf"
)

// ErrUnsupported is returned for descriptors Xray has no outbound for.
var ErrUnsupported = errors.New("no xray outbound for this proxy")

// ToOutbound converts a descriptor into an Xray outbound. The result is not
// validated; see Validate.
func ToOutbound(p scraper.Proxy) (*conf.OutboundDetourConfig, error) {
	var (
		protocol string
		settings json.RawMessage
		stream   *conf.StreamConfig
	)

	switch v := p.(type) {
	case scraper.VLess:
		protocol = "vless"
		settings = buildVLESS(v)
		stream = buildStreamSettings(transportFromQuery(v.Parameters, ""))
	case scraper.Trojan:
		protocol = "trojan"
		settings = buildTrojan(v)
		stream = buildStreamSettings(transportFromQuery(v.Parameters, "tls"))
	case scraper.Shadowsocks:
		protocol = "shadowsocks"
		settings = buildShadowsocks(v)
	case scraper.VMess:
		protocol = "vmess"
		settings = buildVMess(v)
		stream = buildStreamSettings(transportFromVMess(v.Parameters))
	case scraper.Hysteria:
		if v.Version != 2 {
			return nil, fmt.Errorf("hysteria v%d: %w", v.Version, ErrUnsupported)
		}
		protocol = "hysteria2"
		settings = buildHysteria2(v)
		stream = buildStreamSettings(transport{
			network:  "udp",
			security: "tls",
			sni:      v.Parameters["sni"],
			insecure: isTrue(v.Parameters["insecure"]),
		})
	default:
		return nil, fmt.Errorf("%s: %w", p.Protocol(), ErrUnsupported)
	}

	return &conf.OutboundDetourConfig{
		Tag:           "proxy",
		Protocol:      protocol,
		Settings:      &settings,
		StreamSetting: stream,
	}, nil
}

// --- JSON Builders ---

func buildVMess(v scraper.VMess) json.RawMessage {
	security := v.Parameters["scy"]
	if security == "" {
		security = "auto"
	}
	return jsonRaw(map[string]interface{}{
		"vnext": []interface{}{
			map[string]interface{}{
				"address": v.Host,
				"port":    v.Port,
				"users": []interface{}{
					map[string]interface{}{
						"id":       v.ID,
						"security": security,
					},
				},
			},
		},
	})
}

func buildVLESS(v scraper.VLess) json.RawMessage {
	encryption := v.Parameters["encryption"]
	if encryption == "" {
		encryption = "none"
	}
	return jsonRaw(map[string]interface{}{
		"vnext": []interface{}{
			map[string]interface{}{
				"address": v.Host,
				"port":    v.Port,
				"users": []interface{}{
					map[string]interface{}{
						"id":         v.ID,
						"encryption": encryption,
						"flow":       v.Parameters["flow"],
					},
				},
			},
		},
	})
}

func buildTrojan(t scraper.Trojan) json.RawMessage {
	return jsonRaw(map[string]interface{}{
		"servers": []interface{}{
			map[string]interface{}{
				"address":  t.Host,
				"port":     t.Port,
				"password": t.Password,
			},
		},
	})
}

func buildShadowsocks(s scraper.Shadowsocks) json.RawMessage {
	return jsonRaw(map[string]interface{}{
		"servers": []interface{}{
			map[string]interface{}{
				"address":  s.Host,
				"port":     s.Port,
				"method":   s.Method,
				"password": s.Password,
			},
		},
	})
}

func buildHysteria2(h scraper.Hysteria) json.RawMessage {
	settings := map[string]interface{}{
		"address": h.Host,
		"port":    h.Port,
		"auth":    h.Auth,
	}
	if obfs := h.Parameters["obfs"]; obfs != "" {
		settings["obfs"] = map[string]interface{}{
			"type": obfs,
			obfs: map[string]interface{}{
				"password": h.Parameters["obfs-password"],
			},
		}
	}
	return jsonRaw(settings)
}

// transport is the stream description shared by the link formats.
type transport struct {
	network     string
	security    string
	sni         string
	fingerprint string
	alpn        []string
	insecure    bool

	publicKey string
	shortID   string
	spiderX   string

	host        string
	path        string
	serviceName string
	multiMode   bool
	headerType  string
}

// transportFromQuery reads the stream keys used by vless:// and trojan://
// links. defaultSecurity applies when the link names none.
func transportFromQuery(q scraper.Parameters, defaultSecurity string) transport {
	t := transport{
		network:     q["type"],
		security:    q["security"],
		sni:         q["sni"],
		fingerprint: q["fp"],
		alpn:        splitList(q["alpn"]),
		insecure:    isTrue(q["allowInsecure"]) || isTrue(q["insecure"]),
		publicKey:   q["pbk"],
		shortID:     q["sid"],
		spiderX:     q["spx"],
		host:        q["host"],
		path:        q["path"],
		serviceName: q["serviceName"],
		multiMode:   q["mode"] == "multi",
		headerType:  q["headerType"],
	}
	if t.sni == "" {
		t.sni = q["peer"]
	}
	if t.security == "" {
		t.security = defaultSecurity
	}
	if t.security == "none" {
		t.security = ""
	}
	return t
}

// transportFromVMess reads the v2rayN share object keys.
func transportFromVMess(p scraper.Parameters) transport {
	t := transport{
		network:     p["net"],
		sni:         p["sni"],
		fingerprint: p["fp"],
		alpn:        splitList(p["alpn"]),
		host:        p["host"],
		path:        p["path"],
		headerType:  p["type"],
	}
	if p["tls"] == "tls" {
		t.security = "tls"
	}
	if t.network == "grpc" {
		t.serviceName = p["path"]
		t.multiMode = p["type"] == "multi"
	}
	return t
}

func buildStreamSettings(t transport) *conf.StreamConfig {
	if t.network == "" {
		t.network = "tcp"
	}

	sc := &conf.StreamConfig{
		Network:  (*conf.TransportProtocol)(&t.network),
		Security: t.security,
	}

	// TLS / REALITY
	if t.security == "tls" || t.security == "reality" {
		sc.TLSSettings = &conf.TLSConfig{
			ServerName:  t.sni,
			Fingerprint: t.fingerprint,
			Insecure:    t.insecure,
		}
		if len(t.alpn) > 0 {
			alpn := conf.StringList(t.alpn)
			sc.TLSSettings.ALPN = &alpn
		}

		if t.security == "reality" {
			sc.REALITYSettings = &conf.REALITYConfig{
				Fingerprint: t.fingerprint,
				ServerName:  t.sni,
				PublicKey:   t.publicKey,
				ShortId:     t.shortID,
				SpiderX:     t.spiderX,
			}
		}
	}

	switch t.network {
	case "ws":
		sc.WSSettings = &conf.WebSocketConfig{
			Path:    t.path,
			Headers: map[string]string{"Host": t.host},
		}
	case "grpc":
		sc.GRPCSettings = &conf.GRPCConfig{
			ServiceName: t.serviceName,
			MultiMode:   t.multiMode,
		}
	case "tcp":
		if t.headerType == "http" {
			path := t.path
			if path == "" {
				path = "/"
			}
			sc.TCPSettings = &conf.TCPConfig{
				HeaderConfig: jsonRaw(map[string]interface{}{
					"type": "http",
					"request": map[string]interface{}{
						"headers": map[string]interface{}{
							"Host": []string{t.host},
						},
						"path": []string{path},
					},
				}),
			}
		}
	}

	return sc
}

// --- Internal Helper Functions ---

func jsonRaw(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return json.RawMessage(b)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isTrue(s string) bool {
	return s == "1" || strings.EqualFold(s, "true")
}
