package xray

import (
	"encoding/json"
	"errors"
	"testing"

	"proxyscraper/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUUID = "b831381d-6324-4d53-ad4f-8cda48b30811"

func settingsOf(t *testing.T, raw *json.RawMessage) map[string]interface{} {
	t.Helper()
	require.NotNil(t, raw)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(*raw, &m))
	return m
}

func TestToOutboundVLessReality(t *testing.T) {
	out, err := ToOutbound(scraper.VLess{
		Host: "example.com",
		Port: 443,
		ID:   testUUID,
		Parameters: scraper.Parameters{
			"security":    "reality",
			"sni":         "www.example.org",
			"fp":          "chrome",
			"pbk":         "pubkey",
			"sid":         "ab",
			"type":        "grpc",
			"serviceName": "svc",
			"flow":        "xtls-rprx-vision",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "vless", out.Protocol)

	s := settingsOf(t, out.Settings)
	user := s["vnext"].([]interface{})[0].(map[string]interface{})["users"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, testUUID, user["id"])
	assert.Equal(t, "none", user["encryption"])
	assert.Equal(t, "xtls-rprx-vision", user["flow"])

	st := out.StreamSetting
	require.NotNil(t, st)
	assert.Equal(t, "grpc", string(*st.Network))
	assert.Equal(t, "reality", st.Security)
	require.NotNil(t, st.REALITYSettings)
	assert.Equal(t, "pubkey", st.REALITYSettings.PublicKey)
	assert.Equal(t, "www.example.org", st.REALITYSettings.ServerName)
	require.NotNil(t, st.GRPCSettings)
	assert.Equal(t, "svc", st.GRPCSettings.ServiceName)
}

func TestToOutboundTrojanDefaultsToTLS(t *testing.T) {
	out, err := ToOutbound(scraper.Trojan{
		Host: "t.example", Port: 443, Password: "pw",
		Parameters: scraper.Parameters{"type": "ws", "path": "/ws", "host": "cdn.example", "alpn": "h2,http/1.1"},
	})
	require.NoError(t, err)
	st := out.StreamSetting
	assert.Equal(t, "tls", st.Security)
	require.NotNil(t, st.TLSSettings)
	require.NotNil(t, st.TLSSettings.ALPN)
	assert.Equal(t, []string{"h2", "http/1.1"}, []string(*st.TLSSettings.ALPN))
	require.NotNil(t, st.WSSettings)
	assert.Equal(t, "/ws", st.WSSettings.Path)
	assert.Equal(t, "cdn.example", st.WSSettings.Headers["Host"])
}

func TestToOutboundVMess(t *testing.T) {
	out, err := ToOutbound(scraper.VMess{
		Host: "vm.example", Port: 8080, ID: testUUID,
		Parameters: scraper.Parameters{"net": "tcp", "type": "http", "host": "h.example", "tls": ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "vmess", out.Protocol)
	assert.Equal(t, "", out.StreamSetting.Security)
	require.NotNil(t, out.StreamSetting.TCPSettings)

	s := settingsOf(t, out.Settings)
	server := s["vnext"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "vm.example", server["address"])
	assert.Equal(t, float64(8080), server["port"])
}

func TestToOutboundHysteria(t *testing.T) {
	out, err := ToOutbound(scraper.Hysteria{
		Version: 2, Host: "h", Port: 443, Auth: "a",
		Parameters: scraper.Parameters{"obfs": "salamander", "obfs-password": "x", "sni": "s"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hysteria2", out.Protocol)
	s := settingsOf(t, out.Settings)
	assert.Equal(t, "a", s["auth"])
	assert.Equal(t, "salamander", s["obfs"].(map[string]interface{})["type"])
	assert.Equal(t, "s", out.StreamSetting.TLSSettings.ServerName)

	_, err = ToOutbound(scraper.Hysteria{Version: 1, Host: "h", Port: 1, Auth: "a"})
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestToOutboundUnsupported(t *testing.T) {
	for _, p := range []scraper.Proxy{
		scraper.TUIC{Host: "h", Port: 1, Auth: "a"},
		scraper.MTProxy{Host: "h", Port: 1, Secret: "s"},
	} {
		_, err := ToOutbound(p)
		assert.ErrorIs(t, err, ErrUnsupported, p.Protocol())
	}
}

func TestExport(t *testing.T) {
	doc, skipped := Export([]scraper.Proxy{
		scraper.Trojan{Host: "t.example", Port: 443, Password: "pw", Parameters: scraper.Parameters{"sni": "t.example"}},
		scraper.TUIC{Host: "h", Port: 1, Auth: "a"},
		scraper.Shadowsocks{Host: "s.example", Port: 8388, Password: "p", Method: "not-a-cipher"},
	})

	require.Len(t, doc.Outbounds, 1)
	assert.Equal(t, "trojan-0", doc.Outbounds[0].Tag)

	require.Len(t, skipped, 2)
	assert.ErrorIs(t, skipped[0].Err, ErrUnsupported)
	assert.Equal(t, "shadowsocks", skipped[1].Proxy.Protocol())
	assert.Error(t, skipped[1].Err)

	b, err := doc.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"outbounds"`)
	assert.Contains(t, string(b), `"trojan-0"`)
}
