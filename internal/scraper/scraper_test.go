package scraper

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUUID = "b831381d-6324-4d53-ad4f-8cda48b30811"

func vmessLink(t *testing.T, obj map[string]any) string {
	t.Helper()
	b, err := json.Marshal(obj)
	require.NoError(t, err)
	return "vmess://" + base64.StdEncoding.EncodeToString(b)
}

func TestScrapeVLess(t *testing.T) {
	got := ScrapeVLess("sub: vless://" + testUUID + "@example.com:443?security=tls&type=ws#node-1")
	require.Len(t, got, 1)
	assert.Equal(t, VLess{
		Host: "example.com",
		Port: 443,
		ID:   testUUID,
		Parameters: Parameters{
			"security": "tls",
			"type":     "ws",
		},
	}, got[0])
	assert.Equal(t, "vless://"+testUUID+"@example.com:443?security=tls&type=ws#", got[0].URI())
	assert.NoError(t, got[0].Validate())
}

func TestScrapeVLessRejects(t *testing.T) {
	for _, link := range []string{
		"vless://" + testUUID + "@example.com:443#no-query",
		"vless://not-a-uuid@example.com:443?a=b#x",
		"vless://" + testUUID + "@example.com:443?a=b",
		"vless://" + testUUID + "@example.com:443?&&#x",
	} {
		assert.Empty(t, ScrapeVLess(link), link)
	}
}

func TestScrapeTrojan(t *testing.T) {
	got := ScrapeTrojan("trojan://s3cr3t-pw@[2001:db8::1]:8443?sni=a.example&sni=b.example#x")
	require.Len(t, got, 1)
	assert.Equal(t, "[2001:db8::1]", got[0].Host)
	assert.Equal(t, uint16(8443), got[0].Port)
	assert.Equal(t, "s3cr3t-pw", got[0].Password)
	assert.Equal(t, Parameters{"sni": "b.example"}, got[0].Parameters)
}

func TestPortOutOfRange(t *testing.T) {
	got := ScrapeTrojan("trojan://pw@h:99999?sni=a#x")
	require.Len(t, got, 1)
	assert.Equal(t, uint16(0), got[0].Port)
}

func TestScrapeHysteriaVersions(t *testing.T) {
	got := ScrapeHysteria("hysteria://a@h:1?x=1#f hysteria2://b@h:2?y=2#f hy2://c@h:3?z=3#f")
	require.Len(t, got, 3)

	assert.Equal(t, uint8(1), got[0].Version)
	assert.Equal(t, "a", got[0].Auth)
	assert.Equal(t, "hysteria://a@h:1?x=1#", got[0].URI())

	assert.Equal(t, uint8(2), got[1].Version)
	assert.Equal(t, "hy2://b@h:2?y=2#", got[1].URI())

	assert.Equal(t, uint8(2), got[2].Version)
	assert.Equal(t, uint16(3), got[2].Port)
}

func TestScrapeTUIC(t *testing.T) {
	got := ScrapeTUIC("tuic://token_1@1.2.3.4:443?congestion_control=bbr&alpn=h3#t")
	require.Len(t, got, 1)
	assert.Equal(t, TUIC{
		Host:       "1.2.3.4",
		Port:       443,
		Auth:       "token_1",
		Parameters: Parameters{"congestion_control": "bbr", "alpn": "h3"},
	}, got[0])
}

func TestScrapeShadowsocks(t *testing.T) {
	got := ScrapeShadowsocks("ss://YWVzLTI1Ni1nY206cGFzczEyMw==@1.2.3.4:8388#tag")
	require.Len(t, got, 1)
	assert.Equal(t, Shadowsocks{
		Host:     "1.2.3.4",
		Port:     8388,
		Password: "pass123",
		Method:   "aes-256-gcm",
	}, got[0])
	assert.Equal(t, "ss://YWVzLTI1Ni1nY206cGFzczEyMw==@1.2.3.4:8388", got[0].URI())
}

func TestScrapeShadowsocksUnpadded(t *testing.T) {
	got := ScrapeShadowsocks("ss://Zm9vOmJhcg@h.example:8388/?plugin=obfs")
	require.Len(t, got, 1)
	assert.Equal(t, "foo", got[0].Method)
	assert.Equal(t, "bar", got[0].Password)
	assert.Equal(t, "h.example", got[0].Host)
}

func TestShadowsocksCandidatesReportFailures(t *testing.T) {
	cands := ShadowsocksCodec.Candidates("ss://YWJj@h:1#x ss://QUJDR@h:2#y ss://Zm9vOmJhcg==@h:3#z")
	require.Len(t, cands, 3)

	var derr *DecodeError
	require.True(t, errors.As(cands[0].Err, &derr))
	assert.Equal(t, "shadowsocks", derr.Protocol)
	assert.Contains(t, derr.Error(), "method separator")

	assert.Error(t, cands[1].Err)
	assert.NoError(t, cands[2].Err)
	assert.Equal(t, uint16(3), cands[2].Proxy.Port)

	// Failures never hide their neighbours.
	assert.Len(t, ScrapeShadowsocks("ss://YWJj@h:1#x ss://Zm9vOmJhcg==@h:3#z"), 1)
}

func TestDecodeBase64TextAlphabets(t *testing.T) {
	for _, blob := range []string{"Pz8+", "Pz8-"} {
		s, err := decodeBase64Text(blob)
		require.NoError(t, err)
		assert.Equal(t, "??>", s)
	}
}

func TestDecodeBase64TextPadding(t *testing.T) {
	for _, blob := range []string{"YQ", "YQ=="} {
		s, err := decodeBase64Text(blob)
		require.NoError(t, err, blob)
		assert.Equal(t, "a", s)
	}
	for _, blob := range []string{"YQ=", "YWI==", "YQ==="} {
		_, err := decodeBase64Text(blob)
		assert.ErrorContains(t, err, "invalid base64", blob)
	}
}

func TestQueryKeepsSemicolons(t *testing.T) {
	got := ScrapeVLess("vless://" + testUUID + "@h.example:443?type=ws&path=/ws;ed=2048&alpn=h2;http/1.1&security=tls#n")
	require.Len(t, got, 1)
	assert.Equal(t, Parameters{
		"type":     "ws",
		"path":     "/ws;ed=2048",
		"alpn":     "h2;http/1.1",
		"security": "tls",
	}, got[0].Parameters)

	again := ScrapeVLess(got[0].URI())
	require.Len(t, again, 1)
	assert.Equal(t, got[0], again[0])

	assert.Len(t, ScrapeTrojan("trojan://pw@h.example:443?path=/a;b&sni=h.example#n"), 1)
}

func TestQueryRepeatedKeysKeepLast(t *testing.T) {
	got := ScrapeTrojan("trojan://pw@h:1?sni=a&&sni=b&flag#n")
	require.Len(t, got, 1)
	assert.Equal(t, Parameters{"sni": "b", "flag": ""}, got[0].Parameters)
}

func TestQueryDecodeFailure(t *testing.T) {
	cands := TrojanCodec.Candidates("trojan://pw@h:1?a=%zz#f")
	require.Len(t, cands, 1)
	assert.ErrorContains(t, cands[0].Err, "invalid query")
}

func TestScrapeVMess(t *testing.T) {
	link := vmessLink(t, map[string]any{
		"v":    "2",
		"ps":   "node",
		"add":  "vm.example.com",
		"port": "443",
		"id":   testUUID,
		"aid":  0,
		"net":  "ws",
		"tls":  "tls",
	})
	got := ScrapeVMess("subscription:\n" + link + "\n")
	require.Len(t, got, 1)
	assert.Equal(t, VMess{
		Host: "vm.example.com",
		Port: 443,
		ID:   testUUID,
		Parameters: Parameters{
			"v":   "2",
			"ps":  "node",
			"aid": "0",
			"net": "ws",
			"tls": "tls",
		},
	}, got[0])
	assert.NoError(t, got[0].Validate())
}

func TestScrapeVMessFailures(t *testing.T) {
	bad := []string{
		"vmess://" + base64.StdEncoding.EncodeToString([]byte("hello")),
		vmessLink(t, map[string]any{"add": "h", "port": 1, "id": "nope"}),
		vmessLink(t, map[string]any{"port": 1, "id": testUUID}),
	}
	for _, link := range bad {
		cands := VMessCodec.Candidates(link)
		require.Len(t, cands, 1, link)
		assert.Error(t, cands[0].Err, link)
	}
}

func TestScrapeLinksFollowedByTags(t *testing.T) {
	const bareSS = "ss://YWVzLTI1Ni1nY206cGFzczEyMw==@1.2.3.4:8388"
	wrapped := ScrapeShadowsocks("<p>" + bareSS + "</p>")
	require.Len(t, wrapped, 1)
	assert.Equal(t, ScrapeShadowsocks(bareSS), wrapped)

	const bareMT = "tg://proxy?server=1.2.3.4&port=443&secret=ee00ff"
	mt := ScrapeMTProxy("<div>" + bareMT + "</div>")
	require.Len(t, mt, 1)
	assert.Equal(t, "ee00ff", mt[0].Secret)
	assert.Equal(t, ScrapeMTProxy(bareMT), mt)
}

func TestScrapeMTProxy(t *testing.T) {
	got := ScrapeMTProxy(`join tg://proxy?server=1.2.3.4&port=443&secret=ee00ff or https://t.me/proxy?server=mt.example.com&port=8443&secret=dd11&tag=x`)
	require.Len(t, got, 2)
	assert.Equal(t, MTProxy{Host: "1.2.3.4", Port: 443, Secret: "ee00ff"}, got[0])
	assert.Equal(t, Parameters{"tag": "x"}, got[1].Parameters)
	assert.Equal(t, "tg://proxy?port=8443&secret=dd11&server=mt.example.com&tag=x", got[1].URI())

	cands := MTProxyCodec.Candidates("tg://proxy?server=1.2.3.4&port=443")
	require.Len(t, cands, 1)
	assert.ErrorContains(t, cands[0].Err, "missing secret")
}

func TestScrapeAllCodecOrder(t *testing.T) {
	text := "ss://Zm9vOmJhcg==@h:1#a\nvless://" + testUUID + "@h:2?a=b#c\nhy2://x@h:3?a=b#c"
	got := ScrapeAll(text)
	require.Len(t, got, 3)
	assert.Equal(t, "vless", got[0].Protocol())
	assert.Equal(t, "hysteria", got[1].Protocol())
	assert.Equal(t, "shadowsocks", got[2].Protocol())
}

func TestScrapeProtocol(t *testing.T) {
	got, err := ScrapeProtocol("tuic", "tuic://t@h:1?a=b#c trojan://t@h:1?a=b#c")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tuic", got[0].Protocol())

	_, err = ScrapeProtocol("wireguard", "")
	assert.Error(t, err)

	assert.Equal(t, []string{"vless", "trojan", "hysteria", "tuic", "shadowsocks", "vmess", "mtproxy"}, Protocols())
}

func TestParse(t *testing.T) {
	p, err := Parse("trojan://pw@h:1?a=b#c")
	require.NoError(t, err)
	assert.Equal(t, "trojan", p.Protocol())

	_, err = Parse("just words")
	assert.ErrorIs(t, err, ErrNoProxy)

	_, err = Parse("ss://YWJj@h:1")
	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)
}

func TestRoundTrip(t *testing.T) {
	text := "vless://" + testUUID + "@example.com:443?security=reality&sni=a.b&fp=chrome#n\n" +
		"trojan://pw@t.example:443?type=grpc&serviceName=svc#n\n" +
		"hysteria2://auth@h2.example:8443?obfs=salamander&obfs-password=x#n\n" +
		"hysteria://auth@h1.example:8443?upmbps=10#n\n" +
		"tuic://tok@tu.example:443?alpn=h3#n\n" +
		"ss://YWVzLTI1Ni1nY206cGFzczEyMw==@1.2.3.4:8388#n\n" +
		vmessLink(t, map[string]any{"add": "vm.example", "port": 443, "id": testUUID, "net": "tcp"}) + "\n" +
		"tg://proxy?server=mt.example&port=443&secret=ee00&tag=abc\n"

	all := ScrapeAll(text)
	require.Len(t, all, 8)
	for _, p := range all {
		again, err := ScrapeProtocol(p.Protocol(), p.URI())
		require.NoError(t, err)
		require.Len(t, again, 1, p.URI())
		assert.Equal(t, p, again[0], p.URI())
	}
}

func TestJSONFlattening(t *testing.T) {
	v := VLess{
		Host:       "h",
		Port:       443,
		ID:         testUUID,
		Parameters: Parameters{"security": "tls", "host": "cdn.example.com", "_x": "y"},
	}
	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"host":"h","port":443,"id":"`+testUUID+`","security":"tls","_host":"cdn.example.com","__x":"y"}`, string(b))

	var back VLess
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, v, back)

	h := Hysteria{Version: 2, Host: "h", Port: 1, Auth: "a"}
	b, err = json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2,"host":"h","port":1,"auth":"a"}`, string(b))

	ss := Shadowsocks{Host: "h", Port: 1, Password: "p", Method: "m"}
	b, err = json.Marshal(ss)
	require.NoError(t, err)
	assert.JSONEq(t, `{"host":"h","port":1,"password":"p","method":"m"}`, string(b))

	var bad MTProxy
	assert.Error(t, json.Unmarshal([]byte(`{"host":"h","extra":1}`), &bad))
}

func FuzzScrapeAll(f *testing.F) {
	f.Add("vless://" + testUUID + "@h:1?a=b#c")
	f.Add("ss://YWVzLTI1Ni1nY206cGFzczEyMw==@1.2.3.4:8388#tag")
	f.Add("tg://proxy?server=h&port=1&secret=ee")
	f.Add("<a href=\"trojan://p@h:1?x=1&amp;amp;y=2#z\">")
	f.Fuzz(func(t *testing.T, text string) {
		for _, p := range ScrapeAll(text) {
			assert.Contains(t, Protocols(), p.Protocol())
			assert.NotEmpty(t, p.URI())
		}
	})
}
