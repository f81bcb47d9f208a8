package collectors

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

var subscriptionEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// DecodeSubscription unwraps a subscription served as one base64 blob. It
// reports false when body already contains links or does not decode to text
// that does.
func DecodeSubscription(body string) (string, bool) {
	s := strings.TrimSpace(strings.TrimPrefix(body, "\ufeff"))
	if s == "" || strings.Contains(s, "://") {
		return "", false
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)

	for _, enc := range subscriptionEncodings {
		b, err := enc.DecodeString(s)
		if err != nil {
			continue
		}
		if !utf8.Valid(b) || !strings.Contains(string(b), "://") {
			return "", false
		}
		return string(b), true
	}
	return "", false
}
