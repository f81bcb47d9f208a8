package scraper

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// unreservedPattern is the RFC 3986 unreserved class used for passwords and
// auth tokens.
const unreservedPattern = `[A-Za-z0-9\-._~]+`

const uuidPattern = `[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}`

// base64Pattern accepts both alphabets; padding is optional.
const base64Pattern = `[A-Za-z0-9+/_-]*={0,2}`

// parsePort returns 0 for anything that is not a valid 16-bit port.
func parsePort(s string) uint16 {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(port)
}

// parseQuery decodes a URL-form query. Pairs are split on '&' only, so a ';'
// inside a value (path=/ws;ed=2048) is kept. Repeated keys keep their last
// value.
func parseQuery(raw string) (Parameters, error) {
	params := make(Parameters)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("invalid query: %w", err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("invalid query: %w", err)
		}
		params[key] = value
	}
	return params, nil
}

// requireQuery is parseQuery for grammars whose query section is mandatory:
// a query that decodes to nothing is treated like an empty capture.
func requireQuery(raw string) (Parameters, error) {
	params, err := parseQuery(raw)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return nil, errSkip
	}
	return params, nil
}

var base64Alphabet = strings.NewReplacer("+", "-", "/", "_")

// decodeBase64Text decodes a blob in either base64 alphabet and insists on
// UTF-8 output. Unpadded blobs are accepted; a padded blob must carry the
// exact padding its length calls for.
func decodeBase64Text(blob string) (string, error) {
	normalized := base64Alphabet.Replace(blob)
	enc := base64.RawURLEncoding
	if strings.HasSuffix(normalized, "=") {
		enc = base64.URLEncoding
	}
	b, err := enc.DecodeString(normalized)
	if err != nil {
		return "", fmt.Errorf("invalid base64: %w", err)
	}
	if !utf8.Valid(b) {
		return "", errors.New("decoded payload is not valid utf-8")
	}
	return string(b), nil
}

// formatURI renders the shared scheme://cred@host:port?query# template. The
// trailing '#' is the fragment marker the query-bearing grammars require.
func formatURI(scheme, cred, host string, port uint16, params Parameters) string {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(cred)
	b.WriteByte('@')
	b.WriteString(host)
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(uint64(port), 10))
	if len(params) > 0 {
		b.WriteByte('?')
		b.WriteString(params.Encode())
	}
	b.WriteByte('#')
	return b.String()
}

// paramPrefix marks a parameter key that would otherwise collide with a named
// field (a ws link's host=cdn.example.com next to the server host).
const paramPrefix = "_"

// flatKey is the JSON key a parameter is written under. Keys that collide
// with a named field, or already start with the prefix, get one more prefix
// so flatParam can undo it.
func flatKey(key string, fields map[string]any) string {
	if _, ok := fields[key]; ok || strings.HasPrefix(key, paramPrefix) {
		return paramPrefix + key
	}
	return key
}

func flatParam(key string) string {
	return strings.TrimPrefix(key, paramPrefix)
}

// marshalFlat writes named fields and parameters as one JSON object. A
// parameter sharing a named field's key is written as "_key".
func marshalFlat(fields map[string]any, params Parameters) ([]byte, error) {
	out := make(map[string]any, len(fields)+len(params))
	for k, v := range params {
		out[flatKey(k, fields)] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// mergeShare builds a share-link object (VMess) where parameters keep their
// own keys. Named fields win; decoding never leaves a parameter under a
// named key, so nothing is lost on a decoded descriptor.
func mergeShare(fields map[string]any, params Parameters) ([]byte, error) {
	out := make(map[string]any, len(fields)+len(params))
	for k, v := range params {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// unmarshalFlat is the inverse of marshalFlat: keys found in fields are
// decoded into the pointers they map to, every other key must hold a string
// and is collected into the returned parameters.
func unmarshalFlat(data []byte, fields map[string]any) (Parameters, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var params Parameters
	for k, v := range raw {
		if dst, ok := fields[k]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		if params == nil {
			params = make(Parameters)
		}
		params[flatParam(k)] = s
	}
	return params, nil
}
