package scraper

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// VMess describes a VMess server shared in the v2rayN format, a base64 JSON
// object. Everything besides add, port and id is kept in Parameters.
type VMess struct {
	Host       string
	Port       uint16
	ID         string
	Parameters Parameters
}

var VMessCodec = &Codec[VMess]{
	protocol: "vmess",
	grammar: newGrammar(
		`\bvmess://(?P<cred>`+base64Pattern+`)`,
		"cred",
	),
	build: buildVMess,
}

func buildVMess(m match) (VMess, error) {
	payload, err := decodeBase64Text(m.cred)
	if err != nil {
		return VMess{}, err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return VMess{}, fmt.Errorf("invalid share object: %w", err)
	}
	if obj == nil {
		return VMess{}, errors.New("share object is null")
	}

	v := VMess{
		Host: stringify(obj["add"]),
		Port: parsePort(stringify(obj["port"])),
		ID:   stringify(obj["id"]),
	}
	if v.Host == "" {
		return VMess{}, errors.New("share object has no address")
	}
	if err := v.Validate(); err != nil {
		return VMess{}, err
	}

	for k, val := range obj {
		switch k {
		case "add", "port", "id":
			continue
		}
		if v.Parameters == nil {
			v.Parameters = make(Parameters)
		}
		v.Parameters[k] = stringify(val)
	}
	return v, nil
}

// stringify flattens a decoded JSON value into its parameter form.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// ScrapeVMess returns every VMess descriptor found in source.
func ScrapeVMess(source string) []VMess {
	return VMessCodec.Scrape(source)
}

func (v VMess) Protocol() string { return "vmess" }

func (v VMess) URI() string {
	obj, err := mergeShare(map[string]any{
		"add":  v.Host,
		"port": v.Port,
		"id":   v.ID,
	}, v.Parameters)
	if err != nil {
		return ""
	}
	return "vmess://" + base64.StdEncoding.EncodeToString(obj)
}

// Validate checks that ID is a well-formed UUID.
func (v VMess) Validate() error {
	if err := uuid.Validate(v.ID); err != nil {
		return fmt.Errorf("vmess id: %w", err)
	}
	return nil
}

func (v VMess) MarshalJSON() ([]byte, error) {
	return marshalFlat(map[string]any{
		"host": v.Host,
		"port": v.Port,
		"id":   v.ID,
	}, v.Parameters)
}

func (v *VMess) UnmarshalJSON(data []byte) error {
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
