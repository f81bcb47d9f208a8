package scraper

import (
	"regexp"
	"strings"
)

// regexLink is deliberately loose: anything shaped like a URI survives and
// the per-protocol grammars decide what is real.
var regexLink = regexp.MustCompile(`(?:\b(?:https|ss|vmess|vless|trojan|tuic|hysteria2|hy2|hysteria|tg))?://[^\s<>"']+[^.,;!?)"'\s<>]`)

// linkFixer undoes the double HTML-entity encoding and the escaped '=' that
// show up in scraped markup.
var linkFixer = strings.NewReplacer("&amp;amp;", "&", "%3D", "=")

// Isolate reduces arbitrary text to the URI-shaped tokens it contains, one per
// line. It never fails; text without links yields an empty string.
func Isolate(text string) string {
	var links strings.Builder
	for _, match := range regexLink.FindAllString(text, -1) {
		links.WriteString(linkFixer.Replace(match))
		links.WriteByte('\n')
	}
	return links.String()
}
