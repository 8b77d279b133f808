package parttree

import (
	"encoding/base64"
	"strings"

	"github.com/jaytaylor/html2text"
)

// toURLAlphabet maps the standard base64 alphabet onto the URL-safe one and
// drops line breaks, so both encodings decode.
var toURLAlphabet = strings.NewReplacer("+", "-", "/", "_", "\r", "", "\n", "")

// decodeText decodes base64 data into text. The URL-safe and standard
// alphabets are both accepted and padding is optional. Invalid UTF-8 bytes
// are dropped.
func decodeText(data string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(toURLAlphabet.Replace(data), "="))
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(raw), ""), nil
}

// htmlToText renders markup as plain text. Links are kept inline,
// tables are flattened.
func htmlToText(markup string) string {
	text, err := html2text.FromString(markup, html2text.Options{OmitLinks: false})
	if err != nil {
		return ""
	}
	return text
}
