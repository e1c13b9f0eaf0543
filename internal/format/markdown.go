package format

import (
	"bytes"
	"regexp"

	"github.com/roach88/multiio/internal/value"
)

// MarkdownName is the custom format name of the bundled Markdown codec.
const MarkdownName = "markdown"

var markdownFence = regexp.MustCompile("(?ms)^```(json|ya?ml)[ \\t]*\\r?\\n(.*?)^```[ \\t]*\\r?$")

// Markdown returns a custom codec for Markdown documents that carry data in
// a fenced code block. Decode reads the first ```json or ```yaml block and
// falls back to the whole document as a String. Encode writes the value as
// pretty JSON inside a ```json fence.
//
// It is not part of NewDefault; register it with RegisterCustom.
func Markdown() *CustomCodec {
	return NewCustom(MarkdownName, []string{"md", "markdown"}, markdownStrategy{})
}

type markdownStrategy struct{}

func (markdownStrategy) Decode(data []byte) (value.Value, error) {
	m := markdownFence.FindSubmatch(data)
	if m == nil {
		return value.String(data), nil
	}
	body := m[2]
	if bytes.Equal(m[1], []byte("json")) {
		return jsonCodec{}.Decode(body)
	}
	return yamlCodec{}.Decode(body)
}

func (markdownStrategy) Encode(v value.Value) ([]byte, error) {
	body, err := jsonCodec{}.Encode(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("```json\n")
	buf.Write(body)
	buf.WriteString("```\n")
	return buf.Bytes(), nil
}
