package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Format is the encoding of exported manifest and chunk files.
type Format string

const (
	FormatJSON Format = "json"
	// FormatScript wraps the JSON payload in a `window.NAME = ...;` assignment, the layout of older exports.
	FormatScript Format = "js"
)

// ParseFormat accepts the file extensions "json" and "js".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatScript:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format %q, must be one of json, js", s)
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

func identifier(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return '_'
		}
		return unicode.ToUpper(r)
	}, s)
}

// MetadataVariable is the global a legacy metadata script assigns, e.g. PWA_METADATA_11 for class 11th.
func MetadataVariable(classID string) string {
	return "PWA_METADATA_" + identifier(strings.Replace(classID, "th", "", 1))
}

// ChunkVariable is the global a legacy chunk script assigns, e.g. PWA_CHUNK_QUIZ_PHY_1 for quiz_phy-1.
func ChunkVariable(chunkName string) string {
	return "PWA_CHUNK_" + identifier(chunkName)
}

// EncodeScript renders v as a legacy script assigning it to window.<variable>.
func EncodeScript(variable, title string, generated time.Time, v any) ([]byte, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json.MarshalIndent() > %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// QuizMaster PWA Data - %s\n", title)
	fmt.Fprintf(&buf, "// Generated: %s\n\n", generated.UTC().Format(time.RFC3339))
	fmt.Fprintf(&buf, "window.%s = ", variable)
	buf.Write(payload)
	buf.WriteString(";\n")
	return buf.Bytes(), nil
}

// DecodeScript reads the value assigned by the first `window.NAME = ...` statement of a legacy script.
func DecodeScript(body []byte, v any) error {
	start := bytes.Index(body, []byte("window."))
	if start < 0 {
		return fmt.Errorf("no window assignment found")
	}
	eq := bytes.IndexByte(body[start:], '=')
	if eq < 0 {
		return fmt.Errorf("no window assignment found")
	}

	decoder := json.NewDecoder(bytes.NewReader(body[start+eq+1:]))
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decoder.Decode() > %w", err)
	}
	return nil
}

// Decode reads a JSON document or, when body is a legacy script, the object it assigns.
func Decode(body []byte, v any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := json.Unmarshal(trimmed, v); err != nil {
			return fmt.Errorf("json.Unmarshal() > %w", err)
		}
		return nil
	}
	return DecodeScript(body, v)
}
