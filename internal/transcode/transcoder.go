package transcode

import (
	"fmt"
	"strings"

	"github.com/borderhub/btms-gateway/internal/soapmsg"
)

// Options configure the schema-less heuristics.
type Options struct {
	// KnownArrays maps plural JSON property names to the singular element
	// name each array entry takes in XML.
	KnownArrays map[string]string
	// KnownNumbers lists field names whose values are emitted as numeric
	// JSON literals. Matching is case-insensitive.
	KnownNumbers []string
}

// Transcoder converts XML fragments to JSON and back. It is immutable and
// safe for concurrent use.
type Transcoder struct {
	arrays  map[string]string
	numbers map[string]struct{}
}

// New builds a Transcoder from the given options.
func New(opts Options) *Transcoder {
	t := &Transcoder{
		arrays:  make(map[string]string, len(opts.KnownArrays)),
		numbers: make(map[string]struct{}, len(opts.KnownNumbers)),
	}
	for plural, singular := range opts.KnownArrays {
		t.arrays[strings.ToLower(plural)] = singular
	}
	for _, name := range opts.KnownNumbers {
		t.numbers[strings.ToLower(name)] = struct{}{}
	}
	return t
}

// SoapToJSON extracts the sub-message at path from a SOAP document and
// transcodes it to JSON, dropping depth wrapper levels so equivalent messages
// at different dialect nesting depths land on the same JSON shape.
func (t *Transcoder) SoapToJSON(soap, path string, depth int) (string, error) {
	env, err := soapmsg.Parse(soap)
	if err != nil {
		return "", err
	}
	message, ok := env.GetMessage(path)
	if !ok {
		return "", fmt.Errorf("sub-message %q not found under soap body", path)
	}
	return t.XMLToJSON(message, depth)
}

func (t *Transcoder) isKnownNumber(name string) bool {
	_, ok := t.numbers[strings.ToLower(name)]
	return ok
}

func (t *Transcoder) singularFor(name string) (string, bool) {
	singular, ok := t.arrays[strings.ToLower(name)]
	return singular, ok
}

// camelCase lowers the first rune of an element name for JSON emission;
// titleCase is its inverse.
func camelCase(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func titleCase(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
