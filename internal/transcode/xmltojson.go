package transcode

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// tag classification driving the finite-state emitter. Comma placement
// depends only on the kind of the previously emitted tag.
type tagKind int

const (
	kindNone tagKind = iota
	kindOpening
	kindClosing
	kindData
)

// XMLToJSON converts an XML fragment to indented JSON in a single
// left-to-right pass over the document. Each tag occurrence is classified as
// opening (has children), closing, or data (leaf with text); self-closing
// elements become null and explicitly-empty elements become "". The first
// depth wrapper levels are dropped from the output.
func (t *Transcoder) XMLToJSON(src string, depth int) (string, error) {
	if err := validateXML(src); err != nil {
		return "", err
	}

	scanner := &xmlScanner{src: src}
	emitter := &jsonEmitter{transcoder: t, skipLevels: depth}
	emitter.begin()

	var pending *xmlToken
	var pendingText strings.Builder
	for {
		tok, ok, err := scanner.next()
		if err != nil {
			return "", InvalidXMLError{Err: err}
		}
		if !ok {
			break
		}
		switch tok.kind {
		case tokStart:
			if pending != nil {
				emitter.open(pending.name)
				pending = nil
			}
			start := tok
			pending = &start
			pendingText.Reset()
		case tokSelfClose:
			if pending != nil {
				emitter.open(pending.name)
				pending = nil
			}
			emitter.null(tok.name)
		case tokEnd:
			if pending != nil {
				if pendingText.Len() == 0 {
					emitter.empty(pending.name)
				} else {
					emitter.data(pending.name, decodeEntities(pendingText.String()))
				}
				pending = nil
			} else {
				emitter.close()
			}
		case tokText:
			if pending != nil {
				pendingText.WriteString(tok.text)
			}
		}
	}
	return emitter.end(), nil
}

// validateXML checks well-formedness up front and rejects elements mixing
// child elements and non-whitespace text, so the emitter never has to guess
// which side to keep.
func validateXML(src string) error {
	decoder := xml.NewDecoder(strings.NewReader(src))
	type frame struct {
		name              string
		hasChild, hasText bool
	}
	var stack []frame
	seenRoot := false
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return InvalidXMLError{Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) > 0 {
				stack[len(stack)-1].hasChild = true
			}
			seenRoot = true
			stack = append(stack, frame{name: t.Name.Local})
		case xml.EndElement:
			top := stack[len(stack)-1]
			if top.hasChild && top.hasText {
				return InvalidXMLError{Err: fmt.Errorf("element %q mixes child elements and text", top.name)}
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 && len(bytes.TrimSpace(t)) > 0 {
				stack[len(stack)-1].hasText = true
			}
		}
	}
	if !seenRoot {
		return InvalidXMLError{Err: errors.New("document has no root element")}
	}
	return nil
}

// jsonEmitter writes indented JSON incrementally. It tracks only the kind of
// the previous tag and the current nesting.
type jsonEmitter struct {
	transcoder *Transcoder
	skipLevels int

	out     strings.Builder
	indent  int
	prev    tagKind
	skipped []bool
}

func (e *jsonEmitter) begin() {
	e.out.WriteString("{")
	e.indent = 1
}

func (e *jsonEmitter) end() string {
	e.out.WriteString("\n}")
	return e.out.String()
}

func (e *jsonEmitter) open(name string) {
	skip := len(e.skipped) < e.skipLevels
	e.skipped = append(e.skipped, skip)
	if skip {
		return
	}
	e.entry(name)
	e.out.WriteString("{")
	e.indent++
	e.prev = kindOpening
}

func (e *jsonEmitter) close() {
	skip := e.skipped[len(e.skipped)-1]
	e.skipped = e.skipped[:len(e.skipped)-1]
	if skip {
		return
	}
	e.indent--
	e.out.WriteString("\n")
	e.pad()
	e.out.WriteString("}")
	e.prev = kindClosing
}

func (e *jsonEmitter) data(name, text string) {
	e.entry(name)
	switch {
	case text == "true" || text == "false":
		e.out.WriteString(text)
	case e.transcoder.isKnownNumber(name):
		e.out.WriteString(text)
	default:
		e.out.WriteString(quoteJSON(text))
	}
	e.prev = kindData
}

func (e *jsonEmitter) null(name string) {
	e.entry(name)
	e.out.WriteString("null")
	e.prev = kindData
}

func (e *jsonEmitter) empty(name string) {
	e.entry(name)
	e.out.WriteString(`""`)
	e.prev = kindData
}

// entry writes the separator demanded by the previous tag kind, then the
// property name. A comma is needed after any closing or data tag that
// precedes another sibling.
func (e *jsonEmitter) entry(name string) {
	if e.prev == kindClosing || e.prev == kindData {
		e.out.WriteString(",")
	}
	e.out.WriteString("\n")
	e.pad()
	e.out.WriteString(quoteJSON(camelCase(name)))
	e.out.WriteString(": ")
}

func (e *jsonEmitter) pad() {
	for i := 0; i < e.indent; i++ {
		e.out.WriteString("  ")
	}
}

func quoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

var entityDecoder = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

func decodeEntities(s string) string {
	return entityDecoder.Replace(s)
}
