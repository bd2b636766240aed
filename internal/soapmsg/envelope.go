// Package soapmsg parses, inspects, and builds the partner-specific SOAP
// dialects spoken by the legacy customs ecosystem. Extraction is namespace
// prefix independent: partners bind arbitrary prefixes at arbitrary levels,
// so all lookup matches on local element names only.
package soapmsg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// InvalidSoapError marks SOAP payloads that cannot be parsed as XML.
type InvalidSoapError struct{ Err error }

func (e InvalidSoapError) Error() string { return fmt.Sprintf("invalid soap: %v", e.Err) }
func (e InvalidSoapError) Unwrap() error { return e.Err }

type node struct {
	local    string
	start    int64
	end      int64
	text     string
	children []*node
}

// Envelope is a parsed SOAP document. Parsing validates well-formedness up
// front; a constructed Envelope never fails on lookup.
type Envelope struct {
	raw  string
	root *node
}

// Parse reads a SOAP document and indexes its element tree. Malformed XML,
// including disallowed character references such as a bare ampersand, is
// reported as InvalidSoapError.
func Parse(soap string) (*Envelope, error) {
	decoder := xml.NewDecoder(strings.NewReader(soap))
	var root *node
	var stack []*node
	offset := decoder.InputOffset()
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, InvalidSoapError{Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{local: t.Name.Local, start: offset}
			if len(stack) == 0 {
				if root != nil {
					return nil, InvalidSoapError{Err: errors.New("multiple document elements")}
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.end = decoder.InputOffset()
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
		offset = decoder.InputOffset()
	}
	if root == nil {
		return nil, InvalidSoapError{Err: errors.New("document has no root element")}
	}
	if len(stack) != 0 {
		return nil, InvalidSoapError{Err: errors.New("unterminated element")}
	}
	return &Envelope{raw: soap, root: root}, nil
}

// HasMessage reports whether an element exists at the slash-separated path
// directly under the SOAP Body.
func (e *Envelope) HasMessage(path string) bool {
	return e.locate(path) != nil
}

// GetMessage returns the full serialized element at the slash-separated path
// directly under the SOAP Body, including any namespace declarations the
// element itself carries. The second return value is false when the path does
// not resolve.
func (e *Envelope) GetMessage(path string) (string, bool) {
	n := e.locate(path)
	if n == nil {
		return "", false
	}
	return e.raw[n.start:n.end], true
}

// GetProperty finds the first element anywhere in the document whose local
// name matches and returns its inner text, trimmed. The second return value
// is false when no such element exists.
func (e *Envelope) GetProperty(name string) (string, bool) {
	n := findByLocal(e.root, name)
	if n == nil {
		return "", false
	}
	var sb strings.Builder
	innerText(n, &sb)
	return strings.TrimSpace(sb.String()), true
}

func (e *Envelope) locate(path string) *node {
	body := e.body()
	if body == nil {
		return nil
	}
	current := body
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment == "" {
			return nil
		}
		current = childByLocal(current, segment)
		if current == nil {
			return nil
		}
	}
	return current
}

func (e *Envelope) body() *node {
	return childByLocal(e.root, "Body")
}

func childByLocal(n *node, local string) *node {
	for _, child := range n.children {
		if strings.EqualFold(child.local, local) {
			return child
		}
	}
	return nil
}

func findByLocal(n *node, local string) *node {
	if strings.EqualFold(n.local, local) {
		return n
	}
	for _, child := range n.children {
		if found := findByLocal(child, local); found != nil {
			return found
		}
	}
	return nil
}

func innerText(n *node, sb *strings.Builder) {
	sb.WriteString(n.text)
	for _, child := range n.children {
		innerText(child, sb)
	}
}
