package transcode

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// jsonObject preserves property order, which encoding/json maps discard and
// downstream XML consumers depend on.
type jsonObject struct {
	fields []jsonField
}

type jsonField struct {
	name  string
	value any
}

// JSONToXML converts a JSON document to an XML fragment rooted at rootName.
// Object properties become title-cased child elements. Arrays unroll to
// sibling elements named by the configured singular form of the property
// name; unmapped arrays fall back to a generic Item wrapper per entry.
func (t *Transcoder) JSONToXML(src, rootName string) (string, error) {
	value, err := parseJSON(src)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	t.writeElement(&sb, rootName, value)
	return sb.String(), nil
}

func parseJSON(src string) (any, error) {
	decoder := json.NewDecoder(strings.NewReader(src))
	decoder.UseNumber()
	value, err := parseValue(decoder)
	if err != nil {
		return nil, InvalidJSONError{Err: err}
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, InvalidJSONError{Err: errors.New("trailing content after document")}
	}
	return value, nil
}

func parseValue(decoder *json.Decoder) (any, error) {
	tok, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(decoder)
		case '[':
			return parseArray(decoder)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	default:
		// string, json.Number, bool, or nil
		return tok, nil
	}
}

func parseObject(decoder *json.Decoder) (*jsonObject, error) {
	obj := &jsonObject{}
	for decoder.More() {
		keyTok, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T, not string", keyTok)
		}
		value, err := parseValue(decoder)
		if err != nil {
			return nil, err
		}
		obj.fields = append(obj.fields, jsonField{name: key, value: value})
	}
	if _, err := decoder.Token(); err != nil { // consume '}'
		return nil, err
	}
	return obj, nil
}

func parseArray(decoder *json.Decoder) ([]any, error) {
	items := []any{}
	for decoder.More() {
		value, err := parseValue(decoder)
		if err != nil {
			return nil, err
		}
		items = append(items, value)
	}
	if _, err := decoder.Token(); err != nil { // consume ']'
		return nil, err
	}
	return items, nil
}

func (t *Transcoder) writeElement(sb *strings.Builder, name string, value any) {
	switch v := value.(type) {
	case *jsonObject:
		fmt.Fprintf(sb, "<%s>", name)
		for _, field := range v.fields {
			t.writeField(sb, field)
		}
		fmt.Fprintf(sb, "</%s>", name)
	default:
		fmt.Fprintf(sb, "<%s>", name)
		writeScalar(sb, v)
		fmt.Fprintf(sb, "</%s>", name)
	}
}

func (t *Transcoder) writeField(sb *strings.Builder, field jsonField) {
	elementName := titleCase(field.name)
	if items, ok := field.value.([]any); ok {
		itemName, mapped := t.singularFor(field.name)
		if !mapped {
			itemName = "Item"
		}
		for _, item := range items {
			t.writeElement(sb, itemName, item)
		}
		return
	}
	t.writeElement(sb, elementName, field.value)
}

// writeScalar is the inverse of the XML-to-JSON scalar rules: numbers print
// their raw textual form, booleans print True/False, null prints the literal
// text null.
func writeScalar(sb *strings.Builder, value any) {
	switch v := value.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		if v {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case json.Number:
		sb.WriteString(v.String())
	case string:
		_ = xml.EscapeText(sb, []byte(v))
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}
