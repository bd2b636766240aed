package transcode

import (
	"errors"
	"fmt"
	"strings"
)

type xmlTokenKind int

const (
	tokStart xmlTokenKind = iota
	tokEnd
	tokSelfClose
	tokText
)

type xmlToken struct {
	kind xmlTokenKind
	name string
	text string
}

// xmlScanner is a cursor over an XML fragment, yielding start, end,
// self-close, and text tokens in document order. Prologs, comments, and
// doctype declarations are skipped; attributes are consumed but not
// reported. Input is validated for well-formedness before scanning, so the
// scanner only guards against truncation.
type xmlScanner struct {
	src string
	pos int
}

func (s *xmlScanner) next() (xmlToken, bool, error) {
	if s.pos >= len(s.src) {
		return xmlToken{}, false, nil
	}
	if s.src[s.pos] != '<' {
		start := s.pos
		end := strings.IndexByte(s.src[start:], '<')
		if end < 0 {
			s.pos = len(s.src)
		} else {
			s.pos = start + end
		}
		return xmlToken{kind: tokText, text: s.src[start:s.pos]}, true, nil
	}

	rest := s.src[s.pos:]
	switch {
	case strings.HasPrefix(rest, "<?"):
		if err := s.skipPast("?>"); err != nil {
			return xmlToken{}, false, err
		}
		return s.next()
	case strings.HasPrefix(rest, "<!--"):
		if err := s.skipPast("-->"); err != nil {
			return xmlToken{}, false, err
		}
		return s.next()
	case strings.HasPrefix(rest, "<![CDATA["):
		end := strings.Index(rest, "]]>")
		if end < 0 {
			return xmlToken{}, false, errors.New("unterminated CDATA section")
		}
		text := rest[len("<![CDATA["):end]
		s.pos += end + len("]]>")
		return xmlToken{kind: tokText, text: text}, true, nil
	case strings.HasPrefix(rest, "<!"):
		if err := s.skipPast(">"); err != nil {
			return xmlToken{}, false, err
		}
		return s.next()
	case strings.HasPrefix(rest, "</"):
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return xmlToken{}, false, errors.New("unterminated end tag")
		}
		name := strings.TrimSpace(rest[2:end])
		s.pos += end + 1
		return xmlToken{kind: tokEnd, name: localName(name)}, true, nil
	default:
		return s.startTag()
	}
}

func (s *xmlScanner) startTag() (xmlToken, bool, error) {
	rest := s.src[s.pos:]
	nameEnd := 1
	for nameEnd < len(rest) && !isTagDelim(rest[nameEnd]) {
		nameEnd++
	}
	name := rest[1:nameEnd]
	if name == "" {
		return xmlToken{}, false, fmt.Errorf("empty tag name at offset %d", s.pos)
	}

	// Walk to the closing '>' respecting quoted attribute values.
	i := nameEnd
	var quote byte
	for i < len(rest) {
		c := rest[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			selfClosing := i > 0 && rest[i-1] == '/'
			s.pos += i + 1
			kind := tokStart
			if selfClosing {
				kind = tokSelfClose
			}
			return xmlToken{kind: kind, name: localName(name)}, true, nil
		}
		i++
	}
	return xmlToken{}, false, fmt.Errorf("unterminated start tag %q", name)
}

func (s *xmlScanner) skipPast(marker string) error {
	idx := strings.Index(s.src[s.pos:], marker)
	if idx < 0 {
		return fmt.Errorf("unterminated %q construct", marker)
	}
	s.pos += idx + len(marker)
	return nil
}

func isTagDelim(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '/' || c == '>'
}

func localName(name string) string {
	if idx := strings.IndexByte(name, ':'); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
