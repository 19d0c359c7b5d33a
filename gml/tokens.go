package gml

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// tokenStream wraps an xml.Decoder with one token of pushback. Comments,
// processing instructions and directives are dropped; returned tokens are
// copies that stay valid across calls.
type tokenStream struct {
	dec    *xml.Decoder
	pushed xml.Token
}

func newTokenStream(r io.Reader) *tokenStream {
	return &tokenStream{dec: xml.NewDecoder(r)}
}

func (s *tokenStream) next() (xml.Token, error) {
	if s.pushed != nil {
		tok := s.pushed
		s.pushed = nil
		return tok, nil
	}
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		switch tok.(type) {
		case xml.Comment, xml.ProcInst, xml.Directive:
			continue
		}
		return xml.CopyToken(tok), nil
	}
}

func (s *tokenStream) unread(tok xml.Token) {
	s.pushed = tok
}

// nextTag returns the next start or end element. Whitespace is skipped;
// other character data is returned as is for the caller to reject.
func (s *tokenStream) nextTag() (xml.Token, error) {
	for {
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		if cd, ok := tok.(xml.CharData); ok && isSpace(cd) {
			continue
		}
		return tok, nil
	}
}

// peekContent returns the first significant token inside the current
// element without consuming it: a child start element, non-whitespace
// character data, or the element's end.
func (s *tokenStream) peekContent() (xml.Token, error) {
	tok, err := s.nextTag()
	if err != nil {
		return nil, err
	}
	s.unread(tok)
	return tok, nil
}

// text collects the character content of the current element up to its
// end tag. If a child element turns up instead, it is returned and the
// stream is left after that child's start tag.
func (s *tokenStream) text() (string, *xml.StartElement, error) {
	var sb strings.Builder
	for {
		tok, err := s.next()
		if err != nil {
			return "", nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			return "", &t, nil
		case xml.EndElement:
			return sb.String(), nil, nil
		}
	}
}

// skip consumes tokens up to the end of the current element.
func (s *tokenStream) skip() error {
	depth := 1
	for {
		tok, err := s.next()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
}

func (s *tokenStream) pos() (line, column int) {
	return s.dec.InputPos()
}

func isSpace(b []byte) bool {
	return len(bytes.TrimSpace(b)) == 0
}

func attr(start xml.StartElement, space, local string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Local == local && a.Name.Space == space {
			return a.Value, true
		}
	}
	return "", false
}

func href(start xml.StartElement) (string, bool) {
	return attr(start, NamespaceXLink, "href")
}

func isNil(start xml.StartElement) bool {
	v, _ := attr(start, NamespaceXSI, "nil")
	v = strings.TrimSpace(v)
	return v == "true" || v == "1"
}

// attrs copies the attributes of start, leaving out namespace
// declarations.
func attrs(start xml.StartElement) map[xml.Name]string {
	var m map[xml.Name]string
	for _, a := range start.Attr {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		if m == nil {
			m = make(map[xml.Name]string)
		}
		m[a.Name] = a.Value
	}
	return m
}
