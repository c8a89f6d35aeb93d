package stream

import (
	"encoding/json"
	"strings"
)

// Delimiters wrapping an inline JSON payload inside model output. They are
// chosen to never occur in ordinary prose.
const (
	openDelim  = "%%["
	closeDelim = "]%%"
)

type state int

const (
	stateScanning state = iota
	stateBuffering
)

// Parser splits a token stream into displayable content and inline payloads.
// Delimiters may arrive split across arbitrary fragment boundaries; the
// parser holds back the shortest possible tail to stay correct, so output
// for a given stream is identical regardless of how it was fragmented.
type Parser struct {
	state   state
	buf     string
	payload strings.Builder
}

func NewParser() *Parser {
	return &Parser{}
}

// Feed consumes one fragment and returns the content safe to emit now plus
// any payloads completed within this fragment.
func (p *Parser) Feed(fragment string) (string, []string) {
	data := p.buf + fragment
	p.buf = ""

	var out strings.Builder
	var payloads []string

	for len(data) > 0 {
		switch p.state {
		case stateScanning:
			if i := strings.Index(data, openDelim); i >= 0 {
				out.WriteString(data[:i])
				data = data[i+len(openDelim):]
				p.state = stateBuffering
				continue
			}
			keep := partialSuffix(data, openDelim)
			out.WriteString(data[:len(data)-keep])
			p.buf = data[len(data)-keep:]
			data = ""

		case stateBuffering:
			if i := strings.Index(data, closeDelim); i >= 0 {
				p.payload.WriteString(data[:i])
				payloads = append(payloads, p.payload.String())
				p.payload.Reset()
				data = data[i+len(closeDelim):]
				p.state = stateScanning
				continue
			}
			keep := partialSuffix(data, closeDelim)
			p.payload.WriteString(data[:len(data)-keep])
			p.buf = data[len(data)-keep:]
			data = ""
		}
	}

	return out.String(), payloads
}

// Flush drains whatever the parser held back once the stream ends. An
// unterminated payload is returned as plain content with its opening
// delimiter restored, so no model output is ever silently dropped.
func (p *Parser) Flush() string {
	var out strings.Builder
	if p.state == stateBuffering {
		out.WriteString(openDelim)
		out.WriteString(p.payload.String())
		p.payload.Reset()
		p.state = stateScanning
	}
	out.WriteString(p.buf)
	p.buf = ""
	return out.String()
}

// partialSuffix returns the length of the longest proper prefix of delim
// that data ends with.
func partialSuffix(data, delim string) int {
	max := len(delim) - 1
	if max > len(data) {
		max = len(data)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(data, delim[:n]) {
			return n
		}
	}
	return 0
}

// DecodeTags parses a payload as a JSON array of document tags.
func DecodeTags(payload string) ([]string, error) {
	var tags []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
