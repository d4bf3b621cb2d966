// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package response

import (
	"bytes"
	"strconv"

	"github.com/packetd/bucketpipe/pkg/bucket"
)

type phase int

const (
	phaseStatusLine phase = iota
	phaseHeaders
	phaseBody
	phaseDone
)

var charHTTP = []byte("HTTP/")

// Parser decodes an HTTP/1.1 response one phase at a time
// (status-line → headers → body → done) against a pull-driven
// bucket.Bucket source, tolerating would-block at any point.
type Parser struct {
	src bucket.Bucket
	lb  *LineBuffer

	phase       phase
	headRequest bool

	protoMajor, protoMinor int
	statusCode             int
	reason                 string

	headers *bucket.Headers
	body    bucket.Bucket

	framing       framingKind
	contentLength int

	rawStatusLine []byte
	rawHeaders    [][]byte

	latched error
}

// NewParser returns a parser reading from src.
func NewParser(src bucket.Bucket) *Parser {
	return &Parser{src: src, lb: NewLineBuffer(src), headers: bucket.NewHeaders()}
}

// SetHeadRequest tells the parser the request this response answers was
// a HEAD, so a body is never present regardless of Content-Length.
func (p *Parser) SetHeadRequest(v bool) { p.headRequest = v }

// advance drives the machine forward through target, returning
// bucket.WouldBlock if more bytes are needed to get there.
func (p *Parser) advance(target phase) (bucket.Status, error) {
	if p.latched != nil {
		return bucket.Err, p.latched
	}
	for p.phase < target && p.phase != phaseDone {
		status, err := p.step()
		if err != nil {
			p.latched = err
			return bucket.Err, err
		}
		if status == bucket.WouldBlock {
			return bucket.WouldBlock, nil
		}
	}
	return bucket.More, nil
}

func (p *Parser) step() (bucket.Status, error) {
	switch p.phase {
	case phaseStatusLine:
		return p.stepStatusLine()
	case phaseHeaders:
		return p.stepHeaders()
	default:
		return bucket.More, nil
	}
}

func (p *Parser) stepStatusLine() (bucket.Status, error) {
	view, ending, status, err := p.lb.Next()
	if err != nil {
		return bucket.Err, err
	}
	if ending == bucket.LineNone {
		if status == bucket.EOF {
			return bucket.Err, bucket.ErrParseError
		}
		return bucket.WouldBlock, nil
	}

	p.rawStatusLine = append([]byte(nil), view.B...)
	p.rawStatusLine = append(p.rawStatusLine, lineEndingBytes(ending)...)

	if perr := p.parseStatusLine(view.B); perr != nil {
		return bucket.Err, perr
	}
	p.phase = phaseHeaders
	return bucket.More, nil
}

// parseStatusLine parses "HTTP/<d>.<d> <ddd>[ <reason>]" (no trailing
// CRLF — the terminator was already stripped by the line buffer).
func (p *Parser) parseStatusLine(line []byte) error {
	if !bytes.HasPrefix(line, charHTTP) {
		return bucket.ErrParseError
	}
	rest := line[len(charHTTP):]

	dot := bytes.IndexByte(rest, '.')
	if dot < 1 {
		return bucket.ErrParseError
	}
	major, merr := strconv.Atoi(string(rest[:dot]))
	if merr != nil {
		return bucket.ErrParseError
	}
	rest = rest[dot+1:]

	sp := bytes.IndexByte(rest, ' ')
	var minorField []byte
	if sp < 0 {
		minorField = rest
		rest = nil
	} else {
		minorField = rest[:sp]
		rest = rest[sp+1:]
	}
	minor, nerr := strconv.Atoi(string(minorField))
	if nerr != nil {
		return bucket.ErrParseError
	}

	rest = bytes.TrimLeft(rest, " ")
	if len(rest) < 3 {
		return bucket.ErrParseError
	}
	code, cerr := strconv.Atoi(string(rest[:3]))
	if cerr != nil {
		return bucket.ErrParseError
	}

	reason := rest[3:]
	reason = bytes.TrimLeft(reason, " ")

	p.protoMajor, p.protoMinor = major, minor
	p.statusCode = code
	p.reason = string(append([]byte(nil), reason...))
	return nil
}

func (p *Parser) stepHeaders() (bucket.Status, error) {
	view, ending, status, err := p.lb.Next()
	if err != nil {
		return bucket.Err, err
	}
	if ending == bucket.LineNone {
		if status == bucket.EOF {
			return bucket.Err, bucket.ErrParseError
		}
		return bucket.WouldBlock, nil
	}

	raw := append([]byte(nil), view.B...)
	raw = append(raw, lineEndingBytes(ending)...)
	p.rawHeaders = append(p.rawHeaders, raw)

	if len(view.B) == 0 {
		return p.finishHeaders()
	}

	name, value, perr := splitHeaderLine(view.B)
	if perr != nil {
		return bucket.Err, perr
	}
	p.headers.Add(name, value)
	return bucket.More, nil
}

func (p *Parser) finishHeaders() (bucket.Status, error) {
	kind, n, ferr := decideFraming(p.headers)
	if ferr != nil {
		return bucket.Err, ferr
	}
	p.framing = kind
	p.contentLength = n

	if noBody(p.statusCode, p.headRequest) {
		p.body = bucket.NewSimpleBorrow(nil)
	} else {
		switch kind {
		case framingChunked:
			p.body = newChunkedBody(p.src)
		case framingContentLength:
			p.body = newContentLengthBody(p.src, n)
		default:
			p.body = newCloseDelimitedBody(p.src)
		}
	}

	p.phase = phaseBody
	return bucket.More, nil
}

// splitHeaderLine splits "Name: Value" on the first ':'. An empty value
// after the colon is distinguishable (returned as "") from a header
// that is entirely absent.
func splitHeaderLine(line []byte) (name, value string, err error) {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return "", "", bucket.ErrParseError
	}
	name = string(line[:idx])
	v := line[idx+1:]
	v = bytes.TrimLeft(v, " \t")
	return name, string(v), nil
}

func lineEndingBytes(e bucket.LineEnding) []byte {
	switch e {
	case bucket.LineCR:
		return []byte("\r")
	case bucket.LineLF:
		return []byte("\n")
	case bucket.LineCRLF:
		return []byte("\r\n")
	default:
		return nil
	}
}

// StatusCode advances the machine through the status line and returns
// it, blocking (via bucket.WouldBlock) only as long as bytes are needed.
func (p *Parser) StatusCode() (int, bucket.Status, error) {
	status, err := p.advance(phaseHeaders)
	if err != nil {
		return 0, bucket.Err, err
	}
	if p.phase < phaseHeaders {
		return 0, status, nil
	}
	return p.statusCode, bucket.More, nil
}

// Proto returns the parsed HTTP version once the status line is parsed.
func (p *Parser) Proto() (major, minor int) { return p.protoMajor, p.protoMinor }

// Reason returns the parsed reason phrase, possibly empty.
func (p *Parser) Reason() string { return p.reason }

// Headers advances the machine through the header block and returns it.
func (p *Parser) Headers() (*bucket.Headers, bucket.Status, error) {
	status, err := p.advance(phaseBody)
	if err != nil {
		return nil, bucket.Err, err
	}
	if p.phase < phaseBody {
		return nil, status, nil
	}
	return p.headers, bucket.More, nil
}

// Body returns the framed body bucket. It is only valid once Headers
// has returned successfully.
func (p *Parser) Body() bucket.Bucket {
	return p.body
}

// Trailers returns the chunked trailer header block, valid once the
// body bucket has reported end-of-stream. Returns nil for non-chunked
// framing.
func (p *Parser) Trailers() *bucket.Headers {
	cb, ok := p.body.(*chunkedBody)
	if !ok {
		return nil
	}
	return cb.Trailers()
}

// BecomeAggregate implements the "full-response-become-aggregate"
// administrative operation: once headers are parsed, it returns a
// bucket replaying the original literal bytes (status line + headers +
// body) instead of the structured parse, for protocol-upgrade and
// introspection callers.
func (p *Parser) BecomeAggregate() (bucket.Bucket, error) {
	if p.phase < phaseBody {
		return nil, newError("cannot become-aggregate before headers are parsed")
	}
	agg := bucket.NewAggregate(bucket.NewSimpleOwn(p.rawStatusLine))
	for _, h := range p.rawHeaders {
		agg.Append(bucket.NewSimpleOwn(h))
	}
	agg.Append(p.body)
	return agg, nil
}
