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

	"github.com/packetd/bucketpipe/pkg/bucket"
)

type chunkPhase int

const (
	chunkPhaseSize chunkPhase = iota
	chunkPhaseData
	chunkPhaseCRLF
	chunkPhaseTrailer
	chunkPhaseDone
)

// chunkedBody decodes an RFC 9112 chunked transfer coding directly
// against the underlying source: chunk-size lines and trailer headers
// go through a LineBuffer, chunk data and the per-chunk trailing CRLF
// are read as raw bytes.
type chunkedBody struct {
	src bucket.Bucket
	lb  *LineBuffer

	phase     chunkPhase
	remaining int // bytes left in the current chunk's data

	crlfBuf []byte // accumulated bytes of the post-data CRLF, up to 2

	trailers  *bucket.Headers
	latched   error
	destroyed bool
}

func newChunkedBody(src bucket.Bucket) *chunkedBody {
	return &chunkedBody{
		src:      src,
		lb:       NewLineBuffer(src),
		phase:    chunkPhaseSize,
		trailers: bucket.NewHeaders(),
	}
}

func (c *chunkedBody) fail(err error) (bucket.View, bucket.Status, error) {
	c.latched = err
	return bucket.View{}, bucket.Err, err
}

// Read implements bucket.Bucket.
func (c *chunkedBody) Read(max int) (bucket.View, bucket.Status, error) {
	if c.destroyed {
		return bucket.View{}, bucket.Err, bucket.ErrMisuse()
	}
	if c.latched != nil {
		return bucket.View{}, bucket.Err, c.latched
	}

	for {
		switch c.phase {
		case chunkPhaseSize:
			view, ending, status, err := c.lb.Next()
			if status == bucket.Err {
				return c.fail(err)
			}
			if ending == bucket.LineNone {
				if status == bucket.EOF {
					return c.fail(bucket.ErrTruncatedResponse)
				}
				return bucket.View{}, bucket.WouldBlock, nil
			}

			line := view.B
			if semi := bytes.IndexByte(line, ';'); semi >= 0 {
				line = line[:semi]
			}
			// An empty size token at stream end is treated the same as
			// an explicit "0" terminator chunk: a final trailing CRLF
			// with nothing following it closes the body.
			var n int
			if len(line) > 0 {
				var perr error
				n, perr = parseHexUint(line)
				if perr != nil {
					return c.fail(bucket.ErrParseError)
				}
			}
			if n == 0 {
				c.phase = chunkPhaseTrailer
				continue
			}
			c.remaining = n
			c.phase = chunkPhaseData

		case chunkPhaseData:
			if c.remaining == 0 {
				c.phase = chunkPhaseCRLF
				c.crlfBuf = c.crlfBuf[:0]
				continue
			}
			readMax := c.remaining
			if max != bucket.ReadAll && max < readMax {
				readMax = max
			}
			view, status, err := c.src.Read(readMax)
			if status == bucket.Err {
				return c.fail(err)
			}
			c.remaining -= view.Len()

			if view.Len() == 0 && status == bucket.EOF {
				return c.fail(bucket.ErrTruncatedResponse)
			}
			if view.Len() > 0 {
				return view, bucket.More, nil
			}
			return view, status, nil

		case chunkPhaseCRLF:
			want := 2 - len(c.crlfBuf)
			view, status, err := c.src.Read(want)
			if status == bucket.Err {
				return c.fail(err)
			}
			c.crlfBuf = append(c.crlfBuf, view.B...)

			if len(c.crlfBuf) < 2 {
				if status == bucket.EOF {
					return c.fail(bucket.ErrTruncatedResponse)
				}
				return bucket.View{}, bucket.WouldBlock, nil
			}
			if c.crlfBuf[0] != '\r' || c.crlfBuf[1] != '\n' {
				return c.fail(bucket.ErrParseError)
			}
			c.phase = chunkPhaseSize

		case chunkPhaseTrailer:
			view, ending, status, err := c.lb.Next()
			if status == bucket.Err {
				return c.fail(err)
			}
			if ending == bucket.LineNone {
				if status == bucket.EOF {
					if len(c.lb.buf) == 0 {
						// Clean end right where the optional trailer
						// section's closing blank line would be: no
						// trailer bytes received, nothing left to read.
						c.phase = chunkPhaseDone
						continue
					}
					return c.fail(bucket.ErrTruncatedResponse)
				}
				return bucket.View{}, bucket.WouldBlock, nil
			}
			if len(view.B) == 0 {
				c.phase = chunkPhaseDone
				continue
			}
			name, value, perr := splitHeaderLine(view.B)
			if perr != nil {
				return c.fail(bucket.ErrParseError)
			}
			c.trailers.Add(name, value)

		case chunkPhaseDone:
			return bucket.View{}, bucket.EOF, nil
		}
	}
}

// Peek implements bucket.Bucket by returning nothing: chunk framing
// bytes must not be exposed to callers via peek.
func (c *chunkedBody) Peek() (bucket.View, bucket.Status, error) {
	if c.destroyed {
		return bucket.View{}, bucket.Err, bucket.ErrMisuse()
	}
	if c.phase == chunkPhaseDone {
		return bucket.View{}, bucket.EOF, nil
	}
	return bucket.View{}, bucket.WouldBlock, nil
}

// ReadLine implements bucket.Bucket.
func (c *chunkedBody) ReadLine(mask bucket.Mask) (bucket.View, bucket.LineEnding, bucket.Status, error) {
	return bucket.DefaultReadLine(c, mask)
}

// ReadIovec implements bucket.Bucket.
func (c *chunkedBody) ReadIovec(max, maxVectors int) ([][]byte, bucket.Status, error) {
	return bucket.DefaultReadIovec(c, max, maxVectors)
}

// Destroy implements bucket.Bucket.
func (c *chunkedBody) Destroy() error {
	c.destroyed = true
	return nil
}

// Trailers returns the trailer header block, populated once the
// terminator chunk and trailer section have been fully consumed.
func (c *chunkedBody) Trailers() *bucket.Headers {
	return c.trailers
}

// parseHexUint parses a non-empty hexadecimal byte slice (RFC 9112
// chunk-size) into an int, failing on overflow or an empty/invalid
// digit string.
func parseHexUint(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, bucket.ErrParseError
	}
	var n uint64
	for _, c := range b {
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint64(c-'A') + 10
		default:
			return 0, bucket.ErrParseError
		}
		n = n*16 + d
		if n > 1<<31 {
			return 0, bucket.ErrParseError
		}
	}
	return int(n), nil
}
