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

// Package response implements an HTTP/1.1 status-line, header, and body
// parser driven by pull reads against a bucket.Bucket source.
package response

import (
	"github.com/packetd/bucketpipe/pkg/bucket"
)

// maxLineBytes bounds a single accumulated line; exceeding it fails with
// bucket.ErrLineTooLong rather than growing without limit.
const maxLineBytes = 8000

type lineState int

const (
	lineEmpty lineState = iota
	linePartial
	lineReady
	lineCRLFSplit
)

// LineBuffer accumulates one line at a time from src, tolerating partial
// reads (would-block) across calls and resolving a lone trailing '\r' at
// a read boundary by peeking the next byte on the following call.
type LineBuffer struct {
	src   bucket.Bucket
	buf   []byte
	state lineState
}

// NewLineBuffer wraps src.
func NewLineBuffer(src bucket.Bucket) *LineBuffer {
	return &LineBuffer{src: src}
}

func (lb *LineBuffer) append(b []byte) error {
	if len(lb.buf)+len(b) > maxLineBytes {
		return bucket.ErrLineTooLong
	}
	lb.buf = append(lb.buf, b...)
	return nil
}

func (lb *LineBuffer) finish(ending bucket.LineEnding, status bucket.Status) (bucket.View, bucket.LineEnding, bucket.Status, error) {
	out := lb.buf
	lb.buf = nil
	lb.state = lineEmpty
	return bucket.View{B: out}, ending, status, nil
}

// Next returns the next complete line (terminator stripped) once fully
// accumulated, or (empty, LineNone, status, nil) while still waiting on
// more bytes — callers retry on the next readable event. status is the
// underlying source's status as of the most recent read.
func (lb *LineBuffer) Next() (bucket.View, bucket.LineEnding, bucket.Status, error) {
	for {
		switch lb.state {
		case lineCRLFSplit:
			peeked, pstatus, err := lb.src.Peek()
			if pstatus == bucket.Err {
				return bucket.View{}, bucket.LineNone, bucket.Err, err
			}
			if peeked.Len() == 0 {
				if pstatus != bucket.EOF {
					return bucket.View{}, bucket.LineNone, bucket.WouldBlock, nil
				}
				// True EOF right after the lone '\r': it was never a CRLF.
				return lb.finish(bucket.LineCR, pstatus)
			}
			if peeked.B[0] == '\n' {
				_, rstatus, rerr := lb.src.Read(1)
				if rerr != nil {
					return bucket.View{}, bucket.LineNone, bucket.Err, rerr
				}
				return lb.finish(bucket.LineCRLF, rstatus)
			}
			return lb.finish(bucket.LineCR, pstatus)

		default:
			view, ending, status, err := lb.src.ReadLine(bucket.MaskAny)
			if status == bucket.Err {
				return bucket.View{}, bucket.LineNone, bucket.Err, err
			}

			switch ending {
			case bucket.LineNone:
				if aerr := lb.append(view.B); aerr != nil {
					return bucket.View{}, bucket.LineNone, bucket.Err, aerr
				}
				lb.state = linePartial
				return bucket.View{}, bucket.LineNone, status, nil

			case bucket.LineCRLFSplit:
				data := view.B
				if len(data) > 0 && data[len(data)-1] == '\r' {
					data = data[:len(data)-1]
				}
				if aerr := lb.append(data); aerr != nil {
					return bucket.View{}, bucket.LineNone, bucket.Err, aerr
				}
				lb.state = lineCRLFSplit
				continue

			default: // LineCR, LineLF, LineCRLF
				termLen := 1
				if ending == bucket.LineCRLF {
					termLen = 2
				}
				data := view.B
				if len(data) >= termLen {
					data = data[:len(data)-termLen]
				}
				if aerr := lb.append(data); aerr != nil {
					return bucket.View{}, bucket.LineNone, bucket.Err, aerr
				}
				return lb.finish(ending, status)
			}
		}
	}
}

// Pending reports whether the buffer has left its empty state: a line has
// been started (possibly with no bytes received yet, after a would-block)
// or a split CRLF is awaiting its '\n'.
func (lb *LineBuffer) Pending() bool {
	return lb.state != lineEmpty
}
