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

package bucket

import (
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/bucketpipe/internal/arena"
)

// ownership records which of the three simple-bucket construction modes
// produced a given instance (spec §4.2).
type ownership int

const (
	ownBorrow ownership = iota
	ownOwned
	ownCopied
)

// Simple is the leaf bucket wrapping a single contiguous byte span. A
// read with ReadAll (or a max covering the rest) returns the entire
// remaining span with status EOF; a smaller max returns that prefix with
// More. Once drained, reads return empty with EOF.
type Simple struct {
	b         []byte
	pos       int
	own       ownership
	scope     *arena.Scope
	pooled    *bytebufferpool.ByteBuffer
	destroyed bool
}

// NewSimpleBorrow wraps b without taking ownership; the caller must
// guarantee b outlives the bucket.
func NewSimpleBorrow(b []byte) *Simple {
	return &Simple{b: b, own: ownBorrow}
}

// NewSimpleOwn wraps b, taking ownership; Destroy releases it.
func NewSimpleOwn(b []byte) *Simple {
	return &Simple{b: b, own: ownOwned}
}

// NewSimpleCopy allocates a copy of b at creation time from scope (or
// the default scope if nil).
func NewSimpleCopy(scope *arena.Scope, b []byte) *Simple {
	if scope == nil {
		scope = arena.Default()
	}
	buf := scope.Copy(b)
	return &Simple{b: buf.Bytes(), own: ownCopied, scope: scope, pooled: buf}
}

func (s *Simple) remaining() []byte {
	if s.pos >= len(s.b) {
		return nil
	}
	return s.b[s.pos:]
}

// Read implements Bucket.
func (s *Simple) Read(max int) (View, Status, error) {
	if s.destroyed {
		return View{}, Err, ErrMisuse()
	}
	rem := s.remaining()
	if max != ReadAll && max < len(rem) {
		rem = rem[:max]
	}
	s.pos += len(rem)
	if s.pos >= len(s.b) {
		return View{B: rem}, EOF, nil
	}
	return View{B: rem}, More, nil
}

// Peek implements Bucket.
func (s *Simple) Peek() (View, Status, error) {
	if s.destroyed {
		return View{}, Err, ErrMisuse()
	}
	return View{B: s.remaining()}, EOF, nil
}

// ReadLine implements Bucket.
func (s *Simple) ReadLine(mask Mask) (View, LineEnding, Status, error) {
	return DefaultReadLine(s, mask)
}

// ReadIovec implements Bucket.
func (s *Simple) ReadIovec(max, maxVectors int) ([][]byte, Status, error) {
	return DefaultReadIovec(s, max, maxVectors)
}

// Destroy implements Bucket.
func (s *Simple) Destroy() error {
	if s.destroyed {
		return nil
	}
	s.destroyed = true
	if s.own == ownCopied && s.pooled != nil {
		s.scope.Release(s.pooled)
		s.pooled = nil
	}
	s.b = nil
	return nil
}
