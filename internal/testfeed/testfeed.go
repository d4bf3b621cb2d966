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

// Package testfeed splits a byte slice into chunks the way bytes would
// actually arrive off a socket in small reads, for tests that need to
// exercise a bucket across many partial Read/would-block calls instead
// of handing it the whole payload at once.
package testfeed

import (
	"bytes"

	"github.com/packetd/bucketpipe/pkg/bucket"
)

// lookahead bounds how far past a chunk boundary SplitNoBreakCRLF will
// scan for a line feed before giving up and cutting mid-line anyway.
const lookahead = 64

// SplitNoBreakCRLF splits data into chunks of approximately chunkSize
// bytes each, the way connstream's chunkWriter carves a payload into
// ring-buffer-sized writes: a chunk boundary that would land inside or
// just before a line terminator is pushed forward to the first '\n'
// within lookahead bytes, so a test driving a bucket chunk-by-chunk
// never sees a CRLF (or a lone CR awaiting its LF) split across two
// reads unless the caller explicitly asks for that via SplitRaw.
func SplitNoBreakCRLF(data []byte, chunkSize int) [][]byte {
	if chunkSize <= 0 {
		chunkSize = len(data)
	}
	var chunks [][]byte
	size := len(data)
	l, r := 0, 0
	for r < size {
		r += chunkSize
		if r >= size {
			chunks = append(chunks, data[l:size])
			break
		}

		end := r + lookahead
		if end > size {
			end = size
		}
		if idx := bytes.IndexByte(data[r:end], '\n'); idx >= 0 {
			r += idx + 1
		}
		chunks = append(chunks, data[l:r])
		l = r
	}
	return chunks
}

// SplitRaw splits data into exactly chunkSize-byte pieces with no regard
// for line boundaries, for tests that deliberately want to exercise the
// CRLF-split boundary case (spec §8's "line-too-long"/"crlf-split"
// scenarios).
func SplitRaw(data []byte, chunkSize int) [][]byte {
	if chunkSize <= 0 {
		chunkSize = len(data)
	}
	var chunks [][]byte
	for len(data) > 0 {
		n := chunkSize
		if n > len(data) {
			n = len(data)
		}
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

// ToMockActions turns a sequence of chunks into scripted bucket.Mock
// actions: every chunk but the last reports bucket.More, and the last
// reports finalStatus (typically bucket.EOF). Pass interleaveWouldBlock
// to insert a would-block action between every pair of chunks, modeling
// a source that stalls once per read the way spec §8 scenario 8 does.
func ToMockActions(chunks [][]byte, finalStatus bucket.Status, interleaveWouldBlock bool) []bucket.MockAction {
	var actions []bucket.MockAction
	for i, c := range chunks {
		status := bucket.More
		if i == len(chunks)-1 {
			status = finalStatus
		}
		actions = append(actions, bucket.MockAction{Data: c, Status: status})
		if interleaveWouldBlock && i != len(chunks)-1 {
			actions = append(actions, bucket.MockAction{WouldBlock: true})
		}
	}
	return actions
}
