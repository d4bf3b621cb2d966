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

package testfeed

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/bucketpipe/pkg/bucket"
)

func TestSplitNoBreakCRLFReassemblesToOriginal(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\nHost: example.test\r\nX-Pad: " +
		string(bytes.Repeat([]byte("a"), 40)) + "\r\n\r\n")
	chunks := SplitNoBreakCRLF(data, 16)

	var got []byte
	for _, c := range chunks {
		got = append(got, c...)
	}
	assert.Equal(t, data, got)
}

func TestSplitNoBreakCRLFNeverSplitsALineFeed(t *testing.T) {
	data := []byte("short\r\nline two is a bit longer than the chunk size\r\nend\r\n")
	chunks := SplitNoBreakCRLF(data, 10)

	for i, c := range chunks[:len(chunks)-1] {
		require.True(t, len(c) == 0 || c[len(c)-1] != '\r',
			"chunk %d ends mid CRLF: %q", i, c)
	}
}

func TestSplitNoBreakCRLFFallsBackWhenNoLFWithinLookahead(t *testing.T) {
	// A run with no '\n' anywhere near the boundary must still split at
	// (roughly) chunkSize rather than scanning to the end of the buffer.
	data := bytes.Repeat([]byte("x"), 500)
	chunks := SplitNoBreakCRLF(data, 50)
	require.Len(t, chunks, 10)
	for _, c := range chunks {
		assert.Equal(t, 50, len(c))
	}
}

func TestSplitNoBreakCRLFSingleChunkWhenSmallerThanSize(t *testing.T) {
	data := []byte("abc")
	chunks := SplitNoBreakCRLF(data, 4096)
	require.Len(t, chunks, 1)
	assert.Equal(t, data, chunks[0])
}

func TestSplitRawIgnoresLineBoundaries(t *testing.T) {
	data := []byte("ab\r\ncd")
	chunks := SplitRaw(data, 3)
	require.Len(t, chunks, 2)
	assert.Equal(t, "ab\r", string(chunks[0]))
	assert.Equal(t, "\ncd", string(chunks[1]))
}

func TestToMockActionsMarksLastChunkWithFinalStatus(t *testing.T) {
	chunks := [][]byte{[]byte("foo"), []byte("bar")}
	actions := ToMockActions(chunks, bucket.EOF, false)
	require.Len(t, actions, 2)
	assert.Equal(t, bucket.More, actions[0].Status)
	assert.Equal(t, "foo", string(actions[0].Data))
	assert.Equal(t, bucket.EOF, actions[1].Status)
	assert.Equal(t, "bar", string(actions[1].Data))
}

func TestToMockActionsInterleavesWouldBlock(t *testing.T) {
	chunks := [][]byte{[]byte("foo"), []byte("bar")}
	actions := ToMockActions(chunks, bucket.EOF, true)
	require.Len(t, actions, 3)
	assert.True(t, actions[1].WouldBlock)
}

func TestToMockActionsDrivesAMockToExpectedBytes(t *testing.T) {
	data := []byte("line one\r\nline two\r\n")
	chunks := SplitNoBreakCRLF(data, 6)
	actions := ToMockActions(chunks, bucket.EOF, false)
	m := bucket.NewMock(actions...)

	var got []byte
	for {
		view, status, err := m.Read(bucket.ReadAll)
		require.NoError(t, err)
		got = append(got, view.B...)
		if status == bucket.EOF {
			break
		}
	}
	assert.Equal(t, data, got)
}
