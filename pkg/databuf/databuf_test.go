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

package databuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/bucketpipe/pkg/bucket"
)

// scriptedReader plays back a fixed sequence of ReaderFunc calls, one per
// invocation, mirroring bucket.Mock's scripted-action style.
func scriptedReader(chunks ...struct {
	data   []byte
	status bucket.Status
	err    error
}) ReaderFunc {
	idx := 0
	return func(out []byte) (int, bucket.Status, error) {
		if idx >= len(chunks) {
			return 0, bucket.EOF, nil
		}
		c := chunks[idx]
		idx++
		if c.status == bucket.Err {
			return 0, bucket.Err, c.err
		}
		n := copy(out, c.data)
		return n, c.status, nil
	}
}

func TestDatabufDrainsAcrossRefills(t *testing.T) {
	fn := scriptedReader(
		struct {
			data   []byte
			status bucket.Status
			err    error
		}{data: []byte("hello "), status: bucket.More},
		struct {
			data   []byte
			status bucket.Status
			err    error
		}{data: []byte("world"), status: bucket.EOF},
	)
	d := New(fn, 0, nil)
	defer d.Destroy()

	view, status, err := d.Read(bucket.ReadAll)
	require.NoError(t, err)
	assert.Equal(t, "hello ", string(view.B))
	assert.Equal(t, bucket.More, status)

	view, status, err = d.Read(bucket.ReadAll)
	require.NoError(t, err)
	assert.Equal(t, "world", string(view.B))
	assert.Equal(t, bucket.EOF, status)
}

func TestDatabufWouldBlockPropagates(t *testing.T) {
	fn := scriptedReader(
		struct {
			data   []byte
			status bucket.Status
			err    error
		}{status: bucket.WouldBlock},
	)
	d := New(fn, 0, nil)
	defer d.Destroy()

	view, status, err := d.Read(bucket.ReadAll)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Len())
	assert.Equal(t, bucket.WouldBlock, status)
}

func TestDatabufErrLatches(t *testing.T) {
	boom := bucket.ErrParseError
	fn := scriptedReader(
		struct {
			data   []byte
			status bucket.Status
			err    error
		}{status: bucket.Err, err: boom},
	)
	d := New(fn, 0, nil)
	defer d.Destroy()

	_, status, err := d.Read(bucket.ReadAll)
	assert.Equal(t, bucket.Err, status)
	assert.ErrorIs(t, err, boom)

	// Latched error surfaces again without re-invoking fn.
	_, status, err = d.Read(bucket.ReadAll)
	assert.Equal(t, bucket.Err, status)
	assert.ErrorIs(t, err, boom)
}

func TestDatabufReadClampsToMax(t *testing.T) {
	fn := scriptedReader(
		struct {
			data   []byte
			status bucket.Status
			err    error
		}{data: []byte("abcdef"), status: bucket.EOF},
	)
	d := New(fn, 0, nil)
	defer d.Destroy()

	view, status, err := d.Read(3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(view.B))
	assert.Equal(t, bucket.More, status)

	view, status, err = d.Read(bucket.ReadAll)
	require.NoError(t, err)
	assert.Equal(t, "def", string(view.B))
	assert.Equal(t, bucket.EOF, status)
}

func TestDatabufReadLineSplitsStagedLines(t *testing.T) {
	fn := scriptedReader(
		struct {
			data   []byte
			status bucket.Status
			err    error
		}{data: []byte("foo\r\nbar"), status: bucket.EOF},
	)
	d := New(fn, 0, nil)
	defer d.Destroy()

	view, ending, status, err := d.ReadLine(bucket.MaskAny)
	require.NoError(t, err)
	assert.Equal(t, "foo\r\n", string(view.B))
	assert.Equal(t, bucket.LineCRLF, ending)
	assert.Equal(t, bucket.More, status)

	view, ending, status, err = d.ReadLine(bucket.MaskAny)
	require.NoError(t, err)
	assert.Equal(t, "bar", string(view.B))
	assert.Equal(t, bucket.LineNone, ending)
	assert.Equal(t, bucket.EOF, status)
}

func TestDatabufMinStagingSizeEnforced(t *testing.T) {
	fn := scriptedReader(
		struct {
			data   []byte
			status bucket.Status
			err    error
		}{status: bucket.EOF},
	)
	d := New(fn, 128, nil)
	defer d.Destroy()
	assert.GreaterOrEqual(t, d.stagingCap(), MinStagingSize)
}
