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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/bucketpipe/pkg/bucket"
)

func drainBody(t *testing.T, b bucket.Bucket) ([]byte, bucket.Status) {
	t.Helper()
	var out []byte
	for {
		view, status, err := b.Read(bucket.ReadAll)
		if status == bucket.Err {
			return out, status
		}
		require.NoError(t, err)
		out = append(out, view.B...)
		if status != bucket.More {
			return out, status
		}
	}
}

func TestParserContentLengthBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 7\r\n\r\nabc1234"
	p := NewParser(bucket.NewSimpleBorrow([]byte(raw)))

	code, status, err := p.StatusCode()
	require.NoError(t, err)
	require.Equal(t, bucket.More, status)
	assert.Equal(t, 200, code)

	_, status, err = p.Headers()
	require.NoError(t, err)
	require.Equal(t, bucket.More, status)

	body, eofStatus := drainBody(t, p.Body())
	assert.Equal(t, "abc1234", string(body))
	assert.Equal(t, bucket.EOF, eofStatus)
}

func TestParserChunkedBodyAndTrailers(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"3\r\nabc\r\n4\r\n1234\r\n0\r\nFooter: value\r\n\r\n"
	p := NewParser(bucket.NewSimpleBorrow([]byte(raw)))

	_, _, err := p.StatusCode()
	require.NoError(t, err)
	_, _, err = p.Headers()
	require.NoError(t, err)

	body, eofStatus := drainBody(t, p.Body())
	assert.Equal(t, "abc1234", string(body))
	assert.Equal(t, bucket.EOF, eofStatus)

	v, ok := p.Trailers().Get("Footer")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestParserContentLengthTruncated(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n" + string(make([]byte, 60))
	p := NewParser(bucket.NewSimpleBorrow([]byte(raw)))

	_, _, err := p.StatusCode()
	require.NoError(t, err)
	_, _, err = p.Headers()
	require.NoError(t, err)

	_, status := drainBody(t, p.Body())
	assert.Equal(t, bucket.Err, status)
}

func TestParserChunkedTruncatedAfterTrailingCR(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n2\r\nAB\r"
	p := NewParser(bucket.NewSimpleBorrow([]byte(raw)))

	_, _, err := p.StatusCode()
	require.NoError(t, err)
	_, _, err = p.Headers()
	require.NoError(t, err)

	_, status := drainBody(t, p.Body())
	assert.Equal(t, bucket.Err, status)
}

func TestParserMockStreamResumesAfterWouldBlock(t *testing.T) {
	m := bucket.NewMock(
		bucket.MockAction{Data: []byte("HTTP/1.1 200 OK\r\n"), Status: bucket.More},
		bucket.MockAction{Data: []byte("Content-Type: text/plain\r\nTransfer-Encoding: chunked\r\n\r\n"), Status: bucket.More},
		bucket.MockAction{Data: []byte("6\r"), Status: bucket.More},
		bucket.MockAction{WouldBlock: true},
		bucket.MockAction{Data: []byte("\nblabla\r\n\r\n"), Status: bucket.EOF},
	)
	p := NewParser(m)

	for {
		_, status, err := p.StatusCode()
		require.NoError(t, err)
		if status != bucket.WouldBlock {
			break
		}
	}
	for {
		_, status, err := p.Headers()
		require.NoError(t, err)
		if status != bucket.WouldBlock {
			break
		}
	}

	var out []byte
	for {
		view, status, err := p.Body().Read(bucket.ReadAll)
		require.NoError(t, err)
		out = append(out, view.B...)
		if status == bucket.EOF {
			break
		}
		if status == bucket.WouldBlock {
			m.MoreDataArrived([]byte("\nblabla\r\n\r\n"))
			continue
		}
	}
	assert.Equal(t, "blabla", string(out))
}

func TestParserHeadRequestHasNoBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\n"
	p := NewParser(bucket.NewSimpleBorrow([]byte(raw)))
	p.SetHeadRequest(true)

	_, _, err := p.StatusCode()
	require.NoError(t, err)
	_, _, err = p.Headers()
	require.NoError(t, err)

	body, status := drainBody(t, p.Body())
	assert.Equal(t, 0, len(body))
	assert.Equal(t, bucket.EOF, status)
}

func TestParserNoReasonPhraseTolerated(t *testing.T) {
	raw := "HTTP/1.1 200\r\nContent-Length: 0\r\n\r\n"
	p := NewParser(bucket.NewSimpleBorrow([]byte(raw)))

	code, _, err := p.StatusCode()
	require.NoError(t, err)
	assert.Equal(t, 200, code)
	assert.Equal(t, "", p.Reason())
}

func TestParserBecomeAggregateReplaysLiteralBytes(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 3\r\n\r\nabc"
	p := NewParser(bucket.NewSimpleBorrow([]byte(raw)))

	_, _, err := p.StatusCode()
	require.NoError(t, err)
	_, _, err = p.Headers()
	require.NoError(t, err)

	agg, err := p.BecomeAggregate()
	require.NoError(t, err)

	out, status := drainBody(t, agg)
	assert.Equal(t, raw, string(out))
	assert.Equal(t, bucket.EOF, status)
}
