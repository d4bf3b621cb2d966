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

package tlsbridge

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/bucketpipe/pkg/bucket"
)

func newTestContext(decryptSource bucket.Bucket) *Context {
	return NewContext(decryptSource, Options{IsClient: true, ServerName: "example.test"})
}

func TestBridgeConnReadCopiesAvailableBytes(t *testing.T) {
	m := bucket.NewMock(bucket.MockAction{Data: []byte("hello"), Status: bucket.More})
	ctx := newTestContext(m)

	buf := make([]byte, 16)
	n, err := ctx.conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
	assert.Equal(t, bucket.More, ctx.cryptStatus)
}

func TestBridgeConnReadSignalsWouldBlock(t *testing.T) {
	m := bucket.NewMock(bucket.MockAction{WouldBlock: true})
	ctx := newTestContext(m)

	buf := make([]byte, 16)
	_, err := ctx.conn.Read(buf)
	require.Error(t, err)
	assert.True(t, isWouldBlock(err))
	assert.Equal(t, bucket.WouldBlock, ctx.cryptStatus)
}

func TestBridgeConnReadReturnsEOFAtCleanEnd(t *testing.T) {
	m := bucket.NewMock() // no actions: immediate EOF
	ctx := newTestContext(m)

	buf := make([]byte, 16)
	n, err := ctx.conn.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestBridgeConnReadPropagatesHardError(t *testing.T) {
	boom := bucket.ErrParseError
	m := bucket.NewMock(bucket.MockAction{Status: bucket.Err, Err: boom})
	ctx := newTestContext(m)

	buf := make([]byte, 16)
	_, err := ctx.conn.Read(buf)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, ctx.transportErr, boom)
}

func TestBridgeConnReadClearsWantRead(t *testing.T) {
	m := bucket.NewMock(bucket.MockAction{Data: []byte("x"), Status: bucket.More})
	ctx := newTestContext(m)
	ctx.wantRead = true

	buf := make([]byte, 16)
	_, err := ctx.conn.Read(buf)
	require.NoError(t, err)
	assert.False(t, ctx.wantRead)
}

func TestBridgeConnWriteAppendsToPending(t *testing.T) {
	m := bucket.NewMock()
	ctx := newTestContext(m)

	n, err := ctx.conn.Write([]byte("ciphertext"))
	require.NoError(t, err)
	assert.Equal(t, len("ciphertext"), n)

	view, status, rerr := ctx.encryptPending.Read(bucket.ReadAll)
	require.NoError(t, rerr)
	assert.Equal(t, "ciphertext", string(view.B))
	assert.Equal(t, bucket.EOF, status)
}

func TestClassifyEngineErrWouldBlockDecrypt(t *testing.T) {
	ctx := newTestContext(bucket.NewMock())
	status, err := ctx.classifyEngineErr(errBridgeWouldBlock, false)
	assert.Equal(t, bucket.WouldBlock, status)
	assert.NoError(t, err)
}

func TestClassifyEngineErrWouldBlockEncryptSetsWantRead(t *testing.T) {
	ctx := newTestContext(bucket.NewMock())
	status, err := ctx.classifyEngineErr(errBridgeWouldBlock, true)
	assert.Equal(t, bucket.Err, status)
	assert.ErrorIs(t, err, bucket.ErrWaitForConnection)
	assert.True(t, ctx.wantRead)
}

func TestClassifyEngineErrTransportErrorTakesPrecedence(t *testing.T) {
	ctx := newTestContext(bucket.NewMock())
	ctx.transportErr = bucket.ErrParseError
	ctx.pendingErr = bucket.ErrSSLCertFailed

	status, err := ctx.classifyEngineErr(io.ErrClosedPipe, false)
	assert.Equal(t, bucket.Err, status)
	assert.ErrorIs(t, err, bucket.ErrParseError)
	// transportErr is consumed, not left latched for the next call.
	assert.Nil(t, ctx.transportErr)
}

func TestClassifyEngineErrSurfacesPendingCertError(t *testing.T) {
	ctx := newTestContext(bucket.NewMock())
	ctx.pendingErr = bucket.ErrSSLCertFailed

	status, err := ctx.classifyEngineErr(io.ErrClosedPipe, false)
	assert.Equal(t, bucket.Err, status)
	assert.ErrorIs(t, err, bucket.ErrSSLCertFailed)
	assert.ErrorIs(t, ctx.fatalErr, bucket.ErrSSLCertFailed)
	assert.Nil(t, ctx.pendingErr)
}

func TestClassifyEngineErrDefaultsToSetupFailedPreHandshake(t *testing.T) {
	ctx := newTestContext(bucket.NewMock())
	status, err := ctx.classifyEngineErr(io.ErrClosedPipe, false)
	assert.Equal(t, bucket.Err, status)
	assert.ErrorIs(t, err, bucket.ErrSSLSetupFailed)
	assert.ErrorIs(t, ctx.fatalErr, bucket.ErrSSLSetupFailed)
}

func TestClassifyEngineErrRenegotiation(t *testing.T) {
	ctx := newTestContext(bucket.NewMock())
	ctx.SetPipelining(true)
	status, err := ctx.classifyEngineErr(assertError("tls: no renegotiation"), false)
	assert.Equal(t, bucket.Err, status)
	assert.ErrorIs(t, err, bucket.ErrSSLNegotiateInProgress)
}

type assertError string

func (e assertError) Error() string { return string(e) }
