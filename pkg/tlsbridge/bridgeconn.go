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

// Package tlsbridge wires crypto/tls to the bucket contract: an encrypt
// façade and a decrypt façade share one TLS engine and exchange bytes
// with it through an in-memory net.Conn shim instead of a real socket.
package tlsbridge

import (
	"io"
	"net"
	"time"

	"github.com/packetd/bucketpipe/pkg/bucket"
)

// wouldBlockError is returned by bridgeConn.Read when decrypt.source has
// no bytes ready yet. It satisfies net.Error with Timeout()==true so
// crypto/tls's internal retry-on-timeout paths treat it the same way
// they'd treat a real socket read timeout, while leaving any bytes
// already consumed into c.rawInput intact for the next call.
type wouldBlockError struct{}

func (wouldBlockError) Error() string   { return "tlsbridge: read would block" }
func (wouldBlockError) Timeout() bool   { return true }
func (wouldBlockError) Temporary() bool { return true }

var errBridgeWouldBlock net.Error = wouldBlockError{}

// isWouldBlock reports whether err (possibly wrapped by crypto/tls) is
// the would-block sentinel this bridge produces.
func isWouldBlock(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// bridgeConn presents a Context's decrypt source (ciphertext arriving
// from the network) and encrypt.pending aggregate (ciphertext produced
// by the engine, queued for the network) as a net.Conn, grounded on
// Apache Serf's bio_bridge_read/bio_bridge_write callbacks (see
// original_source/buckets/ssl_buckets.c) but reimplemented against
// crypto/tls's Conn interface instead of hand-rolling a BIO pair.
type bridgeConn struct {
	ctx *Context
}

// Read implements bridge_read: satisfied from decrypt.source, latching
// the observed transport status in ctx.cryptStatus. It returns 0 only at
// true end-of-stream, the would-block sentinel when the source is not
// yet at EOF but has nothing ready, and the source's own error on a hard
// failure.
func (c *bridgeConn) Read(p []byte) (int, error) {
	ctx := c.ctx
	view, status, err := ctx.decryptSource.Read(len(p))
	ctx.cryptStatus = status

	switch status {
	case bucket.Err:
		ctx.transportErr = err
		return 0, err
	case bucket.WouldBlock:
		return 0, errBridgeWouldBlock
	case bucket.EOF:
		n := copy(p, view.B)
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	default: // bucket.More
		n := copy(p, view.B)
		if n > 0 {
			// Real transport bytes arrived: whatever the encrypt path was
			// waiting on a read for has now had its chance to progress.
			ctx.wantRead = false
		}
		return n, nil
	}
}

// Write implements bridge_write: appends a copy of p to encrypt.pending
// and always succeeds, since accumulating produced ciphertext never
// blocks.
func (c *bridgeConn) Write(p []byte) (int, error) {
	ctx := c.ctx
	cp := make([]byte, len(p))
	copy(cp, p)
	ctx.encryptPending.Append(bucket.NewSimpleOwn(cp))
	return len(p), nil
}

func (c *bridgeConn) Close() error                     { return nil }
func (c *bridgeConn) LocalAddr() net.Addr               { return bridgeAddr{} }
func (c *bridgeConn) RemoteAddr() net.Addr              { return bridgeAddr{} }
func (c *bridgeConn) SetDeadline(time.Time) error       { return nil }
func (c *bridgeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *bridgeConn) SetWriteDeadline(time.Time) error  { return nil }

type bridgeAddr struct{}

func (bridgeAddr) Network() string { return "bucket" }
func (bridgeAddr) String() string  { return "tlsbridge" }
