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
	"container/list"
	"crypto/tls"
	"crypto/x509"
	"io"
	"strings"

	"github.com/packetd/bucketpipe/logger"
	"github.com/packetd/bucketpipe/pkg/bucket"
)

// Context is the shared TLS engine state backing one encrypt façade and
// one decrypt façade, modeled on ssl_buckets.c's self-referential
// ssl_context: the context owns the engine and its aggregates; the
// façades are non-owning views over it (spec §9, "self-referential TLS
// context").
type Context struct {
	conn    *bridgeConn
	tlsConn *tls.Conn

	decryptSource bucket.Bucket

	// encryptPending accumulates ciphertext the engine has produced but
	// that no caller has yet drained; it is swapped for a fresh aggregate
	// whenever the active encrypt façade is destroyed and a queued one
	// takes over (spec §4.8 "multiplexing encrypt sources").
	encryptPending *bucket.Aggregate

	activeEncrypt *Encrypt
	nextStreams   *list.List // of *Encrypt

	// cryptStatus/transportErr latch what bridgeConn.Read last observed
	// from decryptSource, so ssl_decrypt/ssl_encrypt's error-mapping step
	// can tell a transport-level failure apart from an engine protocol
	// failure (spec §4.8 steps 2-3).
	cryptStatus  bucket.Status
	transportErr error

	// fatalErr is the fatal latch (spec §9): once set, every subsequent
	// façade read returns it unchanged without touching the engine again.
	fatalErr error

	// pendingErr is set by the certificate callback path so the
	// handshake failure that follows surfaces the application's
	// classification instead of a generic comm-failed.
	pendingErr error

	// wantRead is set when the encrypt path's engine write needed to
	// read more handshake bytes before it could make progress; cleared
	// the next time the transport actually yields bytes.
	wantRead bool

	pipeliningEnabled bool

	roots        *x509.CertPool
	hostname     string
	certCallback CertCallback
}

// Options configures a new Context.
type Options struct {
	// IsClient selects client-side or server-side TLS engine role.
	IsClient bool
	// ServerName is used for SNI (client role) and hostname verification.
	ServerName string
	// RootCAs overrides the process system root pool (see SystemRoots).
	RootCAs *x509.CertPool
	// Certificates is the local identity presented to the peer (server
	// role, or client role with mutual TLS).
	Certificates []tls.Certificate
	// CertCallback overrides a certificate verification failure; see
	// CertFailureBits.
	CertCallback CertCallback
}

// NewContext wires a TLS engine to decryptSource (the ciphertext-from-
// network stream). The encrypt façade's plaintext source is supplied
// separately per façade via Encrypt.Source(), since one context may
// multiplex several pipelined encrypt streams over its lifetime.
func NewContext(decryptSource bucket.Bucket, opt Options) *Context {
	ctx := &Context{
		decryptSource:  decryptSource,
		encryptPending: bucket.NewAggregate(),
		nextStreams:    list.New(),
		hostname:       opt.ServerName,
		certCallback:   opt.CertCallback,
		roots:          opt.RootCAs,
	}
	if ctx.roots == nil {
		ctx.roots = SystemRoots()
	}
	ctx.conn = &bridgeConn{ctx: ctx}

	cfg := &tls.Config{
		ServerName:         opt.ServerName,
		Certificates:       opt.Certificates,
		InsecureSkipVerify: true, // verifyConnection below does its own checking
		VerifyConnection:   ctx.verifyConnection,
		Renegotiation:      tls.RenegotiateNever,
	}
	if opt.IsClient {
		ctx.tlsConn = tls.Client(ctx.conn, cfg)
	} else {
		ctx.tlsConn = tls.Server(ctx.conn, cfg)
	}
	return ctx
}

// Fatal returns the fatal latch's current error, or nil.
func (ctx *Context) Fatal() error { return ctx.fatalErr }

// SetPipelining installs or removes the renegotiation-detecting
// behavior; with pipelining enabled a detected renegotiation attempt
// sets the fatal latch to ErrSSLNegotiateInProgress instead of allowing
// application data to interleave with a new handshake (spec §4.8
// "Renegotiation", §6 "connection-pipelining").
func (ctx *Context) SetPipelining(enabled bool) {
	ctx.pipeliningEnabled = enabled
}

// applyConfig decodes the well-known set-config keys (spec §6) and
// applies them; called by both façades' SetConfig.
func (ctx *Context) applyConfig(cfg *bucket.Config) {
	wk := bucket.ParseWellKnown(cfg)
	ctx.SetPipelining(wk.ConnectionPipelining)
}

// isRenegotiationErr reports whether err is crypto/tls's rejection of an
// in-band renegotiation attempt. The standard library exposes no typed
// sentinel for this alert, so detection matches on the alert's fixed
// text; Renegotiation is already pinned to RenegotiateNever in NewContext
// so this can only fire if a peer actively attempts one.
func isRenegotiationErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no renegotiation")
}

// classifyEngineErr maps a crypto/tls engine error onto the bucket
// status/error pair the façade should return, per spec §4.8 steps 3
// (decrypt) and 5 (encrypt, forEncrypt=true additionally turns "needs to
// read" into want_read + wait-for-connection).
func (ctx *Context) classifyEngineErr(err error, forEncrypt bool) (bucket.Status, error) {
	if err == nil {
		return bucket.More, nil
	}

	if isWouldBlock(err) {
		if forEncrypt {
			ctx.wantRead = true
			return bucket.Err, bucket.ErrWaitForConnection
		}
		return bucket.WouldBlock, nil
	}

	if errIsEOF(err) {
		return bucket.EOF, nil
	}

	if ctx.transportErr != nil {
		te := ctx.transportErr
		ctx.transportErr = nil
		return bucket.Err, te
	}

	if ctx.pipeliningEnabled && isRenegotiationErr(err) {
		ctx.fatalErr = bucket.ErrSSLNegotiateInProgress
		logger.Warnf("tlsbridge: renegotiation attempt rejected on pipelined connection")
		return bucket.Err, ctx.fatalErr
	}

	if ctx.pendingErr != nil {
		pe := ctx.pendingErr
		ctx.pendingErr = nil
		ctx.fatalErr = pe
		return bucket.Err, pe
	}

	var setupErr error
	if ctx.tlsConn.ConnectionState().HandshakeComplete {
		setupErr = bucket.ErrSSLCommFailed
	} else {
		setupErr = bucket.ErrSSLSetupFailed
	}
	ctx.fatalErr = setupErr
	logger.Warnf("tlsbridge: engine error classified as %v: %v", setupErr, err)
	return bucket.Err, setupErr
}

func errIsEOF(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

// activateOrQueue makes e the active encrypt façade if none is active
// yet, else appends it to the FIFO of streams waiting their turn (spec
// §4.8 "multiplexing encrypt sources").
func (ctx *Context) activateOrQueue(e *Encrypt) {
	if ctx.activeEncrypt == nil {
		ctx.activeEncrypt = e
		e.active = true
		return
	}
	ctx.nextStreams.PushBack(e)
}

// retireActive is called when the currently active encrypt façade is
// destroyed: the next queued stream (if any) becomes active against a
// fresh encrypt.pending aggregate.
func (ctx *Context) retireActive(e *Encrypt) {
	ctx.activeEncrypt = nil
	ctx.encryptPending = bucket.NewAggregate()
	if front := ctx.nextStreams.Front(); front != nil {
		next := ctx.nextStreams.Remove(front).(*Encrypt)
		next.active = true
		ctx.activeEncrypt = next
	}
}

// removeQueued removes e from the waiting FIFO if it is destroyed before
// ever becoming active.
func (ctx *Context) removeQueued(e *Encrypt) {
	for el := ctx.nextStreams.Front(); el != nil; el = el.Next() {
		if el.Value.(*Encrypt) == e {
			ctx.nextStreams.Remove(el)
			return
		}
	}
}
