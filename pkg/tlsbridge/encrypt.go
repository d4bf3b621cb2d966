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
	"github.com/packetd/bucketpipe/pkg/bucket"
	"github.com/packetd/bucketpipe/pkg/databuf"
)

// maxCoalesceVectors bounds how many vectors ssl_encrypt pulls from
// encrypt.source in one pass before coalescing into the engine's write
// scratch buffer (spec §4.8 step 3, "up to 64 vectors").
const maxCoalesceVectors = 64

// Encrypt is the application/network-facing façade yielding ciphertext,
// backed by a databuf whose reader is ssl_encrypt (spec §4.8). Several
// Encrypt façades may be created against one Context to support request
// pipelining; only one is ever active at a time (spec §4.8 "multiplexing
// encrypt sources").
type Encrypt struct {
	ctx    *Context
	db     *databuf.Databuf
	source *bucket.Aggregate // plaintext queued by the application to send

	active    bool
	destroyed bool
}

// NewEncrypt returns a new ciphertext-producing façade against ctx. If
// another Encrypt is already active, this one queues behind it and does
// not produce bytes until it becomes active.
func NewEncrypt(ctx *Context) *Encrypt {
	e := &Encrypt{ctx: ctx, source: bucket.NewAggregate()}
	e.db = databuf.New(e.sslEncrypt, 0, nil)
	ctx.activateOrQueue(e)
	return e
}

// Source returns the plaintext queue the application appends outgoing
// bytes to; the engine consumes from its head in order.
func (e *Encrypt) Source() *bucket.Aggregate { return e.source }

func (e *Encrypt) drainPending(out []byte) (int, bucket.Status, error, bool) {
	view, status, err := e.ctx.encryptPending.Read(len(out))
	if status == bucket.Err {
		return 0, bucket.Err, err, true
	}
	if view.Len() > 0 {
		n := copy(out, view.B)
		return n, bucket.More, nil, true
	}
	return 0, 0, nil, false
}

// sslEncrypt implements the databuf.ReaderFunc contract per spec §4.8's
// ssl_encrypt(bufsize) steps.
func (e *Encrypt) sslEncrypt(out []byte) (int, bucket.Status, error) {
	ctx := e.ctx
	if ctx.fatalErr != nil {
		return 0, bucket.Err, ctx.fatalErr
	}
	if !e.active {
		// Queued behind another pipelined stream; nothing to produce
		// until it becomes active.
		return 0, bucket.WouldBlock, nil
	}

	// Step 2: drain whatever ciphertext is already pending.
	if n, status, err, ok := e.drainPending(out); ok {
		return n, status, err
	}

	// Steps 3-5: push plaintext into the engine until it stops accepting
	// more, the source empties, or a write fails.
	for !ctx.wantRead && !e.source.Empty() {
		vecs, vstatus, verr := e.source.ReadIovec(bucket.ReadAll, maxCoalesceVectors)
		if vstatus == bucket.Err {
			return 0, bucket.Err, verr
		}
		if len(vecs) == 0 {
			break
		}
		scratch := coalesceVectors(vecs)

		_, werr := ctx.tlsConn.Write(scratch)
		if werr == nil {
			continue
		}

		// Re-insert by owned copy: the vectors drawn from e.source were
		// only borrowed, and their backing may be reused or released by
		// the children that produced them (spec §4.8 step 5, §9).
		e.source.PrependCopy(scratch)

		status, outErr := ctx.classifyEngineErr(werr, true)
		if status == bucket.Err {
			return 0, bucket.Err, outErr
		}
		// With forEncrypt set, a would-block comes back as
		// ErrWaitForConnection above, so only a clean engine EOF gets here:
		// stop pushing and fall through to draining whatever it already
		// produced.
		break
	}

	// Step 6: final drain of whatever the push loop produced.
	if n, status, err, ok := e.drainPending(out); ok {
		return n, status, err
	}
	return 0, bucket.WouldBlock, nil
}

func coalesceVectors(vecs [][]byte) []byte {
	total := 0
	for _, v := range vecs {
		total += len(v)
	}
	buf := make([]byte, 0, total)
	for _, v := range vecs {
		buf = append(buf, v...)
	}
	return buf
}

// Read implements bucket.Bucket.
func (e *Encrypt) Read(max int) (bucket.View, bucket.Status, error) {
	return e.db.Read(max)
}

// Peek implements bucket.Bucket.
func (e *Encrypt) Peek() (bucket.View, bucket.Status, error) {
	return e.db.Peek()
}

// ReadLine implements bucket.Bucket.
func (e *Encrypt) ReadLine(mask bucket.Mask) (bucket.View, bucket.LineEnding, bucket.Status, error) {
	return e.db.ReadLine(mask)
}

// ReadIovec implements bucket.Bucket.
func (e *Encrypt) ReadIovec(max, maxVectors int) ([][]byte, bucket.Status, error) {
	return e.db.ReadIovec(max, maxVectors)
}

// SetConfig implements bucket.Configurable, forwarding to the shared
// context and to the plaintext source queue.
func (e *Encrypt) SetConfig(cfg *bucket.Config) error {
	e.ctx.applyConfig(cfg)
	return e.source.SetConfig(cfg)
}

// Destroy implements bucket.Bucket. If this façade was active, the next
// queued stream (if any) takes over with a fresh encrypt.pending.
func (e *Encrypt) Destroy() error {
	if e.destroyed {
		return nil
	}
	e.destroyed = true
	err := e.source.Destroy()
	if dbErr := e.db.Destroy(); err == nil {
		err = dbErr
	}
	if e.active {
		e.ctx.retireActive(e)
	} else {
		e.ctx.removeQueued(e)
	}
	return err
}
