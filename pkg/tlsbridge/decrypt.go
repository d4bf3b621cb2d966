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

// Decrypt is the application-facing façade yielding plaintext, backed by
// a databuf whose reader is ssl_decrypt (spec §4.8).
type Decrypt struct {
	ctx *Context
	db  *databuf.Databuf
}

// NewDecrypt returns the plaintext-reading façade for ctx. Only one
// Decrypt is meaningful per Context, unlike Encrypt which may multiplex.
func NewDecrypt(ctx *Context) *Decrypt {
	d := &Decrypt{ctx: ctx}
	d.db = databuf.New(d.sslDecrypt, 0, nil)
	return d
}

// sslDecrypt implements the databuf.ReaderFunc contract per spec §4.8's
// ssl_decrypt(bufsize) steps.
func (d *Decrypt) sslDecrypt(out []byte) (int, bucket.Status, error) {
	ctx := d.ctx
	if ctx.fatalErr != nil {
		return 0, bucket.Err, ctx.fatalErr
	}

	n, err := ctx.tlsConn.Read(out)
	if n > 0 {
		// Positive length is success; the status reported is whatever
		// the last underlying transport read latched, except WouldBlock
		// and Err are nonsensical alongside a successful decrypt and
		// default to More.
		status := ctx.cryptStatus
		if status != bucket.EOF {
			status = bucket.More
		}
		return n, status, nil
	}
	if err == nil {
		return 0, bucket.More, nil
	}

	status, outErr := ctx.classifyEngineErr(err, false)
	return 0, status, outErr
}

// Read implements bucket.Bucket.
func (d *Decrypt) Read(max int) (bucket.View, bucket.Status, error) {
	return d.db.Read(max)
}

// Peek implements bucket.Bucket.
func (d *Decrypt) Peek() (bucket.View, bucket.Status, error) {
	return d.db.Peek()
}

// ReadLine implements bucket.Bucket.
func (d *Decrypt) ReadLine(mask bucket.Mask) (bucket.View, bucket.LineEnding, bucket.Status, error) {
	return d.db.ReadLine(mask)
}

// ReadIovec implements bucket.Bucket.
func (d *Decrypt) ReadIovec(max, maxVectors int) ([][]byte, bucket.Status, error) {
	return d.db.ReadIovec(max, maxVectors)
}

// SetConfig implements bucket.Configurable.
func (d *Decrypt) SetConfig(cfg *bucket.Config) error {
	d.ctx.applyConfig(cfg)
	return nil
}

// Destroy implements bucket.Bucket. It does not tear down the shared
// Context; the encrypt façade (or the caller directly) owns that.
func (d *Decrypt) Destroy() error {
	return d.db.Destroy()
}
