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

// Package databuf adapts a plain "reader" function into the full bucket
// contract: a fixed staging buffer is refilled on demand and handed out
// a prefix at a time, propagating would-block upward without invoking
// the reader again until the caller retries.
package databuf

import (
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/bucketpipe/internal/arena"
	"github.com/packetd/bucketpipe/pkg/bucket"
)

// MinStagingSize is the minimum staging buffer capacity this adapter
// will allocate, matching the ≥8KiB floor spec §4.7 requires.
const MinStagingSize = 8 * 1024

// ReaderFunc fills out with as many bytes as are currently available,
// returning how many were written and the resulting status. It must
// never block; WouldBlock signals "nothing yet, try again later".
type ReaderFunc func(out []byte) (int, bucket.Status, error)

// Databuf presents fn through the bucket contract.
type Databuf struct {
	fn ReaderFunc

	scope  *arena.Scope
	staged *bytebufferpool.ByteBuffer
	valid  []byte // unread prefix of staged.B()

	lastStatus bucket.Status
	latched    error
	destroyed  bool
}

// New wraps fn. stagingSize is clamped up to MinStagingSize; scope (or
// the default arena scope if nil) supplies the staging buffer.
func New(fn ReaderFunc, stagingSize int, scope *arena.Scope) *Databuf {
	if scope == nil {
		scope = arena.Default()
	}
	if stagingSize < MinStagingSize {
		stagingSize = MinStagingSize
	}
	staged := scope.Acquire()
	staged.Reset()
	// Grow the backing array to the requested staging size up front so
	// refill() always has room without triggering further growth.
	zeros := make([]byte, stagingSize)
	staged.Write(zeros)
	staged.Reset()

	return &Databuf{fn: fn, scope: scope, staged: staged}
}

func (d *Databuf) stagingCap() int {
	return cap(d.staged.Bytes())
}

// refill invokes fn once to repopulate d.valid from the staging buffer,
// when d.valid is currently empty.
func (d *Databuf) refill() {
	if len(d.valid) > 0 {
		return
	}
	buf := d.staged.Bytes()[:d.stagingCap()]
	n, status, err := d.fn(buf)
	d.lastStatus = status
	if status == bucket.Err {
		d.latched = err
		return
	}
	d.valid = buf[:n]
}

// Read implements bucket.Bucket.
func (d *Databuf) Read(max int) (bucket.View, bucket.Status, error) {
	if d.destroyed {
		return bucket.View{}, bucket.Err, bucket.ErrMisuse()
	}
	if d.latched != nil {
		return bucket.View{}, bucket.Err, d.latched
	}
	d.refill()
	if d.latched != nil {
		return bucket.View{}, bucket.Err, d.latched
	}
	if len(d.valid) == 0 {
		return bucket.View{}, d.lastStatus, nil
	}

	n := len(d.valid)
	if max != bucket.ReadAll && max < n {
		n = max
	}
	out := d.valid[:n]
	d.valid = d.valid[n:]

	if len(d.valid) > 0 {
		return bucket.View{B: out}, bucket.More, nil
	}
	return bucket.View{B: out}, d.lastStatus, nil
}

// Peek implements bucket.Bucket.
func (d *Databuf) Peek() (bucket.View, bucket.Status, error) {
	if d.destroyed {
		return bucket.View{}, bucket.Err, bucket.ErrMisuse()
	}
	if d.latched != nil {
		return bucket.View{}, bucket.Err, d.latched
	}
	d.refill()
	if d.latched != nil {
		return bucket.View{}, bucket.Err, d.latched
	}
	if len(d.valid) == 0 {
		return bucket.View{}, d.lastStatus, nil
	}
	status := bucket.More
	if d.lastStatus == bucket.EOF {
		status = bucket.EOF
	}
	return bucket.View{B: d.valid}, status, nil
}

// ReadLine implements bucket.Bucket by scanning the staging buffer and
// refilling as needed, per spec §4.7.
func (d *Databuf) ReadLine(mask bucket.Mask) (bucket.View, bucket.LineEnding, bucket.Status, error) {
	return bucket.DefaultReadLine(d, mask)
}

// ReadIovec implements bucket.Bucket.
func (d *Databuf) ReadIovec(max, maxVectors int) ([][]byte, bucket.Status, error) {
	return bucket.DefaultReadIovec(d, max, maxVectors)
}

// Destroy implements bucket.Bucket.
func (d *Databuf) Destroy() error {
	if d.destroyed {
		return nil
	}
	d.destroyed = true
	d.scope.Release(d.staged)
	d.staged = nil
	d.valid = nil
	return nil
}
