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

// Package arena is the scoped byte arena spec §3 describes: every bucket
// born from an allocator borrows its lifetime. This module doesn't
// implement a general-purpose memory pool allocator (out of scope per
// spec §1 — "specified only via its ownership contract"); it gives the
// *copy*-flavor simple bucket and the databuf staging buffer a concrete
// place to get and return memory instead of leaning on bare
// `make([]byte, n)` for every allocation.
package arena

import "github.com/valyala/bytebufferpool"

// Scope issues and releases byte blocks. Its zero value is ready to use
// and draws from bytebufferpool's package-level pool; a Scope made by
// NewScope (Default included) has a pool of its own. Either way the pool
// sizes buffers by usage history.
type Scope struct {
	pool *bytebufferpool.Pool
}

// NewScope returns a Scope backed by its own pool, useful when a
// subsystem's buffer sizes differ enough from the rest of the process
// that sharing the default pool would thrash it.
func NewScope() *Scope {
	return &Scope{pool: new(bytebufferpool.Pool)}
}

var defaultScope = NewScope()

// Default returns the process-wide default scope.
func Default() *Scope { return defaultScope }

// Acquire returns a buffer from the scope. Its backing array capacity is
// whatever the pool's usage history suggests; callers should not assume
// any particular starting capacity.
func (s *Scope) Acquire() *bytebufferpool.ByteBuffer {
	if s == nil || s.pool == nil {
		return bytebufferpool.Get()
	}
	return s.pool.Get()
}

// Release returns buf to the scope for reuse. buf must not be touched
// again afterwards.
func (s *Scope) Release(buf *bytebufferpool.ByteBuffer) {
	if s == nil || s.pool == nil {
		bytebufferpool.Put(buf)
		return
	}
	s.pool.Put(buf)
}

// Copy acquires a buffer from the scope and copies src into it, handing
// back the pooled buffer (to be released on destroy via Release); its
// Bytes() holds the copy. Used by the *copy* simple-bucket construction
// mode (spec §4.2).
func (s *Scope) Copy(src []byte) *bytebufferpool.ByteBuffer {
	buf := s.Acquire()
	buf.Reset()
	buf.Write(src)
	return buf
}
