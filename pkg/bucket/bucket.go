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

// Package bucket defines the pull-driven, zero-copy streaming contract
// shared by every bucket variant in this module: simple, iovec,
// aggregate, headers, mock, and (in sibling packages) the response
// parser, chunked decoder, databuf adapter and TLS bridge.
package bucket

import "github.com/pkg/errors"

// Status is the tri-category result accompanying every read.
type Status int

const (
	// More indicates data was returned and another read may succeed
	// immediately.
	More Status = iota

	// WouldBlock indicates no data is available right now; the caller
	// should retry once the underlying source becomes ready.
	WouldBlock

	// EOF indicates this read returned the final bytes for the stream
	// (the returned length may be zero or positive).
	EOF

	// Err indicates a specific error value accompanies the result; no
	// bytes are returned.
	Err
)

func (s Status) String() string {
	switch s {
	case More:
		return "more-available"
	case WouldBlock:
		return "would-block"
	case EOF:
		return "end-of-stream"
	case Err:
		return "error"
	default:
		return "unknown"
	}
}

// ReadAll is the sentinel requested_max meaning "all available".
const ReadAll = -1

// LineEnding reports which terminator (if any) ended a ReadLine call.
type LineEnding int

const (
	// LineNone means no recognized terminator was found in this chunk;
	// the caller should treat the bytes as a partial line and read again.
	LineNone LineEnding = iota
	LineCR
	LineLF
	LineCRLF

	// LineCRLFSplit means a lone '\r' sat at the end of the currently
	// available input and the matching '\n' has not yet been seen.
	LineCRLFSplit
)

func (e LineEnding) String() string {
	switch e {
	case LineNone:
		return "none"
	case LineCR:
		return "cr"
	case LineLF:
		return "lf"
	case LineCRLF:
		return "crlf"
	case LineCRLFSplit:
		return "crlf-split"
	default:
		return "unknown"
	}
}

// Mask is a bitset over acceptable line terminators for ReadLine.
type Mask uint8

const (
	MaskCR Mask = 1 << iota
	MaskLF
	MaskCRLF

	MaskAny = MaskCR | MaskLF | MaskCRLF
)

// Has reports whether the given ending is acceptable under the mask. A
// split CRLF is accepted whenever CRLF itself is accepted.
func (m Mask) Has(e LineEnding) bool {
	switch e {
	case LineCR:
		return m&MaskCR != 0
	case LineLF:
		return m&MaskLF != 0
	case LineCRLF, LineCRLFSplit:
		return m&MaskCRLF != 0
	default:
		return false
	}
}

// View is a borrowed (pointer, length) slice into bucket-owned memory.
// It remains valid until the next mutating call on the bucket that
// produced it, or until destruction of any ancestor bucket.
type View struct {
	B []byte
}

// Len returns the number of bytes in the view.
func (v View) Len() int { return len(v.B) }

// Bucket is the polymorphic capability set every streaming variant
// implements: read, peek, read-line, read-iovec, destroy, and the
// optional set-config.
type Bucket interface {
	// Read returns up to max bytes (ReadAll meaning "as many as
	// available"). It may return fewer, including zero, but zero with
	// More is forbidden except from the ReadLine path.
	Read(max int) (View, Status, error)

	// Peek is non-destructive. It may legitimately return EOF with a
	// non-empty view when the remaining content fits in one internal
	// buffer.
	Peek() (View, Status, error)

	// ReadLine returns at most one line. A terminator is only
	// recognized as such when its kind is in mask; otherwise the
	// terminator bytes are returned inline as data.
	ReadLine(mask Mask) (View, LineEnding, Status, error)

	// ReadIovec returns up to maxVectors contiguous runs whose total
	// length is at most max.
	ReadIovec(max, maxVectors int) ([][]byte, Status, error)

	// Destroy releases all resources owned by this bucket, including
	// transitively destroying owned children. A destroyed bucket must
	// not be used again.
	Destroy() error
}

// Configurable is implemented by buckets that accept an opaque shared
// configuration (spec: "optional set-config"). Composite buckets forward
// SetConfig to their children.
type Configurable interface {
	SetConfig(cfg *Config) error
}

// SetConfig forwards cfg to b if it implements Configurable; it is a
// no-op otherwise. Safe to call on any Bucket.
func SetConfig(b Bucket, cfg *Config) error {
	if c, ok := b.(Configurable); ok {
		return c.SetConfig(cfg)
	}
	return nil
}

// errMisuse reports programmer errors (spec §7 "programmer" kind): calls
// made against an already-destroyed bucket, or with malformed arguments.
// These are not part of the recoverable status taxonomy.
var errMisuse = errors.New("bucket: misuse of destroyed or malformed bucket")

// ErrMisuse is returned (or used to build wrapped errors) when a bucket
// is used after Destroy, or when a variant receives arguments that
// violate its documented preconditions.
func ErrMisuse() error { return errMisuse }
