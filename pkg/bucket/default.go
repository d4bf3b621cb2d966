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

package bucket

import "bytes"

// DefaultReadIovec composes ReadIovec on top of Read for variants backed
// by contiguous storage: it gathers a single vector, since there is
// nothing to scatter across.
func DefaultReadIovec(b Bucket, max, maxVectors int) ([][]byte, Status, error) {
	if maxVectors <= 0 {
		return nil, Err, newError("read-iovec: maxVectors must be positive")
	}
	view, status, err := b.Read(max)
	if status == Err {
		return nil, status, err
	}
	if view.Len() == 0 {
		return nil, status, nil
	}
	return [][]byte{view.B}, status, nil
}

// DefaultReadLine composes ReadLine on top of Peek+Read: it scans the
// peeked view for the first terminator acceptable under mask, consumes
// exactly that many bytes via Read, and reports the terminator kind.
//
// This is the fallback for buckets whose backing storage makes line
// scanning straightforward on the full peeked slice (simple, iovec); the
// response parser's own line buffer (pkg/response) handles the harder
// case of a terminator straddling successive reads of a growing buffer.
func DefaultReadLine(b Bucket, mask Mask) (View, LineEnding, Status, error) {
	peeked, pstatus, err := b.Peek()
	if pstatus == Err {
		return View{}, LineNone, pstatus, err
	}

	data := peeked.B
	ending, idx := scanLineEnding(data, mask, pstatus == EOF)
	switch ending {
	case LineNone:
		// No acceptable terminator in what's buffered; hand back
		// everything available so far.
		view, status, err := b.Read(len(data))
		return view, LineNone, status, err

	case LineCRLFSplit:
		// A lone '\r' sits at the boundary; consume it (but not the
		// following, not-yet-seen '\n') and report the split so the
		// caller knows to read again.
		view, status, err := b.Read(idx + 1)
		return view, LineCRLFSplit, status, err

	default:
		consumeLen := idx
		switch ending {
		case LineCR, LineLF:
			consumeLen++
		case LineCRLF:
			consumeLen += 2
		}
		view, status, err := b.Read(consumeLen)
		return view, ending, status, err
	}
}

// scanLineEnding finds the first line terminator acceptable under mask
// in data, returning its kind and the index of its first byte. When no
// acceptable terminator exists, it returns (LineNone, len(data)).
//
// atEOF tells the scanner whether the underlying bucket has already
// observed end-of-stream: a lone trailing '\r' at true EOF resolves to
// LineNone rather than LineCRLFSplit (see spec §9's open question; we
// return the more honest answer it recommends).
func scanLineEnding(data []byte, mask Mask, atEOF bool) (LineEnding, int) {
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\r':
			hasNext := i+1 < len(data)
			nextIsLF := hasNext && data[i+1] == '\n'

			if nextIsLF && mask.Has(LineCRLF) {
				return LineCRLF, i
			}
			// At a read boundary with nothing after '\r' yet: if CRLF is
			// acceptable under mask, defer the decision rather than
			// eagerly committing to a bare CR, UNLESS the source has
			// already reached true EOF (no '\n' can ever arrive, so it
			// was never a CRLF to begin with).
			if !hasNext && mask.Has(LineCRLF) && !atEOF {
				return LineCRLFSplit, i
			}
			if mask.Has(LineCR) {
				return LineCR, i
			}
			// '\r' matches nothing acceptable here; it is inline data.

		case '\n':
			if mask.Has(LineLF) {
				return LineLF, i
			}
			// '\n' matches nothing acceptable here; it is inline data.
		}
	}
	return LineNone, len(data)
}

// ConcatViews copies and concatenates a set of views. Used by callers
// that must outlive the "next mutating call" lifetime of a view.
func ConcatViews(views ...View) []byte {
	var buf bytes.Buffer
	for _, v := range views {
		buf.Write(v.B)
	}
	return buf.Bytes()
}
