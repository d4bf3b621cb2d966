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

// Iovec is the leaf bucket wrapping a fixed array of buffers (spec
// §4.3). Vectors are borrowed; Iovec never copies.
type Iovec struct {
	vecs      [][]byte
	vi        int // current vector index
	vo        int // offset within current vector
	destroyed bool
}

// NewIovec wraps vecs. Empty vectors are skipped up front so cursor
// advancement never has to special-case them.
func NewIovec(vecs [][]byte) *Iovec {
	nonEmpty := make([][]byte, 0, len(vecs))
	for _, v := range vecs {
		if len(v) > 0 {
			nonEmpty = append(nonEmpty, v)
		}
	}
	return &Iovec{vecs: nonEmpty}
}

func (iv *Iovec) atEnd() bool { return iv.vi >= len(iv.vecs) }

func (iv *Iovec) isLastVector() bool { return iv.vi == len(iv.vecs)-1 }

// Read implements Bucket. Reading zero bytes is explicitly allowed and
// returns (empty, More).
func (iv *Iovec) Read(max int) (View, Status, error) {
	if iv.destroyed {
		return View{}, Err, ErrMisuse()
	}
	if max == 0 {
		if iv.atEnd() {
			return View{}, EOF, nil
		}
		return View{}, More, nil
	}
	if iv.atEnd() {
		return View{}, EOF, nil
	}

	cur := iv.vecs[iv.vi][iv.vo:]
	n := len(cur)
	if max != ReadAll && max < n {
		n = max
	}
	out := cur[:n]
	iv.vo += n

	drainedLast := iv.vo >= len(iv.vecs[iv.vi]) && iv.isLastVector()
	if iv.vo >= len(iv.vecs[iv.vi]) {
		iv.vi++
		iv.vo = 0
	}
	if drainedLast {
		return View{B: out}, EOF, nil
	}
	return View{B: out}, More, nil
}

// Peek implements Bucket: returns the current vector's remaining slice;
// status is EOF iff this is the final vector. Peek on an empty iovec
// returns length 0 and EOF.
func (iv *Iovec) Peek() (View, Status, error) {
	if iv.destroyed {
		return View{}, Err, ErrMisuse()
	}
	if iv.atEnd() {
		return View{}, EOF, nil
	}
	cur := iv.vecs[iv.vi][iv.vo:]
	if iv.isLastVector() {
		return View{B: cur}, EOF, nil
	}
	return View{B: cur}, More, nil
}

// ReadLine implements Bucket.
func (iv *Iovec) ReadLine(mask Mask) (View, LineEnding, Status, error) {
	return DefaultReadLine(iv, mask)
}

// ReadIovec implements Bucket: emits consecutive vectors whose
// cumulative length is at most max, up to k vectors; a final vector may
// be truncated to honor max exactly. The returned count is the number
// actually returned, even when zero.
func (iv *Iovec) ReadIovec(max, k int) ([][]byte, Status, error) {
	if iv.destroyed {
		return nil, Err, ErrMisuse()
	}
	if k <= 0 {
		return nil, Err, newError("read-iovec: maxVectors must be positive")
	}
	if iv.atEnd() {
		return nil, EOF, nil
	}

	var out [][]byte
	remaining := max
	for len(out) < k && !iv.atEnd() {
		cur := iv.vecs[iv.vi][iv.vo:]
		n := len(cur)
		if max != ReadAll && n > remaining {
			n = remaining
		}
		if n == 0 {
			break
		}
		out = append(out, cur[:n])
		iv.vo += n
		if max != ReadAll {
			remaining -= n
		}
		if iv.vo >= len(iv.vecs[iv.vi]) {
			iv.vi++
			iv.vo = 0
		}
		if max != ReadAll && remaining == 0 {
			break
		}
	}

	status := More
	if iv.atEnd() {
		status = EOF
	}
	return out, status, nil
}

// Destroy implements Bucket.
func (iv *Iovec) Destroy() error {
	iv.destroyed = true
	iv.vecs = nil
	return nil
}
