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

import (
	"container/list"

	"github.com/hashicorp/go-multierror"
)

// Aggregate is an ordered deque of child buckets concatenated into one
// logical stream (spec §4.4). Reads drain the head child; when a child
// reaches EOF it is destroyed and, within the same call, reading
// continues into the next child if one is queued.
type Aggregate struct {
	children  *list.List // of Bucket
	cfg       *Config
	destroyed bool
}

// NewAggregate returns an empty aggregate. Children are added with
// Append/Prepend.
func NewAggregate(children ...Bucket) *Aggregate {
	a := &Aggregate{children: list.New()}
	for _, c := range children {
		a.Append(c)
	}
	return a
}

// Append adds b to the tail of the queue.
func (a *Aggregate) Append(b Bucket) {
	if a.cfg != nil {
		_ = SetConfig(b, a.cfg)
	}
	a.children.PushBack(b)
}

// Prepend adds b to the head of the queue; it will be read before the
// current head.
func (a *Aggregate) Prepend(b Bucket) {
	if a.cfg != nil {
		_ = SetConfig(b, a.cfg)
	}
	a.children.PushFront(b)
}

// PrependCopy wraps a copy of data in a Simple bucket and prepends it.
// Used by the TLS encrypt bridge to re-insert coalesced plaintext whose
// original vector backing was only borrowed (spec §4.8 step 5, §9).
func (a *Aggregate) PrependCopy(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	a.Prepend(NewSimpleOwn(cp))
}

// Empty reports whether the aggregate currently has no queued children.
func (a *Aggregate) Empty() bool { return a.children.Len() == 0 }

func (a *Aggregate) head() Bucket {
	e := a.children.Front()
	if e == nil {
		return nil
	}
	return e.Value.(Bucket)
}

func (a *Aggregate) dropHead() {
	e := a.children.Front()
	if e != nil {
		a.children.Remove(e)
	}
}

// Read implements Bucket. Read never returns EOF while a successor
// child remains queued.
func (a *Aggregate) Read(max int) (View, Status, error) {
	if a.destroyed {
		return View{}, Err, ErrMisuse()
	}
	for {
		h := a.head()
		if h == nil {
			return View{}, EOF, nil
		}

		view, status, err := h.Read(max)
		if status == Err {
			return view, status, err
		}
		if status == EOF {
			_ = h.Destroy()
			a.dropHead()
			if view.Len() > 0 {
				more := a.children.Len() > 0
				if more {
					return view, More, nil
				}
				return view, EOF, nil
			}
			// Empty tail from this child: keep going within the same
			// call if another child is queued.
			continue
		}
		return view, status, nil
	}
}

// Peek implements Bucket. It is allowed to return More with only the
// head child's head slice even if more children are queued; callers
// must not infer total remaining length from one peek.
func (a *Aggregate) Peek() (View, Status, error) {
	if a.destroyed {
		return View{}, Err, ErrMisuse()
	}
	h := a.head()
	if h == nil {
		return View{}, EOF, nil
	}
	view, status, err := h.Peek()
	if status == Err {
		return view, status, err
	}
	if status == EOF && a.children.Len() > 1 {
		return view, More, nil
	}
	return view, status, nil
}

// ReadLine implements Bucket.
func (a *Aggregate) ReadLine(mask Mask) (View, LineEnding, Status, error) {
	return DefaultReadLine(a, mask)
}

// ReadIovec implements Bucket by pulling vectors from successive
// children until max/maxVectors is exhausted or the queue empties.
func (a *Aggregate) ReadIovec(max, maxVectors int) ([][]byte, Status, error) {
	if a.destroyed {
		return nil, Err, ErrMisuse()
	}
	var out [][]byte
	remaining := max
	for len(out) < maxVectors {
		h := a.head()
		if h == nil {
			break
		}
		want := maxVectors - len(out)
		vecs, status, err := h.ReadIovec(remaining, want)
		if status == Err {
			return out, status, err
		}
		out = append(out, vecs...)
		if remaining != ReadAll {
			for _, v := range vecs {
				remaining -= len(v)
			}
		}
		if status == EOF {
			_ = h.Destroy()
			a.dropHead()
			if remaining != ReadAll && remaining <= 0 {
				break
			}
			continue
		}
		break
	}
	status := More
	if a.children.Len() == 0 {
		status = EOF
	}
	return out, status, nil
}

// SetConfig implements Configurable: composite buckets forward to
// children, and remember cfg so later-appended children receive it too.
func (a *Aggregate) SetConfig(cfg *Config) error {
	a.cfg = cfg
	for e := a.children.Front(); e != nil; e = e.Next() {
		if err := SetConfig(e.Value.(Bucket), cfg); err != nil {
			return err
		}
	}
	return nil
}

// Destroy implements Bucket: every queued child is destroyed even if an
// earlier one errors, and all errors are reported together.
func (a *Aggregate) Destroy() error {
	if a.destroyed {
		return nil
	}
	a.destroyed = true

	var result error
	for e := a.children.Front(); e != nil; e = e.Next() {
		if err := e.Value.(Bucket).Destroy(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.children.Init()
	return result
}
