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
	"strings"
)

// headerField is one insertion-ordered name/value pair. Name keeps its
// original casing for serialization; lookups are case-insensitive.
type headerField struct {
	name  string
	value string
}

// Headers is the composite bucket representing a parsed header block
// (spec §4.5). It holds fields in insertion order; Get joins repeated
// fields with ", " the way HTTP/1.1 permits folding them. Serializing
// reads back "Name: Value\r\n" pairs terminated by a blank line.
type Headers struct {
	fields    []headerField
	rendered  *Simple
	destroyed bool
}

// NewHeaders returns an empty header block.
func NewHeaders() *Headers {
	return &Headers{}
}

// Add appends a field, preserving any existing field of the same name
// (used for headers that are legitimately repeated, e.g. Set-Cookie).
func (h *Headers) Add(name, value string) {
	h.invalidateRendering()
	h.fields = append(h.fields, headerField{name: name, value: value})
}

// Set replaces all existing fields named name (case-insensitive) with a
// single field carrying value.
func (h *Headers) Set(name, value string) {
	h.invalidateRendering()
	out := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.name, name) {
			out = append(out, f)
		}
	}
	h.fields = append(out, headerField{name: name, value: value})
}

func (h *Headers) invalidateRendering() {
	h.rendered = nil
}

// Get returns all values for name (case-insensitive), comma-joined in
// insertion order, and whether the field was present at all.
func (h *Headers) Get(name string) (string, bool) {
	var vals []string
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			vals = append(vals, f.value)
		}
	}
	if vals == nil {
		return "", false
	}
	return strings.Join(vals, ", "), true
}

// Values returns each occurrence of name individually, without joining.
func (h *Headers) Values(name string) []string {
	var vals []string
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			vals = append(vals, f.value)
		}
	}
	return vals
}

// Has reports whether name occurs at least once.
func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Len returns the number of fields.
func (h *Headers) Len() int { return len(h.fields) }

// Each iterates fields in insertion order; it stops early if fn returns
// false.
func (h *Headers) Each(fn func(name, value string) bool) {
	for _, f := range h.fields {
		if !fn(f.name, f.value) {
			return
		}
	}
}

// serialize renders the header block to wire form: one "Name: Value\r\n"
// line per field in insertion order, followed by a blank line.
func (h *Headers) serialize() []byte {
	var b strings.Builder
	for _, f := range h.fields {
		b.WriteString(f.name)
		b.WriteString(": ")
		b.WriteString(f.value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (h *Headers) ensureRendered() *Simple {
	if h.rendered == nil {
		h.rendered = NewSimpleOwn(h.serialize())
	}
	return h.rendered
}

// Read implements Bucket by streaming the serialized wire form.
func (h *Headers) Read(max int) (View, Status, error) {
	if h.destroyed {
		return View{}, Err, ErrMisuse()
	}
	return h.ensureRendered().Read(max)
}

// Peek implements Bucket.
func (h *Headers) Peek() (View, Status, error) {
	if h.destroyed {
		return View{}, Err, ErrMisuse()
	}
	return h.ensureRendered().Peek()
}

// ReadLine implements Bucket.
func (h *Headers) ReadLine(mask Mask) (View, LineEnding, Status, error) {
	if h.destroyed {
		return View{}, LineNone, Err, ErrMisuse()
	}
	return h.ensureRendered().ReadLine(mask)
}

// ReadIovec implements Bucket.
func (h *Headers) ReadIovec(max, maxVectors int) ([][]byte, Status, error) {
	if h.destroyed {
		return nil, Err, ErrMisuse()
	}
	return h.ensureRendered().ReadIovec(max, maxVectors)
}

// Destroy implements Bucket.
func (h *Headers) Destroy() error {
	if h.destroyed {
		return nil
	}
	h.destroyed = true
	if h.rendered != nil {
		_ = h.rendered.Destroy()
		h.rendered = nil
	}
	h.fields = nil
	return nil
}
