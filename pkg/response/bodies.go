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

package response

import "github.com/packetd/bucketpipe/pkg/bucket"

// contentLengthBody passes through at most n bytes from src, then
// reports end-of-stream; if src ends before n bytes are delivered, it
// latches bucket.ErrTruncatedResponse.
type contentLengthBody struct {
	src       bucket.Bucket
	remaining int
	latched   error
	destroyed bool
}

func newContentLengthBody(src bucket.Bucket, n int) *contentLengthBody {
	return &contentLengthBody{src: src, remaining: n}
}

func (b *contentLengthBody) Read(max int) (bucket.View, bucket.Status, error) {
	if b.destroyed {
		return bucket.View{}, bucket.Err, bucket.ErrMisuse()
	}
	if b.latched != nil {
		return bucket.View{}, bucket.Err, b.latched
	}
	if b.remaining == 0 {
		return bucket.View{}, bucket.EOF, nil
	}

	readMax := b.remaining
	if max != bucket.ReadAll && max < readMax {
		readMax = max
	}
	view, status, err := b.src.Read(readMax)
	if status == bucket.Err {
		b.latched = err
		return view, status, err
	}
	b.remaining -= view.Len()

	if status == bucket.EOF && b.remaining > 0 {
		b.latched = bucket.ErrTruncatedResponse
		if view.Len() > 0 {
			return view, bucket.More, nil
		}
		return bucket.View{}, bucket.Err, b.latched
	}
	if b.remaining == 0 {
		return view, bucket.EOF, nil
	}
	return view, bucket.More, nil
}

func (b *contentLengthBody) Peek() (bucket.View, bucket.Status, error) {
	if b.destroyed {
		return bucket.View{}, bucket.Err, bucket.ErrMisuse()
	}
	if b.latched != nil {
		return bucket.View{}, bucket.Err, b.latched
	}
	if b.remaining == 0 {
		return bucket.View{}, bucket.EOF, nil
	}
	view, status, err := b.src.Peek()
	if status == bucket.Err {
		return view, status, err
	}
	if len(view.B) > b.remaining {
		view.B = view.B[:b.remaining]
	}
	if len(view.B) == b.remaining {
		return view, bucket.EOF, nil
	}
	return view, bucket.More, nil
}

func (b *contentLengthBody) ReadLine(mask bucket.Mask) (bucket.View, bucket.LineEnding, bucket.Status, error) {
	return bucket.DefaultReadLine(b, mask)
}

func (b *contentLengthBody) ReadIovec(max, maxVectors int) ([][]byte, bucket.Status, error) {
	return bucket.DefaultReadIovec(b, max, maxVectors)
}

func (b *contentLengthBody) Destroy() error {
	b.destroyed = true
	return nil
}

// closeDelimitedBody passes through src unchanged; src's own
// end-of-stream is the body terminator, never truncation.
type closeDelimitedBody struct {
	src       bucket.Bucket
	destroyed bool
}

func newCloseDelimitedBody(src bucket.Bucket) *closeDelimitedBody {
	return &closeDelimitedBody{src: src}
}

func (b *closeDelimitedBody) Read(max int) (bucket.View, bucket.Status, error) {
	if b.destroyed {
		return bucket.View{}, bucket.Err, bucket.ErrMisuse()
	}
	return b.src.Read(max)
}

func (b *closeDelimitedBody) Peek() (bucket.View, bucket.Status, error) {
	if b.destroyed {
		return bucket.View{}, bucket.Err, bucket.ErrMisuse()
	}
	return b.src.Peek()
}

func (b *closeDelimitedBody) ReadLine(mask bucket.Mask) (bucket.View, bucket.LineEnding, bucket.Status, error) {
	return bucket.DefaultReadLine(b, mask)
}

func (b *closeDelimitedBody) ReadIovec(max, maxVectors int) ([][]byte, bucket.Status, error) {
	return b.src.ReadIovec(max, maxVectors)
}

func (b *closeDelimitedBody) Destroy() error {
	b.destroyed = true
	return nil
}
