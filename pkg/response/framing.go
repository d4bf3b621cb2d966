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

import (
	"strconv"
	"strings"

	"github.com/packetd/bucketpipe/pkg/bucket"
)

// framingKind records how a response body is delimited, in the priority
// order transfer-encoding > content-length > close-delimited.
type framingKind int

const (
	framingChunked framingKind = iota
	framingContentLength
	framingCloseDelimited
)

// noBody reports whether status forbids a body regardless of any
// Content-Length header present (HEAD requests, 1xx, 204, 304).
func noBody(statusCode int, headRequest bool) bool {
	if headRequest {
		return true
	}
	if statusCode >= 100 && statusCode < 200 {
		return true
	}
	return statusCode == 204 || statusCode == 304
}

// decideFraming inspects already-parsed headers and picks the framing
// per spec §6's priority order. contentLength is only meaningful when
// kind == framingContentLength.
func decideFraming(h *bucket.Headers) (kind framingKind, contentLength int, err error) {
	if te, ok := h.Get("Transfer-Encoding"); ok && isChunked(te) {
		return framingChunked, 0, nil
	}

	if cl, ok := h.Get("Content-Length"); ok {
		n, perr := strconv.ParseInt(strings.TrimSpace(cl), 10, 63)
		if perr != nil || n < 0 {
			return 0, 0, bucket.ErrParseError
		}
		return framingContentLength, int(n), nil
	}

	return framingCloseDelimited, 0, nil
}

func isChunked(transferEncoding string) bool {
	for _, part := range strings.Split(transferEncoding, ",") {
		if strings.EqualFold(strings.TrimSpace(part), "chunked") {
			return true
		}
	}
	return false
}
