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

// Package bucketcat is a small demonstration client wiring pkg/databuf,
// pkg/tlsbridge and pkg/response together end to end over a real TCP or
// TLS socket: it is the coverage boundary pkg/tlsbridge's design notes
// call out for the handshake path that isn't exercised by a hermetic
// unit test.
package bucketcat

import (
	"io"
	"net"

	"github.com/packetd/bucketpipe/pkg/bucket"
)

// netReader adapts a net.Conn's Read into a databuf.ReaderFunc. Unlike
// the bucket contract's usual non-blocking sources, it blocks inside the
// call the way a plain CLI tool reading a socket always has: there is no
// event loop on the other side waiting to be given control back, so
// WouldBlock never needs to be reported.
type netReader struct {
	conn net.Conn
}

func (r netReader) read(out []byte) (int, bucket.Status, error) {
	n, err := r.conn.Read(out)
	switch {
	case err == nil:
		return n, bucket.More, nil
	case err == io.EOF:
		return n, bucket.EOF, nil
	default:
		return n, bucket.Err, err
	}
}
