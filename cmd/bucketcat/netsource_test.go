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

package bucketcat

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/bucketpipe/pkg/bucket"
)

func TestNetReaderReportsMoreOnData(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		server.Write([]byte("hello"))
	}()

	r := netReader{conn: client}
	buf := make([]byte, 16)
	n, status, err := r.read(buf)
	require.NoError(t, err)
	assert.Equal(t, bucket.More, status)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestNetReaderReportsEOFOnClose(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	server.Close()

	r := netReader{conn: client}
	buf := make([]byte, 16)
	n, status, err := r.read(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, bucket.EOF, status)
}

func TestNetReaderReportsErrOnHardFailure(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	client.Close() // closing the reading side itself yields a hard error, not EOF

	r := netReader{conn: client}
	buf := make([]byte, 16)
	_, status, err := r.read(buf)
	assert.Equal(t, bucket.Err, status)
	assert.Error(t, err)
}
