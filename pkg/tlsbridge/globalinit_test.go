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

package tlsbridge

import (
	"crypto/x509"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemRootsIdempotentUnderConcurrentInit(t *testing.T) {
	var wg sync.WaitGroup
	pools := make([]*x509.CertPool, 8)
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			pools[i] = SystemRoots()
		}()
	}
	wg.Wait()

	first := pools[0]
	for _, p := range pools[1:] {
		assert.Same(t, first, p)
	}
}
