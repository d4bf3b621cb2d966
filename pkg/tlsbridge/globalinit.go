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
	"sync/atomic"
	"time"
)

type initState int32

const (
	stateUninit initState = iota
	stateBusy
	stateDone
)

var globalState int32 // one of initState, accessed only via atomic ops

var systemRoots *x509.CertPool

// ensureGlobalInit performs process-wide TLS engine initialization
// exactly once, modeled on apr_ssl_init's three-state atomic
// {uninitialized, busy, done} (spec §5, §9): the first caller
// transitions uninit -> busy, does the one-time work, then busy -> done;
// concurrent callers observe busy and spin-sleep in millisecond-class
// units until done. crypto/tls needs no per-lock mutex table the way
// OpenSSL < 1.1 does, so the one-time work here is loading and caching
// the process's system root CA pool.
func ensureGlobalInit() {
	for {
		if atomic.CompareAndSwapInt32(&globalState, int32(stateUninit), int32(stateBusy)) {
			roots, err := x509.SystemCertPool()
			if err != nil || roots == nil {
				roots = x509.NewCertPool()
			}
			systemRoots = roots
			atomic.StoreInt32(&globalState, int32(stateDone))
			return
		}
		if atomic.LoadInt32(&globalState) == int32(stateDone) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// SystemRoots returns the process-wide cached system root CA pool,
// triggering global initialization on first call.
func SystemRoots() *x509.CertPool {
	ensureGlobalInit()
	return systemRoots
}
