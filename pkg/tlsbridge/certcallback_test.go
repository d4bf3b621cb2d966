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
	"crypto/x509/pkix"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostnameMatchesPrefersSANOverCN(t *testing.T) {
	cert := &x509.Certificate{
		DNSNames: []string{"api.example.test", "www.example.test"},
		Subject:  pkix.Name{CommonName: "unrelated.test"},
	}
	assert.True(t, hostnameMatches(cert, "api.example.test"))
	assert.True(t, hostnameMatches(cert, "WWW.EXAMPLE.TEST"))
	// CN is ignored once any SAN entries are present.
	assert.False(t, hostnameMatches(cert, "unrelated.test"))
}

func TestHostnameMatchesFallsBackToCNWithNoSAN(t *testing.T) {
	cert := &x509.Certificate{
		Subject: pkix.Name{CommonName: "legacy.example.test"},
	}
	assert.True(t, hostnameMatches(cert, "legacy.example.test"))
	assert.False(t, hostnameMatches(cert, "other.test"))
}

func TestHostnameMatchesNoWildcardSupport(t *testing.T) {
	cert := &x509.Certificate{DNSNames: []string{"*.example.test"}}
	// Deliberate gap per spec §9's open question: wildcard matching is
	// not implemented.
	assert.False(t, hostnameMatches(cert, "api.example.test"))
}
