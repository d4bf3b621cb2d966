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
	"crypto/tls"
	"crypto/x509"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/bucketpipe/pkg/bucket"
)

// CertFailureBits classifies a certificate verification outcome, mirroring
// ssl_buckets.c's SSL_X509_STORE_lookup_crl-era callback dispatch
// (not-yet-valid/expired/self-signed/unknown-ca/revoked/no-crl/
// invalid-host/unknown-failure).
type CertFailureBits uint16

const (
	CertNotYetValid CertFailureBits = 1 << iota
	CertExpired
	CertSelfSigned
	CertUnknownCA
	CertRevoked
	CertNoCRL
	CertInvalidHost
	CertUnknownFailure
)

// CertCallback is invoked when verification observes any failure bit
// (other than the advisory CertNoCRL). Returning true overrides the
// failure and lets the handshake proceed.
type CertCallback func(bits CertFailureBits, leaf *x509.Certificate) bool

// verifyConnection implements crypto/tls's VerifyConnection hook,
// performing its own classification instead of deferring to the
// library's default chain verification (which tls.Config.
// InsecureSkipVerify disables so this is the only check that runs).
func (ctx *Context) verifyConnection(cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return newError("no peer certificate presented")
	}
	leaf := cs.PeerCertificates[0]
	now := time.Now()

	var bits CertFailureBits
	if now.Before(leaf.NotBefore) {
		bits |= CertNotYetValid
	}
	if now.After(leaf.NotAfter) {
		bits |= CertExpired
	}
	if leaf.Issuer.String() == leaf.Subject.String() && leaf.CheckSignatureFrom(leaf) == nil {
		bits |= CertSelfSigned
	}

	intermediates := x509.NewCertPool()
	for _, c := range cs.PeerCertificates[1:] {
		intermediates.AddCert(c)
	}
	chains, verifyErr := leaf.Verify(x509.VerifyOptions{
		Roots:         ctx.roots,
		Intermediates: intermediates,
		CurrentTime:   now,
	})
	if verifyErr != nil {
		var unknownAuth x509.UnknownAuthorityError
		if errors.As(verifyErr, &unknownAuth) {
			bits |= CertUnknownCA
		} else if bits == 0 {
			bits |= CertUnknownFailure
		}
	}

	// crypto/tls performs no CRL or OCSP check on its own and this bridge
	// has no revocation source wired in, so revocation is never asserted
	// either way: CertNoCRL is always raised as an advisory bit alongside
	// whatever else failed, rather than silently treating "unchecked" as
	// "not revoked".
	bits |= CertNoCRL

	if ctx.hostname != "" && !hostnameMatches(leaf, ctx.hostname) {
		bits |= CertInvalidHost
	}

	if bits&^CertNoCRL == 0 {
		return nil
	}

	if ctx.certCallback != nil && ctx.certCallback(bits, leaf) {
		return nil
	}
	if len(chains) > 0 && bits&^(CertNoCRL|CertInvalidHost) == 0 && ctx.hostname == "" {
		return nil
	}

	ctx.pendingErr = bucket.ErrSSLCertFailed
	return ctx.pendingErr
}

// hostnameMatches implements the spec's resolved open question: SAN DNS
// entries are checked first, falling back to the CN only when no SAN
// entries are present at all. No wildcard or IP-address SAN matching is
// performed (documented gap, not a TODO — see DESIGN.md).
func hostnameMatches(leaf *x509.Certificate, hostname string) bool {
	if len(leaf.DNSNames) > 0 {
		for _, san := range leaf.DNSNames {
			if strings.EqualFold(san, hostname) {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(leaf.Subject.CommonName, hostname)
}
