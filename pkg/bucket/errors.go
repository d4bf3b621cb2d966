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

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	format = "bucket: " + format
	return errors.Errorf(format, args...)
}

// Status codes surfaced at the API boundary (spec §6), beyond the plain
// Status tri-category above.
var (
	// ErrTruncatedResponse: the body ended before framing said it should.
	ErrTruncatedResponse = newError("truncated response")

	// ErrLineTooLong: a single line exceeded the parser's line buffer.
	ErrLineTooLong = newError("line too long")

	// ErrParseError: malformed status line, header line, or chunk size.
	ErrParseError = newError("parse error")

	// ErrSSLSetupFailed: TLS failure during handshake.
	ErrSSLSetupFailed = newError("ssl setup failed")

	// ErrSSLCommFailed: TLS failure after handshake completed.
	ErrSSLCommFailed = newError("ssl communication failed")

	// ErrSSLCertFailed: certificate verification failed and no callback
	// overrode it.
	ErrSSLCertFailed = newError("ssl certificate verification failed")

	// ErrSSLNegotiateInProgress: a renegotiation attempt was observed on
	// a connection that forbids it (pipelining in use).
	ErrSSLNegotiateInProgress = newError("ssl renegotiation in progress")

	// ErrWaitForConnection: the encrypt path needs to read from the
	// transport before it can make further progress.
	ErrWaitForConnection = newError("waiting for connection to become readable")

	// ErrNotImplemented: optional capability not implemented by this
	// variant.
	ErrNotImplemented = newError("not implemented")
)

// Kind classifies errors per spec §7's taxonomy, not by Go type but by
// recoverability.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransient
	KindData
	KindTLSRecoverable
	KindTLSFatal
	KindProgrammer
)

// Classify maps a sentinel error (or one wrapping it) to its Kind. Errors
// not in the table classify as KindUnknown.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrWaitForConnection):
		return KindTransient
	case errors.Is(err, ErrTruncatedResponse),
		errors.Is(err, ErrLineTooLong),
		errors.Is(err, ErrParseError):
		return KindData
	case errors.Is(err, ErrSSLCertFailed):
		return KindTLSRecoverable
	case errors.Is(err, ErrSSLSetupFailed),
		errors.Is(err, ErrSSLCommFailed),
		errors.Is(err, ErrSSLNegotiateInProgress):
		return KindTLSFatal
	case errors.Is(err, errMisuse):
		return KindProgrammer
	default:
		return KindUnknown
	}
}

// IsFatal reports whether err should latch a TLS context so that every
// subsequent read returns it unchanged rather than attempting more I/O.
func IsFatal(err error) bool {
	k := Classify(err)
	return k == KindTLSFatal
}
