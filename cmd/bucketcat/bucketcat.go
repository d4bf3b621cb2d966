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
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/packetd/bucketpipe/common"
	"github.com/packetd/bucketpipe/logger"
	"github.com/packetd/bucketpipe/pkg/bucket"
	"github.com/packetd/bucketpipe/pkg/databuf"
	"github.com/packetd/bucketpipe/pkg/response"
	"github.com/packetd/bucketpipe/pkg/tlsbridge"
)

var (
	flagTLS        bool
	flagServerName string
	flagMethod     string
	flagPath       string
	flagHost       string
	flagTimeout    time.Duration
	flagHead       bool
	flagConfig     string
)

// Command returns the "bucketcat" cobra command, for registration by the
// root command.
func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "bucketcat <host:port>",
		Short: "Send a single HTTP/1.1 request and decode the response via pkg/response",
		Long: "bucketcat dials a TCP (optionally TLS) connection to the given address, " +
			"writes one HTTP/1.1 request, and decodes the response through the " +
			"databuf -> tlsbridge -> response bucket pipeline, printing the parsed " +
			"status line, headers and body.",
		Args: cobra.ExactArgs(1),
		RunE: run,
	}
	c.Flags().BoolVar(&flagTLS, "tls", false, "negotiate TLS on the connection before sending the request")
	c.Flags().StringVar(&flagServerName, "servername", "", "TLS ServerName (SNI); defaults to the connection host")
	c.Flags().StringVar(&flagMethod, "method", "GET", "HTTP method")
	c.Flags().StringVar(&flagPath, "path", "/", "HTTP request path")
	c.Flags().StringVar(&flagHost, "host-header", "", "Host header value; defaults to the connection host")
	c.Flags().BoolVar(&flagHead, "head", false, "treat the request as HEAD (no body expected regardless of Content-Length)")
	c.Flags().DurationVar(&flagTimeout, "timeout", 10*time.Second, "dial and I/O deadline")
	c.Flags().StringVar(&flagConfig, "config", "", "optional YAML file of request defaults (see requestDefaults); explicit flags still win")
	return c
}

func run(cmd *cobra.Command, args []string) error {
	if flagConfig != "" {
		if err := applyConfigFile(cmd, flagConfig); err != nil {
			return fmt.Errorf("load config %s: %w", flagConfig, err)
		}
	}

	addr := args[0]
	host := flagHost
	if host == "" {
		if h, _, err := net.SplitHostPort(addr); err == nil {
			host = h
		} else {
			host = addr
		}
	}

	conn, err := net.DialTimeout("tcp", addr, flagTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(flagTimeout))

	reqLine := fmt.Sprintf("%s %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n",
		flagMethod, flagPath, host)

	var src bucket.Bucket
	if flagTLS {
		serverName := flagServerName
		if serverName == "" {
			serverName = host
		}
		src, err = runTLS(conn, serverName, reqLine)
	} else {
		if _, werr := conn.Write([]byte(reqLine)); werr != nil {
			return fmt.Errorf("write request: %w", werr)
		}
		src = databuf.New(netReader{conn: conn}.read, common.ReadWriteBlockSize, nil)
	}
	if err != nil {
		return err
	}

	return printResponse(src)
}

// runTLS performs the handshake-over-bucket wiring described in
// pkg/tlsbridge's design notes: a databuf-wrapped raw socket reader
// becomes the decrypt façade's ciphertext source, the request is pushed
// through the encrypt façade's source aggregate, and whatever ciphertext
// the engine produces is written straight to the socket. crypto/tls
// drives its own handshake the first time either façade is read.
func runTLS(conn net.Conn, serverName, reqLine string) (bucket.Bucket, error) {
	rawSource := databuf.New(netReader{conn: conn}.read, common.ReadWriteBlockSize, nil)
	ctx := tlsbridge.NewContext(rawSource, tlsbridge.Options{
		IsClient:   true,
		ServerName: serverName,
		CertCallback: func(bits tlsbridge.CertFailureBits, leaf *x509.Certificate) bool {
			logger.Warnf("bucketcat: accepting certificate for %s despite failure bits %v", serverName, bits)
			return true
		},
	})
	enc := tlsbridge.NewEncrypt(ctx)
	dec := tlsbridge.NewDecrypt(ctx)

	enc.Source().Append(bucket.NewSimpleOwn([]byte(reqLine)))

	// Drive the encrypt façade until it has nothing left to produce right
	// now: sslEncrypt never reports EOF on its own (the engine can always
	// accept more pipelined plaintext later), so WouldBlock-with-no-bytes
	// is "fully flushed for this request", not "stream over".
	for {
		view, status, err := enc.Read(bucket.ReadAll)
		if err != nil {
			return nil, fmt.Errorf("tls encrypt: %w", err)
		}
		if len(view.B) > 0 {
			if _, werr := conn.Write(view.B); werr != nil {
				return nil, fmt.Errorf("write ciphertext: %w", werr)
			}
			continue
		}
		if status == bucket.WouldBlock {
			break
		}
	}
	return dec, nil
}

func printResponse(src bucket.Bucket) error {
	p := response.NewParser(src)
	p.SetHeadRequest(flagHead)

	code, status, err := p.StatusCode()
	if err != nil {
		return fmt.Errorf("parse status line: %w", err)
	}
	if status != bucket.More {
		return fmt.Errorf("parse status line: unexpected status %v", status)
	}
	major, minor := p.Proto()
	fmt.Printf("HTTP/%d.%d %d %s\n", major, minor, code, p.Reason())

	headers, status, err := p.Headers()
	if err != nil {
		return fmt.Errorf("parse headers: %w", err)
	}
	if status != bucket.More {
		return fmt.Errorf("parse headers: unexpected status %v", status)
	}
	headers.Each(func(name, value string) bool {
		fmt.Printf("%s: %s\n", name, value)
		return true
	})
	fmt.Println()

	body := p.Body()
	if body == nil {
		return nil
	}
	for {
		view, status, err := body.Read(bucket.ReadAll)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		os.Stdout.Write(view.B)
		if status == bucket.EOF {
			break
		}
	}
	if trailers := p.Trailers(); trailers != nil && trailers.Len() > 0 {
		fmt.Fprintln(os.Stderr, "\ntrailers:")
		trailers.Each(func(name, value string) bool {
			fmt.Fprintf(os.Stderr, "%s: %s\n", name, value)
			return true
		})
	}
	return nil
}
