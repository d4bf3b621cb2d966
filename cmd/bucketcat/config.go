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
	"time"

	"github.com/spf13/cobra"

	"github.com/packetd/bucketpipe/confengine"
)

// requestDefaults is the shape of the optional --config YAML file: a
// ucfg.Unpack target holding defaults a flag can still override, scaled
// down to this one request's worth of settings.
type requestDefaults struct {
	TLS        bool          `config:"tls"`
	ServerName string        `config:"servername"`
	Method     string        `config:"method"`
	Path       string        `config:"path"`
	HostHeader string        `config:"host_header"`
	Head       bool          `config:"head"`
	Timeout    time.Duration `config:"timeout"`
}

// applyConfigFile loads path via confengine and overwrites any flag on
// cmd that the user did not explicitly set with the file's value,
// leaving explicit flags in charge.
func applyConfigFile(cmd *cobra.Command, path string) error {
	conf, err := confengine.LoadConfigPath(path)
	if err != nil {
		return err
	}
	var d requestDefaults
	if err := conf.Unpack(&d); err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("tls") {
		flagTLS = d.TLS
	}
	if !flags.Changed("servername") && d.ServerName != "" {
		flagServerName = d.ServerName
	}
	if !flags.Changed("method") && d.Method != "" {
		flagMethod = d.Method
	}
	if !flags.Changed("path") && d.Path != "" {
		flagPath = d.Path
	}
	if !flags.Changed("host-header") && d.HostHeader != "" {
		flagHost = d.HostHeader
	}
	if !flags.Changed("head") {
		flagHead = d.Head
	}
	if !flags.Changed("timeout") && d.Timeout > 0 {
		flagTimeout = d.Timeout
	}
	return nil
}
