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

import "github.com/mitchellh/mapstructure"

// Config is the opaque shared configuration installed via set-config
// (spec §4.1, §6). Buckets that care about specific keys decode them
// with As; composite buckets forward the raw Config to their children
// unchanged.
type Config struct {
	raw map[string]any
}

// NewConfig wraps an already-built key/value map as a Config.
func NewConfig(raw map[string]any) *Config {
	return &Config{raw: raw}
}

// Get returns the raw value for key and whether it was present.
func (c *Config) Get(key string) (any, bool) {
	if c == nil || c.raw == nil {
		return nil, false
	}
	v, ok := c.raw[key]
	return v, ok
}

// As decodes the whole config into dst (a pointer to a struct tagged
// with `mapstructure:"..."`), the way connection-level options are
// turned into typed fields on a single decode pass.
func (c *Config) As(dst any) error {
	if c == nil || c.raw == nil {
		return nil
	}
	return mapstructure.Decode(c.raw, dst)
}

// WellKnown holds the configuration keys spec §6 names explicitly.
type WellKnown struct {
	// ConnectionPipelining, when true, installs the renegotiation-
	// detecting hook on the TLS bridge (spec §6: "connection-pipelining").
	ConnectionPipelining bool `mapstructure:"connection-pipelining"`
}

// ParseWellKnown decodes the "connection-pipelining" ∈ {"Y","N"} key
// spec §6 requires, tolerating both the string and bool spellings.
func ParseWellKnown(c *Config) WellKnown {
	var wk WellKnown
	if c == nil {
		return wk
	}
	if v, ok := c.Get("connection-pipelining"); ok {
		switch t := v.(type) {
		case string:
			wk.ConnectionPipelining = t == "Y" || t == "y"
		case bool:
			wk.ConnectionPipelining = t
		}
	}
	return wk
}
