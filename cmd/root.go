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

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packetd/bucketpipe/cmd/bucketcat"
	"github.com/packetd/bucketpipe/common"
)

var rootCmd = &cobra.Command{
	Use:     common.App,
	Short:   "bucketpipe: pull-driven streaming decode pipeline library",
	Version: common.Version,
}

func init() {
	rootCmd.AddCommand(bucketcat.Command())
}

// Execute runs the root command; on error it prints the error to stderr
// and exits the process with status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
