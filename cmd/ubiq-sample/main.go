// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	credsPath  string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "ubiq-sample",
	Short: "ubiq-sample exercises the KMS client library from the command line",
	Long: `ubiq-sample is a reference CLI over the Ubiq crypto client library.

It supports:
- Unstructured (AEAD) encrypt/decrypt of arbitrary text
- Structured (format-preserving) encrypt/decrypt for a named dataset
- Priming the key cache for one or more datasets ahead of first use`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&credsPath, "creds", "", "path to a .env credentials file (default: UBIQ_* environment variables)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config directory (default: ./config; built-in defaults when it holds no config file)")

	// Commands are registered in their respective files:
	// - encrypt.go: encryptCmd
	// - decrypt.go: decryptCmd
	// - search.go: searchCmd
	// - prime.go: primeCmd
}
