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

var searchCmd = &cobra.Command{
	Use:   "search-terms <dataset> <plaintext>",
	Short: "Encrypt plaintext under every active key version of a dataset",
	Long: `search-terms produces one structured ciphertext per currently active
key version of a dataset, for use as search terms against a store whose
encrypted values may have been written under any of those versions.`,
	Example: `  ubiq-sample search-terms SSN "123-45-6789"`,
	Args:    cobra.ExactArgs(2),
	RunE:    runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cl, err := newClient()
	if err != nil {
		return err
	}
	defer func() {
		if err := cl.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: flushing usage events: %v\n", err)
		}
	}()

	results, err := cl.EncryptForSearch(args[1], args[0])
	if err != nil {
		return fmt.Errorf("search-terms: %w", err)
	}

	for _, r := range results {
		fmt.Println(r)
	}
	return nil
}
