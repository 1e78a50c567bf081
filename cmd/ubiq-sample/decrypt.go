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

var decryptDataset string

var decryptCmd = &cobra.Command{
	Use:   "decrypt <ciphertext>",
	Short: "Decrypt a string produced by encrypt",
	Example: `  ubiq-sample decrypt "<base64 ciphertext>"
  ubiq-sample decrypt --dataset SSN "456-12-9876"`,
	Args: cobra.ExactArgs(1),
	RunE: runDecrypt,
}

func init() {
	rootCmd.AddCommand(decryptCmd)
	decryptCmd.Flags().StringVarP(&decryptDataset, "dataset", "d", "", "dataset name used at encryption time")
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	cl, err := newClient()
	if err != nil {
		return err
	}
	defer func() {
		if err := cl.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: flushing usage events: %v\n", err)
		}
	}()

	var plaintext string
	if decryptDataset != "" {
		plaintext, err = cl.Decrypt(args[0], decryptDataset)
	} else {
		plaintext, err = cl.Decrypt(args[0])
	}
	if err != nil {
		return fmt.Errorf("decrypt: %w", err)
	}

	fmt.Println(plaintext)
	return nil
}
