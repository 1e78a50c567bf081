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

var encryptDataset string

var encryptCmd = &cobra.Command{
	Use:   "encrypt <plaintext>",
	Short: "Encrypt a string",
	Long: `Encrypt a string, either unstructured (AEAD, base64 output) or, with
--dataset, structured (format-preserving, same shape as the input).`,
	Example: `  ubiq-sample encrypt "hello, world"
  ubiq-sample encrypt --dataset SSN "123-45-6789"`,
	Args: cobra.ExactArgs(1),
	RunE: runEncrypt,
}

func init() {
	rootCmd.AddCommand(encryptCmd)
	encryptCmd.Flags().StringVarP(&encryptDataset, "dataset", "d", "", "dataset name for structured (format-preserving) encryption")
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	cl, err := newClient()
	if err != nil {
		return err
	}
	defer func() {
		if err := cl.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: flushing usage events: %v\n", err)
		}
	}()

	var ciphertext string
	if encryptDataset != "" {
		ciphertext, err = cl.Encrypt(args[0], encryptDataset)
	} else {
		ciphertext, err = cl.Encrypt(args[0])
	}
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	fmt.Println(ciphertext)
	return nil
}
