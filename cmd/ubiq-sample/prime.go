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

	"github.com/spf13/cobra"
)

var primeCmd = &cobra.Command{
	Use:     "prime-cache <dataset>...",
	Short:   "Warm the key cache for one or more datasets",
	Example: `  ubiq-sample prime-cache SSN CREDIT_CARD`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runPrime,
}

func init() {
	rootCmd.AddCommand(primeCmd)
}

func runPrime(cmd *cobra.Command, args []string) error {
	cl, err := newClient()
	if err != nil {
		return err
	}

	if err := cl.PrimeKeyCache(args...); err != nil {
		return fmt.Errorf("prime-cache: %w", err)
	}

	fmt.Printf("primed key cache for: %v\n", args)
	return cl.Close()
}
