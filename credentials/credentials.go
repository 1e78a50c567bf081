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

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package credentials holds the caller's KMS access identity: the public
// API key, the HMAC signing secret, and the passphrase protecting the RSA
// private key used to unwrap data keys.
package credentials

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingCredentials is returned when a required field can't be resolved
// from the environment.
var ErrMissingCredentials = errors.New("credentials: missing or incomplete")

// DefaultHost is used when no server is configured.
const DefaultHost = "https://api.ubiqsecurity.com"

const (
	envAccessKeyID    = "UBIQ_ACCESS_KEY_ID"
	envSigningKey     = "UBIQ_SECRET_SIGNING_KEY"
	envCryptoAccess   = "UBIQ_SECRET_CRYPTO_ACCESS_KEY"
	envServer         = "UBIQ_SERVER"
)

// Credentials is the immutable identity a Client signs requests and
// unwraps keys with. Papi is the public API identifier (HMAC key id); Sapi
// is the HMAC signing secret; Srsa is the passphrase protecting the
// per-key RSA private key the KMS returns alongside each wrapped data key.
type Credentials struct {
	Papi string
	Sapi string
	Srsa string
	Host *url.URL
}

// New builds Credentials directly from caller-supplied values, applying the
// same host-normalization rules as FromEnv.
func New(papi, sapi, srsa, host string) (Credentials, error) {
	if papi == "" || sapi == "" || srsa == "" {
		return Credentials{}, fmt.Errorf("%w: papi, sapi and srsa are required", ErrMissingCredentials)
	}

	u, err := normalizeHost(host)
	if err != nil {
		return Credentials{}, fmt.Errorf("credentials: invalid host: %w", err)
	}
	return Credentials{Papi: papi, Sapi: sapi, Srsa: srsa, Host: u}, nil
}

// FromEnv builds Credentials from the four UBIQ_* environment variables.
func FromEnv() (Credentials, error) {
	return New(
		os.Getenv(envAccessKeyID),
		os.Getenv(envSigningKey),
		os.Getenv(envCryptoAccess),
		os.Getenv(envServer),
	)
}

// LoadDotEnv loads variables from a .env-style file into the process
// environment (test fixtures typically call this before FromEnv). It is a
// no-op if the file does not exist.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// normalizeHost fills in a default server when host is empty, and prepends
// "https://" to a bare hostname; a host that already carries a scheme
// (including "http://") is preserved as-is.
func normalizeHost(host string) (*url.URL, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	} else if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return url.Parse(host)
}
