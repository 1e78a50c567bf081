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

// Package httpclient is a signed HTTP client for the KMS wire protocol: it
// attaches an HMAC-SHA512 Signature header (in the style of RFC 9421
// message signatures) to every request, and offers a fire-and-forget
// PostAsync for usage-event reporting.
package httpclient

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ubiqsecurity/ubiq-go/internal/logger"
)

// Result is the normalized shape every signed request returns.
type Result struct {
	Status      int
	ContentType string
	Content     []byte
}

// Success reports whether Status is one of the KMS's accepted 2xx codes.
func (r Result) Success() bool {
	return r.Status == http.StatusOK || r.Status == http.StatusCreated
}

// SignedClient issues HTTP requests signed with an HMAC-SHA512 canonical
// string, per the keyId/algorithm/created/headers/signature scheme the KMS
// expects.
type SignedClient struct {
	papi string
	sapi string

	httpClient *http.Client
}

// New returns a SignedClient that signs requests with keyID/secret.
func New(keyID, secret string) *SignedClient {
	return &SignedClient{
		papi:       keyID,
		sapi:       secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithTimeout overrides the client's request timeout.
func (c *SignedClient) WithTimeout(d time.Duration) *SignedClient {
	c.httpClient.Timeout = d
	return c
}

// Get issues a signed GET request.
func (c *SignedClient) Get(rawURL string) (Result, error) {
	return c.do(http.MethodGet, rawURL, nil, "")
}

// Post issues a signed POST request with body of content type ctype.
func (c *SignedClient) Post(rawURL string, body []byte, ctype string) (Result, error) {
	return c.do(http.MethodPost, rawURL, body, ctype)
}

// Patch issues a signed PATCH request with body of content type ctype.
func (c *SignedClient) Patch(rawURL string, body []byte, ctype string) (Result, error) {
	return c.do(http.MethodPatch, rawURL, body, ctype)
}

// PostAsync signs and sends a POST but does not wait for or observe the
// response. It returns once the request has been dispatched to a detached
// goroutine; transport failures in that goroutine are swallowed by design
// (this is used for best-effort usage-event reporting).
func (c *SignedClient) PostAsync(rawURL string, body []byte, ctype string) {
	req, err := c.buildRequest(http.MethodPost, rawURL, body, ctype)
	if err != nil {
		logger.Debug("httpclient: async post build failed", logger.Error(err))
		return
	}

	go func() {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			logger.Debug("httpclient: async post failed", logger.Error(err))
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
	}()
}

func (c *SignedClient) do(method, rawURL string, body []byte, ctype string) (Result, error) {
	req, err := c.buildRequest(method, rawURL, body, ctype)
	if err != nil {
		return Result{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("httpclient: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("httpclient: reading response: %w", err)
	}

	return Result{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

func (c *SignedClient) buildRequest(method, rawURL string, body []byte, ctype string) (*http.Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("httpclient: invalid url: %w", err)
	}

	req, err := http.NewRequest(method, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}
	if len(body) > 0 {
		req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	}
	req.Header.Set("Host", u.Host)
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Digest", digestHeader(body))

	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	logger.Debug("httpclient: dispatching request",
		logger.String("request_id", requestID),
		logger.String("method", method),
		logger.String("path", u.Path))

	created := time.Now().Unix()
	target := strings.ToLower(requestTarget(method, u))

	names, values := canonicalFields(created, target, req)
	signingString := buildSigningString(names, values)
	signature := sign(c.sapi, signingString)

	req.Header.Set("Signature", fmt.Sprintf(
		`keyId="%s", algorithm="hmac-sha512", created=%d, headers="%s", signature="%s"`,
		c.papi, created, strings.Join(names, " "), signature,
	))

	return req, nil
}

func requestTarget(method string, u *url.URL) string {
	path := u.Path
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return fmt.Sprintf("%s %s", method, path)
}

// canonicalFields builds the ordered (name, value) pairs signed into the
// request: (created), (request-target), content-length, content-type,
// date, digest, host — any pair absent from the request is omitted.
func canonicalFields(created int64, target string, req *http.Request) ([]string, []string) {
	candidates := []struct {
		name  string
		value string
	}{
		{"(created)", strconv.FormatInt(created, 10)},
		{"(request-target)", target},
		{"content-length", req.Header.Get("Content-Length")},
		{"content-type", req.Header.Get("Content-Type")},
		{"date", req.Header.Get("Date")},
		{"digest", req.Header.Get("Digest")},
		{"host", req.Header.Get("Host")},
	}

	names := make([]string, 0, len(candidates))
	values := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.value == "" && c.name != "(created)" {
			continue
		}
		names = append(names, c.name)
		values = append(values, c.value)
	}
	return names, values
}

func buildSigningString(names, values []string) string {
	var b strings.Builder
	for i, name := range names {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(values[i])
		b.WriteString("\n")
	}
	return b.String()
}

func sign(secret, signingString string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(signingString))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func digestHeader(body []byte) string {
	sum := sha512.Sum512(body)
	return "SHA-512=" + base64.StdEncoding.EncodeToString(sum[:])
}
