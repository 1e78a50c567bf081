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

package unstructured

import (
	"errors"

	"github.com/ubiqsecurity/ubiq-go/credentials"
)

// ErrState is returned when Begin/Update/End are called out of order.
var ErrState = errors.New("unstructured: invalid call sequence")

// ErrPiecewiseUnsupported is returned by Update on its second call: the
// underlying AEAD mode has no streaming support, so a piecewise session
// accepts exactly one Update.
var ErrPiecewiseUnsupported = errors.New("unstructured: piecewise update may only be called once")

type piecewiseState int

const (
	stateIdle piecewiseState = iota
	stateBegun
	stateUpdated
)

// Encryptor is a stateful wrapper over Seal that mimics the begin/update/end
// shape of a streaming cipher, even though a single Update call does all the
// work (AES-GCM here has no streaming API).
type Encryptor struct {
	pipeline *Pipeline
	creds    credentials.Credentials
	state    piecewiseState
	result   []byte
}

// NewEncryptor returns an Encryptor bound to creds, ready for Begin.
func (p *Pipeline) NewEncryptor(creds credentials.Credentials) *Encryptor {
	return &Encryptor{pipeline: p, creds: creds}
}

// Begin starts a piecewise encryption session. Calling it twice raises
// ErrState.
func (e *Encryptor) Begin() error {
	if e.state != stateIdle {
		return ErrState
	}
	e.state = stateBegun
	return nil
}

// Update encrypts plaintext in full and stashes the result for End. It may
// only be called once per session.
func (e *Encryptor) Update(plaintext []byte) error {
	if e.state == stateIdle {
		return ErrState
	}
	if e.state == stateUpdated {
		return ErrPiecewiseUnsupported
	}
	out, err := e.pipeline.Encrypt(e.creds, plaintext)
	if err != nil {
		return err
	}
	e.result = out
	e.state = stateUpdated
	return nil
}

// End returns the ciphertext produced by Update and resets the session.
func (e *Encryptor) End() ([]byte, error) {
	if e.state != stateUpdated {
		return nil, ErrState
	}
	out := e.result
	e.result = nil
	e.state = stateIdle
	return out, nil
}

// Decryptor is the piecewise counterpart of Encryptor, built on Open.
type Decryptor struct {
	pipeline *Pipeline
	creds    credentials.Credentials
	state    piecewiseState
	result   []byte
}

// NewDecryptor returns a Decryptor bound to creds, ready for Begin.
func (p *Pipeline) NewDecryptor(creds credentials.Credentials) *Decryptor {
	return &Decryptor{pipeline: p, creds: creds}
}

// Begin starts a piecewise decryption session.
func (d *Decryptor) Begin() error {
	if d.state != stateIdle {
		return ErrState
	}
	d.state = stateBegun
	return nil
}

// Update authenticates and decrypts ciphertext in full. It may only be
// called once per session.
func (d *Decryptor) Update(ciphertext []byte) error {
	if d.state == stateIdle {
		return ErrState
	}
	if d.state == stateUpdated {
		return ErrPiecewiseUnsupported
	}
	out, err := d.pipeline.Decrypt(d.creds, ciphertext)
	if err != nil {
		return err
	}
	d.result = out
	d.state = stateUpdated
	return nil
}

// End returns the plaintext produced by Update and resets the session.
func (d *Decryptor) End() ([]byte, error) {
	if d.state != stateUpdated {
		return nil, ErrState
	}
	out := d.result
	d.result = nil
	d.state = stateIdle
	return out, nil
}
