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

// Package dataset describes and fetches the named structured-encryption
// configurations ("datasets" / FFS definitions) that parameterize FF1, and
// tags plain unstructured requests with the same Kind so callers can branch
// on a single type instead of a class-name string.
package dataset

import "sort"

// Kind distinguishes a structured (format-preserving) dataset from the
// implicit unstructured one.
type Kind int

const (
	Unstructured Kind = iota
	Structured
)

// RuleType names a passthrough-rule kind.
type RuleType string

const (
	RulePrefix      RuleType = "prefix"
	RuleSuffix      RuleType = "suffix"
	RulePassthrough RuleType = "passthrough"
)

// PassthroughRule is one entry of a dataset's ordered deconstruct/reconstruct
// plan: a fixed-width prefix/suffix carve-out, or a verbatim-character
// passthrough step.
type PassthroughRule struct {
	Type     RuleType
	Value    int // width, for prefix/suffix; unused for passthrough
	Priority int
}

// Config holds the structured-encryption parameters for one dataset.
type Config struct {
	InputCharacterSet  string
	OutputCharacterSet string
	Passthrough        string
	PassthroughRules   []PassthroughRule
	TweakB64           string
	MinInputLength     int
	MaxInputLength     int
	MSBEncodingBits    int
}

// SortRules orders PassthroughRules by ascending Priority, as required at
// load time.
func (c *Config) SortRules() {
	sort.SliceStable(c.PassthroughRules, func(i, j int) bool {
		return c.PassthroughRules[i].Priority < c.PassthroughRules[j].Priority
	})
}

// Dataset is a named encryption target: either Unstructured (no Config) or
// Structured (Config is non-nil and fully populated).
type Dataset struct {
	Name      string
	GroupName string
	Kind      Kind
	Config    *Config
}

// IsStructured reports whether d carries a structured Config.
func (d Dataset) IsStructured() bool { return d.Kind == Structured }
