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
	"strings"

	"github.com/ubiqsecurity/ubiq-go"
	"github.com/ubiqsecurity/ubiq-go/config"
	"github.com/ubiqsecurity/ubiq-go/credentials"
	"github.com/ubiqsecurity/ubiq-go/internal/logger"
)

// newClient loads credentials and configuration the same way for every
// subcommand: an optional --creds .env file overlays the environment, an
// optional --config directory overlays the built-in defaults.
func newClient() (*ubiq.Client, error) {
	if credsPath != "" {
		if err := credentials.LoadDotEnv(credsPath); err != nil {
			return nil, fmt.Errorf("loading credentials file: %w", err)
		}
	}
	creds, err := credentials.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	opts := config.DefaultLoaderOptions()
	if configPath != "" {
		opts.ConfigDir = configPath
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger.GetDefaultLogger().SetLevel(parseLevel(cfg.Logging.Level))

	return ubiq.New(creds, cfg), nil
}

func parseLevel(s string) logger.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logger.DebugLevel
	case "warn", "warning":
		return logger.WarnLevel
	case "error", "fatal":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
