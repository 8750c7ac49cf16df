/*
 * Copyright (C) 2019 The "MysteriumNetwork/node" Authors.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package logconfig

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	timestampFmt = "2006-01-02T15:04:05.000"
)

// LogOptions log options
type LogOptions struct {
	LogLevel zerolog.Level
	LogHTTP  bool
	// Filepath is the log file path without extension, empty disables file logging
	Filepath string
}

// CurrentLogOptions are the options applied by the last Configure call
var CurrentLogOptions = LogOptions{
	LogLevel: zerolog.DebugLevel,
}

// Bootstrap configures logger defaults (console)
func Bootstrap() {
	var trimPrefixes = []string{
		"/vendor",
		"/go/pkg/mod",
	}
	cwd, _ := os.Getwd()
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
		relFile := strings.TrimPrefix(file, cwd)
		for i := range trimPrefixes {
			relFile = trimLeftInclusive(relFile, trimPrefixes[i])
		}
		return fmt.Sprintf("%-41v", relFile+":"+strconv.Itoa(line))
	}

	logger := makeLogger(consoleWriter(), zerolog.DebugLevel)
	setGlobalLogger(&logger)
}

// Configure configures logger using app config (console + file, level)
func Configure(opts *LogOptions) {
	CurrentLogOptions = *opts
	writer := consoleWriter()
	if opts.Filepath != "" {
		fw, err := newRollingWriter(opts.Filepath)
		if err != nil {
			log.Error().Err(err).Msg("Failed to configure file logger")
		} else {
			if err := fw.cleanObsoleteLogs(); err != nil {
				log.Warn().Err(err).Msg("Failed to clean obsolete log files")
			}
			writer = io.MultiWriter(writer, fw.zeroLogger())
		}
	}

	logger := makeLogger(writer, opts.LogLevel)
	setGlobalLogger(&logger)
	log.Info().Msgf("Log level: %s", opts.LogLevel)
	if opts.Filepath != "" {
		log.Info().Msg("Log file path: " + opts.Filepath)
	}
}

func consoleWriter() io.Writer {
	return zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: timestampFmt,
	}
}

func makeLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Caller().
		Timestamp().
		Logger()
}

func setGlobalLogger(logger *zerolog.Logger) {
	log.Logger = *logger
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

// trimLeftInclusive trims left pat of the string up to and including the prefix
func trimLeftInclusive(s string, prefix string) string {
	start := strings.Index(s, prefix)
	if start != -1 {
		return s[start+len(prefix):]
	}
	return s
}
