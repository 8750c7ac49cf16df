/*
 * Copyright (C) 2021 The "MysteriumNetwork/node" Authors.
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
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/arthurkiller/rollingwriter"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// maxRemainLogs is the count of rolled log files kept next to the active one.
const maxRemainLogs = 5

type rollingWriter struct {
	config rollingwriter.Config
	fw     io.Writer
}

func newRollingWriter(filepath string) (*rollingWriter, error) {
	writer := &rollingWriter{
		config: rollingwriter.Config{
			TimeTagFormat:      "2006.01.02",
			LogPath:            path.Dir(filepath),
			FileName:           path.Base(filepath),
			RollingPolicy:      rollingwriter.TimeRolling,
			RollingTimePattern: "0 0 0 * * *",
			Compress:           true,
			WriterMode:         "lock",
			MaxRemain:          maxRemainLogs,
		},
	}
	fw, err := rollingwriter.NewWriterFromConfig(&writer.config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create rolling log writer")
	}
	writer.fw = fw
	return writer, nil
}

func (w *rollingWriter) zeroLogger() io.Writer {
	return zerolog.ConsoleWriter{
		Out:        w.fw,
		NoColor:    true,
		TimeFormat: timestampFmt,
	}
}

// cleanObsoleteLogs removes rolled files beyond MaxRemain. rollingwriter only
// counts files it rolled itself, so files left by previous runs pile up.
func (w *rollingWriter) cleanObsoleteLogs() error {
	entries, err := os.ReadDir(w.config.LogPath)
	if err != nil {
		return errors.Wrap(err, "failed to read log directory")
	}

	active := w.config.FileName + ".log"
	var rolled []os.FileInfo
	for _, entry := range entries {
		if entry.Name() == active || !strings.HasPrefix(entry.Name(), active) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return errors.Wrap(err, "failed to get log file info")
		}
		rolled = append(rolled, info)
	}
	if len(rolled) <= w.config.MaxRemain {
		return nil
	}

	sort.Slice(rolled, func(i, j int) bool {
		return rolled[i].ModTime().After(rolled[j].ModTime())
	})
	for _, info := range rolled[w.config.MaxRemain:] {
		if err := os.Remove(path.Join(w.config.LogPath, info.Name())); err != nil {
			return errors.Wrap(err, "failed to remove log file")
		}
	}
	return nil
}
