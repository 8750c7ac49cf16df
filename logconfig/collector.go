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
	"os"
	"path"
	"strings"

	"github.com/mholt/archiver/v3"
	"github.com/pkg/errors"
)

const archiveExt = ".zip"

// Collector collects orchestrator logs for bug reports.
type Collector struct {
	options    *LogOptions
	extraFiles []string
}

// NewCollector creates a Collector instance. Existing extraFiles, such as the user
// configuration, are packed next to the logs.
func NewCollector(options *LogOptions, extraFiles ...string) *Collector {
	return &Collector{options: options, extraFiles: extraFiles}
}

// Archive creates ZIP archive containing all log files and the extra files.
func (c *Collector) Archive() (outputFilepath string, err error) {
	if c.options.Filepath == "" {
		return "", errors.New("file logging is disabled, can't retrieve logs")
	}
	filepaths, err := c.logFilepaths()
	if err != nil {
		return "", err
	}
	if len(filepaths) == 0 {
		return "", errors.New("no log files found in " + path.Dir(c.options.Filepath))
	}

	for _, extra := range c.extraFiles {
		if _, err := os.Stat(extra); err == nil {
			filepaths = append(filepaths, extra)
		}
	}

	zip := archiver.NewZip()
	zip.OverwriteExisting = true

	zipFilepath := c.options.Filepath + archiveExt
	err = zip.Archive(filepaths, zipFilepath)
	if err != nil {
		return "", errors.Wrap(err, "could not create log archive")
	}

	return zipFilepath, nil
}

func (c *Collector) logFilepaths() (result []string, err error) {
	filename := path.Base(c.options.Filepath)
	dir := path.Dir(c.options.Filepath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read directory: "+dir)
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), archiveExt) {
			continue
		}
		if strings.HasPrefix(entry.Name(), filename) {
			result = append(result, path.Join(dir, entry.Name()))
		}
	}
	return result, nil
}
