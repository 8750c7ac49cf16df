/*
 * Copyright (C) 2023 The "MysteriumNetwork/node" Authors.
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

package utils

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCollection collects errors of independent steps, nil errors are skipped
type ErrorCollection []error

// Add appends non nil errors to the collection
func (ec *ErrorCollection) Add(errs ...error) {
	for _, err := range errs {
		if err != nil {
			*ec = append(*ec, err)
		}
	}
}

// Stringf formats collected error messages joined by separator
func (ec ErrorCollection) Stringf(format, separator string) string {
	messages := make([]string, 0, len(ec))
	for _, err := range ec {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf(format, strings.Join(messages, separator))
}

// String returns collected error messages
func (ec ErrorCollection) String() string {
	return ec.Stringf("ErrorCollection: %s", ", ")
}

// Errorf returns an error of the formatted messages, nil when nothing was collected
func (ec ErrorCollection) Errorf(format, separator string) error {
	if len(ec) == 0 {
		return nil
	}
	return errors.New(ec.Stringf(format, separator))
}

// Error returns an error of the collected messages, nil when nothing was collected
func (ec ErrorCollection) Error() error {
	return ec.Errorf("ErrorCollection: %s", ", ")
}
