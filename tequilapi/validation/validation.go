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

package validation

import (
	"encoding/json"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
)

// FieldError structure is produced by validator
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FieldErrorList contains list of FieldError
type FieldErrorList struct {
	list []FieldError
}

// AddError adds an error to the list
func (fel *FieldErrorList) AddError(code string, message string) {
	fel.list = append(fel.list, FieldError{code, message})
}

// MarshalJSON writes the list as a JSON array
func (fel FieldErrorList) MarshalJSON() ([]byte, error) {
	return json.Marshal(fel.list)
}

// FieldErrorMap groups field errors by field name
type FieldErrorMap struct {
	errorMap map[string]*FieldErrorList
}

// NewErrorMap returns an empty FieldErrorMap
func NewErrorMap() *FieldErrorMap {
	return &FieldErrorMap{make(map[string]*FieldErrorList)}
}

// ForField returns the error list of key, creating it if needed
func (fem *FieldErrorMap) ForField(key string) *FieldErrorList {
	fieldErrors, exist := fem.errorMap[key]
	if !exist {
		fieldErrors = &FieldErrorList{}
		fem.errorMap[key] = fieldErrors
	}
	return fieldErrors
}

// MarshalJSON writes the map as a JSON object
func (fem FieldErrorMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(fem.errorMap)
}

// HasErrors reports whether any field has errors
func (fem *FieldErrorMap) HasErrors() bool {
	return len(fem.errorMap) > 0
}

// FromError converts an ozzo-validation result into a FieldErrorMap.
// Nested struct errors are flattened with dotted field names.
func FromError(err error) *FieldErrorMap {
	errorMap := NewErrorMap()
	if err == nil {
		return errorMap
	}
	fieldErrors, ok := err.(validation.Errors)
	if !ok {
		errorMap.ForField("").AddError("invalid", err.Error())
		return errorMap
	}
	collect(errorMap, "", fieldErrors)
	return errorMap
}

func collect(errorMap *FieldErrorMap, prefix string, fieldErrors validation.Errors) {
	keys := make([]string, 0, len(fieldErrors))
	for key := range fieldErrors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		switch fieldErr := fieldErrors[key].(type) {
		case nil:
		case validation.Errors:
			collect(errorMap, name, fieldErr)
		default:
			errorMap.ForField(name).AddError("invalid", fieldErr.Error())
		}
	}
}
