/*
 * Copyright (C) 2017 The "MysteriumNetwork/node" Authors.
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

package requests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const agentName = "vpn-orchestrator/0.1"

// NewGetRequest generates http Get request
func NewGetRequest(apiURI, path string, params url.Values) (*http.Request, error) {
	return NewGetRequestWithContext(context.Background(), apiURI, path, params)
}

// NewGetRequestWithContext generates http Get request bound to ctx.
func NewGetRequestWithContext(ctx context.Context, apiURI, path string, params url.Values) (*http.Request, error) {
	pathWithQuery := path
	if len(params) > 0 {
		pathWithQuery = fmt.Sprintf("%v?%v", path, params.Encode())
	}
	return newRequest(ctx, http.MethodGet, apiURI, pathWithQuery, nil)
}

// NewPostRequest generates http Post request
func NewPostRequest(ctx context.Context, apiURI, path string, requestBody interface{}) (*http.Request, error) {
	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}
	return newRequest(ctx, http.MethodPost, apiURI, path, bodyBytes)
}

func newRequest(ctx context.Context, method, apiURI, path string, body []byte) (*http.Request, error) {
	fullURL := apiURI
	if path != "" {
		fullURL = fmt.Sprintf("%v/%v", strings.TrimSuffix(apiURI, "/"), strings.TrimPrefix(path, "/"))
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", agentName)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return req, nil
}
