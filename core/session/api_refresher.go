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

package session

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mysteriumnetwork/vpn-orchestrator/requests"
)

// APIRefresher fetches the session from the account session API.
type APIRefresher struct {
	httpClient *requests.HTTPClient
	apiURL     string
	token      string
	newBackOff func() backoff.BackOff
}

// NewAPIRefresher creates a session API client.
func NewAPIRefresher(httpClient *requests.HTTPClient, apiURL, token string) *APIRefresher {
	return &APIRefresher{
		httpClient: httpClient,
		apiURL:     apiURL,
		token:      token,
		newBackOff: func() backoff.BackOff {
			eback := backoff.NewExponentialBackOff()
			eback.InitialInterval = time.Second
			eback.MaxElapsedTime = 30 * time.Second
			return backoff.WithMaxRetries(eback, 5)
		},
	}
}

// Refresh returns the current session. Transient failures are retried.
// Rejected credentials are reported as an expired session.
func (r *APIRefresher) Refresh(ctx context.Context) (Session, error) {
	var session Session
	fetch := func() error {
		var err error
		session, err = r.fetch(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrInvalidSession) {
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Msg("Session refresh failed, will try again")
		return err
	}

	err := backoff.Retry(fetch, backoff.WithContext(r.newBackOff(), ctx))
	if errors.Is(err, ErrInvalidSession) {
		return Session{Status: StatusExpired}, nil
	}
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

func (r *APIRefresher) fetch(ctx context.Context) (Session, error) {
	req, err := requests.NewGetRequestWithContext(ctx, r.apiURL, "session", nil)
	if err != nil {
		return Session{}, err
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	var session Session
	err = r.httpClient.DoRequestAndParseResponse(req, &session)
	var responseErr *requests.ResponseError
	if errors.As(err, &responseErr) &&
		(responseErr.StatusCode == http.StatusUnauthorized || responseErr.StatusCode == http.StatusForbidden) {
		return Session{}, ErrInvalidSession
	}
	if err != nil {
		return Session{}, errors.Wrap(err, "could not fetch session")
	}
	return session, nil
}
