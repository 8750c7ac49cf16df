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

package cmd

import (
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// Killer stops running components and reports the cleanup result
type Killer func() error

// SoftKiller invokes killer and leaves the process running, so that the caller can return normally
func SoftKiller(kill Killer) func() {
	return newStopper(kill, doNothingAfterKill)
}

// HardKiller invokes killer and exits the process with a code reflecting the cleanup result
func HardKiller(kill Killer) func() {
	return newStopper(kill, os.Exit)
}

type exiter func(code int)

func doNothingAfterKill(_ int) {}

// newStopper returns a stopper which runs at most once, repeated signals are ignored
func newStopper(kill Killer, exit exiter) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			stop(kill, exit)
		})
	}
}

func stop(kill Killer, exit exiter) {
	if err := kill(); err != nil {
		log.Error().Err(err).Msg("Error while stopping the orchestrator")
		exit(1)
		return
	}

	log.Info().Msg("Good bye")
	exit(0)
}
