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

// Package metadata contains build information of the executable usually provided by
// automated build systems. Default values are populated if not overridden via linker flags.
package metadata

import "fmt"

var (
	// Version is the release version (set via linker flags)
	Version = "0.0.0-dev"
	// BuildCommit comes from BUILD_COMMIT env variable (set via linker flags)
	BuildCommit = ""
	// BuildBranch comes from BUILD_BRANCH env variable (set via linker flags)
	BuildBranch = "<unknown>"
	// BuildNumber comes from BUILD_NUMBER env variable (set via linker flags)
	BuildNumber = "dev-build"
)

// Info stores build details.
type Info struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	Branch      string `json:"branch"`
	BuildNumber string `json:"build_number"`
}

// BuildInfo returns the build details of the running executable.
func BuildInfo() Info {
	return Info{
		Version:     Version,
		Commit:      BuildCommit,
		Branch:      BuildBranch,
		BuildNumber: BuildNumber,
	}
}

// BuildAsString returns all defined build constants as single string
func BuildAsString() string {
	return FormatString(BuildCommit, BuildBranch, BuildNumber)
}

// FormatString formats build info to string with given build data
func FormatString(commit, branch, buildNumber string) string {
	return fmt.Sprintf("Branch: %s. Build id: %s. Commit: %s", branch, buildNumber, commit)
}
