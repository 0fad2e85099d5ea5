// Copyright 2025 EGDesk Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package security

// Config toggles the rule categories applied by Evaluate. Every category
// defaults to enabled; the additive lists extend the static blocklists.
type Config struct {
	BlockExtensions     bool `json:"blockExtensions"`
	BlockSystemDirs     bool `json:"blockSystemDirs"`
	BlockAppDirs        bool `json:"blockAppDirs"`
	BlockSensitiveFiles bool `json:"blockSensitiveFiles"`
	BlockDirNames       bool `json:"blockDirNames"`

	AdditionalBlockedPaths      []string `json:"additionalBlockedPaths,omitempty"`
	AdditionalBlockedExtensions []string `json:"additionalBlockedExtensions,omitempty"`
}

// DefaultConfig returns a Config with every rule category enabled.
func DefaultConfig() *Config {
	return &Config{
		BlockExtensions:     true,
		BlockSystemDirs:     true,
		BlockAppDirs:        true,
		BlockSensitiveFiles: true,
		BlockDirNames:       true,
	}
}

// Static blocklists. Entries are lowercase with forward-slash separators;
// Evaluate normalizes candidate paths before comparing, so the lists stay
// platform-neutral.

// blockedExtensions are executable and loadable-module extensions.
var blockedExtensions = []string{
	"exe", "dll", "sys", "drv", "msi",
	"bat", "cmd", "com", "scr", "pif",
	"so", "dylib",
}

// systemDirectories spans Windows, macOS and Linux system roots. Prefix
// matches are segment-aware: "/bin" blocks "/bin/sh" but not "/binford".
var systemDirectories = []string{
	"c:/windows",
	"c:/programdata",
	"c:/system volume information",
	"/system",
	"/library",
	"/private",
	"/bin",
	"/sbin",
	"/usr/bin",
	"/usr/sbin",
	"/usr/lib",
	"/etc",
	"/proc",
	"/sys",
	"/dev",
	"/boot",
	"/root",
}

// applicationDirectories are matched as substrings anywhere in the path.
var applicationDirectories = []string{
	"/applications/",
	"/program files/",
	"/program files (x86)/",
	"/appdata/",
}

// sensitiveNamePrefixes match the final path component by prefix (".env",
// ".env.local", ...).
var sensitiveNamePrefixes = []string{
	".env",
}

// sensitiveNameSuffixes are key and certificate extensions.
var sensitiveNameSuffixes = []string{
	".pem", ".key", ".crt", ".cer", ".der",
	".p12", ".pfx", ".keystore", ".jks",
}

// sensitiveNames are credential files matched exactly.
var sensitiveNames = []string{
	"id_rsa", "id_dsa", "id_ecdsa", "id_ed25519",
	"known_hosts", "authorized_keys",
	"credentials", "credentials.json",
	".netrc", ".npmrc", ".pgpass", ".htpasswd",
}

// blockedDirectoryNames match any path segment exactly.
var blockedDirectoryNames = []string{
	"node_modules",
	".git", ".svn", ".hg",
	"__pycache__", ".venv", "venv",
	".ds_store", "thumbs.db",
	"$recycle.bin", ".trash",
}
