package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownGlobalKeys are the valid flat top-level keys in the config file.
// These correspond to fields in the embedded sub-config structs.
var knownGlobalKeys = map[string]bool{
	// App settings
	"locale": true, "native_host": true, "data_dir": true,
	// Logging settings
	"log_level": true, "log_format": true,
	// Network settings
	"connect_timeout": true, "data_timeout": true, "user_agent": true,
}

// knownTeamsKeys are the valid keys inside the [teams] table.
var knownTeamsKeys = map[string]bool{
	"client_id": true, "environment": true, "authority": true, "scope": true,
	"graph_base_url": true, "resource_root": true, "origin": true,
	"popup_width": true, "popup_height": true, "handoff_ttl": true,
}

// Sorted slice forms for Levenshtein matching. Sorted for deterministic
// suggestions when two candidates have the same edit distance.
var (
	knownGlobalKeysList = sortedKeys(knownGlobalKeys)
	knownTeamsKeysList  = sortedKeys(knownTeamsKeys)
)

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// teamsTable is the TOML table name for provider settings.
const teamsTable = "teams"

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		if len(key) == 2 && key[0] == teamsTable {
			errs = append(errs, unknownKeyError(key[1], "["+teamsTable+"] ", knownTeamsKeysList))

			continue
		}

		errs = append(errs, unknownKeyError(key.String(), "", knownGlobalKeysList))
	}

	return errors.Join(errs...)
}

// unknownKeyError builds a descriptive error for an unknown key, suggesting
// the closest known key when one is within reach.
func unknownKeyError(name, where string, known []string) error {
	if suggestion := closestMatch(name, known); suggestion != "" {
		return fmt.Errorf("unknown config key %s%q; did you mean %q?", where, name, suggestion)
	}

	return fmt.Errorf("unknown config key %s%q", where, name)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Use single-row optimization to avoid allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// minOf returns the minimum of three integers.
func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
