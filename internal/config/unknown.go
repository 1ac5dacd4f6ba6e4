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

// knownKeys lists the valid keys of every config section.
var knownKeys = map[string][]string{
	"library":   {"library_dir", "drive_folder", "ignore"},
	"auth":      {"settings_file", "credentials_file"},
	"state":     {"db_path"},
	"transfers": {"chunk_size", "replace_files"},
	"watch":     {"address", "token", "listen", "ttl", "debounce"},
	"logging":   {"log_level", "log_file", "log_format", "log_retention_days"},
	"network":   {"connect_timeout", "data_timeout", "user_agent"},
}

// knownSections is the sorted list of section names, for suggestions.
var knownSections = func() []string {
	names := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		names = append(names, k)
	}

	sort.Strings(names)

	return names
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		errs = append(errs, unknownKeyError(key))
	}

	return errors.Join(errs...)
}

// unknownKeyError builds the error for one undecoded key. A key whose section
// is unknown is reported as an unknown section.
func unknownKeyError(key toml.Key) error {
	section := key[0]

	fields, ok := knownKeys[section]
	if !ok || len(key) == 1 {
		if s := closestMatch(section, knownSections); s != "" {
			return fmt.Errorf("unknown config section %q, did you mean %q?", section, s)
		}

		return fmt.Errorf("unknown config section %q", section)
	}

	field := key[1]
	if s := closestMatch(field, fields); s != "" {
		return fmt.Errorf("unknown config key %q in [%s], did you mean %q?", field, section, s)
	}

	return fmt.Errorf("unknown config key %q in [%s]", field, section)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		if d := levenshtein(unknown, k); d < bestDist {
			bestDist = d
			best = k
		}
	}

	return best
}

// levenshtein computes the edit distance between two strings using a
// single-row buffer.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

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

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
