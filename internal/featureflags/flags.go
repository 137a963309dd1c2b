// Package featureflags evaluates runtime switches supplied as "name=value" lists.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Known flags.
const (
	// ImageUploads gates the image part of post creation.
	ImageUploads = "image_uploads"
	// FeedEvents gates publication of feed events to stream subscribers.
	FeedEvents = "feed_events"
)

// Set holds the parsed flag values, e.g. "image_uploads=on,feed_events=25%".
type Set struct {
	values map[string]string
}

// Parse builds a Set from a comma-separated list. Malformed entries are skipped.
func Parse(raw string) *Set {
	values := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		name, value = canonical(name), canonical(value)
		if name == "" || value == "" {
			continue
		}
		values[name] = value
	}
	return &Set{values: values}
}

// On reports whether name is enabled regardless of caller. Percentage rollouts
// count as on only at 100%.
func (s *Set) On(name string) bool {
	return s.For(name, uuid.Nil)
}

// For reports whether name is enabled for userID. Values on/true/1 and
// off/false/0 are absolute; "N%" enables a stable N percent of users.
// Unknown flags are off.
func (s *Set) For(name string, userID uuid.UUID) bool {
	if s == nil {
		return false
	}
	value, ok := s.values[canonical(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctText, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctText)
	switch {
	case err != nil, pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == uuid.Nil:
		return false
	}
	return bucket(name, userID) < pct
}

// Values returns a copy of the configured values. A nil Set has none.
func (s *Set) Values() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Evaluate resolves every configured flag for userID.
func (s *Set) Evaluate(userID uuid.UUID) map[string]bool {
	if s == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(s.values))
	for name := range s.values {
		out[name] = s.For(name, userID)
	}
	return out
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uuid.UUID) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(canonical(name)))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write(userID[:])
	return int(h.Sum32() % 100)
}
