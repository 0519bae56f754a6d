// Package key implements the key lifecycle engine from spec.md §4.B:
// generation, derivation, retrieval, rotation, and the master-key
// provider tagged variant. Storage is abstracted behind the Storage and
// Retrieval capability sets (spec.md's "capability set" design note) so
// this package has no dependency on any concrete backend; see
// internal/keystore for the file-store and OS-keychain implementations.
package key

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cyrup-ai/cryypt/internal/cryyptoerr"
)

// MinVersion and MaxVersion bound the monotonic version field from spec.md §3.
const (
	MinVersion = 1
	MaxVersion = 1_000_000
)

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateNamespace enforces spec.md §3's namespace grammar: alphanumeric
// plus "-_", at most 64 characters.
func ValidateNamespace(ns string) error {
	if !namespacePattern.MatchString(ns) {
		return cryyptoerr.InvalidParameters(fmt.Sprintf("invalid namespace %q", ns))
	}
	return nil
}

// ValidateVersion enforces the 1..=1,000,000 monotonic version range.
func ValidateVersion(version int) error {
	if version < MinVersion || version > MaxVersion {
		return cryyptoerr.InvalidParameters(fmt.Sprintf("version %d out of range [%d, %d]", version, MinVersion, MaxVersion))
	}
	return nil
}

// ID builds the composite natural key `"<namespace>:v<version>[:<suffix>]"`
// from spec.md §3. Two keys with the same (namespace, version, suffix)
// always map to the same id; different tuples never collide, since the
// namespace grammar excludes ':'.
func ID(namespace string, version int, suffix string) string {
	id := fmt.Sprintf("%s:v%d", namespace, version)
	if suffix != "" {
		id += ":" + suffix
	}
	return id
}

// ParseID reverses ID, splitting a composite key identifier back into its
// namespace, version, and optional suffix.
func ParseID(id string) (namespace string, version int, suffix string, err error) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[1], "v") {
		return "", 0, "", cryyptoerr.Malformed(fmt.Sprintf("invalid key id %q", id))
	}
	namespace = parts[0]
	version, err = strconv.Atoi(strings.TrimPrefix(parts[1], "v"))
	if err != nil {
		return "", 0, "", cryyptoerr.Malformed(fmt.Sprintf("invalid version in key id %q", id))
	}
	if len(parts) == 3 {
		suffix = parts[2]
	}
	return namespace, version, suffix, nil
}
