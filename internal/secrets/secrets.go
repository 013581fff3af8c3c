// Package secrets resolves provider credentials. The OS keyring is
// consulted first so keys never have to live in the environment; a
// comma-separated environment variable is the fallback for containers
// and CI, where no keyring daemon runs.
package secrets

import (
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service is the keyring service name under which Figdock stores
// credentials.
const Service = "figdock"

// EnvVLMAPIKeys holds fallback vision-language provider keys as a
// comma-separated list, used when the OS keyring has none.
const EnvVLMAPIKeys = "FIGDOCK_STUDIO_VLM_API_KEYS"

// vlmKeyNames are the keyring entries consulted for VLM provider keys,
// in rotation order.
var vlmKeyNames = []string{"vlm_api_key", "vlm_api_key_2"}

// VLMAPIKeys returns the configured vision-language provider keys in
// rotation order. Keyring entries win over the environment. An empty
// result means the VLM classifier should be disabled, not that lookup
// failed; keyring errors are treated as absent entries.
func VLMAPIKeys() []string {
	var keys []string
	for _, name := range vlmKeyNames {
		val, err := keyring.Get(Service, name)
		if err != nil {
			continue
		}
		if val = strings.TrimSpace(val); val != "" {
			keys = append(keys, val)
		}
	}
	if len(keys) > 0 {
		return keys
	}
	return SplitKeyList(os.Getenv(EnvVLMAPIKeys))
}

// SplitKeyList parses a comma-separated key list, dropping empty
// entries and surrounding whitespace.
func SplitKeyList(raw string) []string {
	var keys []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			keys = append(keys, part)
		}
	}
	return keys
}
