package storycontent

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

func isLiveBroadcastURL(s string) bool {
	return strings.HasPrefix(s, LiveBroadcastPrefix)
}

// ExtractStorageKeys returns every blob-storage reference held by the
// element. Known variants report their keys through typed fields; unknown or
// legacy-shaped elements fall back to a generic walk over the raw record that
// collects every string leaf containing the owning page's id, skipping live
// broadcast URLs.
func ExtractStorageKeys(el Element, pageID uuid.UUID) []string {
	if unknown, ok := el.(*UnknownElement); ok {
		return legacyStorageKeys(unknown.Raw, pageID)
	}
	return el.StorageKeys()
}

// legacyStorageKeys recursively walks an arbitrary content record. Content
// records are tree-shaped, so the walk terminates without cycle detection.
func legacyStorageKeys(raw json.RawMessage, pageID uuid.UUID) []string {
	if len(raw) == 0 {
		return nil
	}
	var record interface{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil
	}
	return collectKeys(nil, record, pageID.String())
}

func collectKeys(keys []string, node interface{}, pageID string) []string {
	switch v := node.(type) {
	case string:
		if strings.Contains(v, pageID) && !isLiveBroadcastURL(v) {
			keys = append(keys, v)
		}
	case map[string]interface{}:
		for _, child := range v {
			keys = collectKeys(keys, child, pageID)
		}
	case []interface{}:
		for _, child := range v {
			keys = collectKeys(keys, child, pageID)
		}
	}
	return keys
}
