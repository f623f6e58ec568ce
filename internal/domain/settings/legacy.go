package settings

import (
	"encoding/json"
	"fmt"
)

// legacyFile mirrors the settings.json written by the desktop client.
type legacyFile struct {
	Font       json.RawMessage `json:"font"`
	FontSize   json.RawMessage `json:"fontSize"`
	Theme      json.RawMessage `json:"theme"`
	VersionRev json.RawMessage `json:"version_rev"`
}

// ParseLegacyJSON reads a desktop settings.json.
// PRE: none
// POST: Unparsable documents return an error; individual bad keys fall back to defaults
func ParseLegacyJSON(data []byte) (Settings, error) {
	var raw legacyFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return Defaults(), fmt.Errorf("parse settings file: %w", err)
	}
	out := Defaults()
	var str string
	var num int
	if json.Unmarshal(raw.Font, &str) == nil {
		out.Font = str
	}
	if json.Unmarshal(raw.FontSize, &num) == nil {
		out.FontSize = num
	}
	str = ""
	if json.Unmarshal(raw.Theme, &str) == nil {
		out.Theme = str
	}
	// version_rev must be an integer; strings and floats revert to the default
	num = 0
	if json.Unmarshal(raw.VersionRev, &num) == nil && len(raw.VersionRev) > 0 {
		out.Revision = num
	}
	return out.Sanitize(), nil
}
