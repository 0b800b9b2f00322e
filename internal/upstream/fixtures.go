package upstream

import (
	"embed"
	"encoding/json"
)

// Bundled static fixtures served in mock mode and on any live failure.
//
//go:embed mock/*.json
var fixtureFS embed.FS

var fixtureFiles = map[Kind]string{
	KindSearch:  "mock/search.json",
	KindInfo:    "mock/info.json",
	KindSources: "mock/sources.json",
}

// mockPayload returns the bundled fixture for an endpoint kind. A missing or
// unreadable fixture degrades to an empty JSON object so callers still get a
// parseable payload.
func (c *Client) mockPayload(kind Kind) json.RawMessage {
	name, ok := fixtureFiles[kind]
	if !ok {
		return json.RawMessage(`{}`)
	}
	data, err := fixtureFS.ReadFile(name)
	if err != nil {
		c.logger.Error().Err(err).Str("fixture", name).Msg("mock fixture missing")
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(data)
}
