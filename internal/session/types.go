package session

// Settings are the user preferences, loaded at startup and persisted on
// every mutation.
type Settings struct {
	Quality   string `json:"quality"`
	Lang      string `json:"lang"`
	DataSaver bool   `json:"dataSaver"`
	MockMode  bool   `json:"mockMode"`
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{
		Quality: "auto",
		Lang:    "en",
	}
}

// HistoryEntry is a recently viewed item. Most-recent-first, deduplicated by
// ID, capped at HistoryLimit entries.
type HistoryEntry struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Poster string `json:"poster"`
}

// HistoryLimit caps the watch history length.
const HistoryLimit = 20

// Setting keys persisted in the settings table.
const (
	keyQuality   = "quality"
	keyLang      = "lang"
	keyDataSaver = "data_saver"
	keyMockMode  = "mock_mode"
)
