package domain

// SettingsRecordKey is the single key the settings record lives under.
const SettingsRecordKey = "apiKeys"

// APIKeys holds the provider key identifiers entered in the settings form.
type APIKeys struct {
	OpenAI string `json:"openai"`
	Gemini string `json:"gemini"`
}

// Empty reports whether no key is set.
func (k APIKeys) Empty() bool {
	return k.OpenAI == "" && k.Gemini == ""
}
