package types //nolint:revive // package name is intentional

// ChatResult is the outcome of one chat call against a provider.
// Exactly one of Content or Error is set; ProcessingTimeMs is always populated.
type ChatResult struct {
	Content          string `json:"content,omitempty"`
	Error            string `json:"error,omitempty"`
	Tokens           int    `json:"tokens"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	Model            string `json:"model,omitempty"`
	Provider         string `json:"provider,omitempty"`
}

// Failed reports whether the call produced an error instead of content.
func (r ChatResult) Failed() bool {
	return r.Error != ""
}

// ProviderDescriptor describes one chat backend as seen by callers.
type ProviderDescriptor struct {
	Name         string   `json:"name"`
	Available    bool     `json:"available"`
	Models       []string `json:"models"`
	DefaultModel string   `json:"default_model"`
	FreeTier     string   `json:"free_tier"`
	BestFor      string   `json:"best_for"`
}
