package frame

// State is the minimal slice of manager state that survives a full page
// reload: which menu groups are expanded and which URL ids have ever had a
// frame instantiated. The active selection and the loaded set are
// deliberately absent; a fresh tab always starts with every URL inactive
// and unloaded.
type State struct {
	OpenGroups map[string]bool `json:"openGroups"`
	KnownURLs  []string        `json:"knownUrls"`
}

// Store persists State between page loads. Implementations are best-effort:
// Load errors degrade to an empty state and Save errors are dropped after
// logging, so a broken or cleared store can never break the manager.
type Store interface {
	Load() (State, error)
	Save(State) error
}
