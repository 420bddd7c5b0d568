package protocol

// Registration is published on nativebridge.registry when a plugin starts and
// returned in answer to a resolution request.
type Registration struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Platform string   `json:"platform"`
	Key      string   `json:"key"`
	Commands []string `json:"commands"`
}
