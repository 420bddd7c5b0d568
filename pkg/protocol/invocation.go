package protocol

import "encoding/json"

// Invocation is the request envelope sent to a native plugin on
// nativebridge.invoke.<plugin>.
type Invocation struct {
	Command   string          `json:"command"`
	Payload   json.RawMessage `json:"payload"`
	Source    string          `json:"source"`
	Signature string          `json:"signature,omitempty"`
}

// Reply is the plugin's answer to an Invocation. Exactly one of Data and
// Error is meaningful: a non-empty Error means the native call failed.
type Reply struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}
