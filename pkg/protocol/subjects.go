package protocol

import "fmt"

// NATS subject constants and helpers.
const (
	SubjectRegistry = "nativebridge.registry"
)

// SubjectInvoke is where a plugin serves invocations.
func SubjectInvoke(plugin string) string {
	return fmt.Sprintf("nativebridge.invoke.%s", plugin)
}

// SubjectEvents is where a plugin publishes unsolicited events.
func SubjectEvents(plugin string) string {
	return fmt.Sprintf("nativebridge.events.%s", plugin)
}

func SubjectHeartbeat(plugin string) string {
	return fmt.Sprintf("nativebridge.heartbeat.%s", plugin)
}

// SubjectResolve is where a plugin answers resolution requests for its
// platform key. Dots in the key are kept, so an Android key spans several
// subject tokens.
func SubjectResolve(key string) string {
	return fmt.Sprintf("nativebridge.resolve.%s", key)
}
