package protocol

import "fmt"

// Platform names used in plugin resolution.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// PluginID identifies a native plugin on every mobile platform: a
// package/class pair on Android and a binding symbol on iOS.
type PluginID struct {
	Name           string
	AndroidPackage string
	AndroidClass   string
	IOSSymbol      string
}

// Key returns the identifier the plugin registers under on platform.
func (id PluginID) Key(platform string) (string, error) {
	switch platform {
	case PlatformAndroid:
		if id.AndroidPackage == "" || id.AndroidClass == "" {
			return "", fmt.Errorf("plugin %s has no android binding", id.Name)
		}
		return id.AndroidPackage + "." + id.AndroidClass, nil
	case PlatformIOS:
		if id.IOSSymbol == "" {
			return "", fmt.Errorf("plugin %s has no ios binding", id.Name)
		}
		return id.IOSSymbol, nil
	default:
		return "", fmt.Errorf("unknown platform %q", platform)
	}
}

// Well-known plugins.
var (
	TTSPlugin = PluginID{
		Name:           "native-tts",
		AndroidPackage: "com.readest.native_tts",
		AndroidClass:   "NativeTTSPlugin",
		IOSSymbol:      "init_plugin_native_tts",
	}
	BridgePlugin = PluginID{
		Name:           "native-bridge",
		AndroidPackage: "com.readest.native_bridge",
		AndroidClass:   "NativeBridgePlugin",
		IOSSymbol:      "init_plugin_native_bridge",
	}
)
