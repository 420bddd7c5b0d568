//go:build mobilesim && !android && !ios

package backend

import (
	"context"

	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// Open resolves simulated plugins for env.Platform, Android by default.
func Open(ctx context.Context, env Env) (Backend, error) {
	platform := env.Platform
	if platform == "" {
		platform = protocol.PlatformAndroid
	}
	return OpenMobile(ctx, env, platform)
}
