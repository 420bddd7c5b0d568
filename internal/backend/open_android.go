//go:build android

package backend

import (
	"context"

	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// Open resolves the Android plugins by package and class name.
func Open(ctx context.Context, env Env) (Backend, error) {
	return OpenMobile(ctx, env, protocol.PlatformAndroid)
}
