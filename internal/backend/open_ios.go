//go:build ios

package backend

import (
	"context"

	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// Open resolves the iOS plugins by binding symbol.
func Open(ctx context.Context, env Env) (Backend, error) {
	return OpenMobile(ctx, env, protocol.PlatformIOS)
}
