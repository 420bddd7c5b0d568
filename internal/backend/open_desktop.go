//go:build !android && !ios && !mobilesim

package backend

import "context"

// Open returns the desktop variant.
func Open(_ context.Context, env Env) (Backend, error) {
	return NewDesktop(env.Fonts, env.Logger), nil
}
