package service

import "context"

// Locker serializes mutations that share a key. The returned func releases
// the lock and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
