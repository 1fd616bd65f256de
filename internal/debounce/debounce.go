// Package debounce enforces a minimum interval between repeated actions on the
// same (user, field) pair, such as successive saves of one resume section.
package debounce

import (
	"context"
	"time"
)

const DefaultInterval = 1 * time.Second

// Gate decides whether an action keyed by user and field may proceed now.
// When it may not, retryAfter reports how long until it will. Release hands
// back a slot taken by Allow for an action that did not go through.
type Gate interface {
	Allow(ctx context.Context, userID, field string) (allowed bool, retryAfter time.Duration, err error)
	Release(ctx context.Context, userID, field string) error
}

func key(userID, field string) string {
	return userID + "|" + field
}
