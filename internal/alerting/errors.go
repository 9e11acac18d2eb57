package alerting

import "errors"

var (
	// ErrDispatchFailed is returned when the notifier could not deliver
	// a message. No alert state is mutated in that case, so the next
	// pass retries.
	ErrDispatchFailed = errors.New("alert dispatch failed")
)
