// Package notifications publishes deployment build outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never need to check whether notifications are enabled. Delivery
// errors are returned for the caller to log; they never change the outcome
// of a build.
package notifications
