package logging

import (
	"log/slog"
)

// WithThread creates a logger with thread context. Use this to
// automatically include the thread sequence number in all logs.
//
// Example:
//
//	log := logging.WithThread(owner.Seq())
//	log.Info("lock acquired")
func WithThread(seq int64) *slog.Logger {
	return GetLogger().With("thread_seq", seq)
}

// WithResource creates a logger with resource context. kind is typically
// "lock" or "rule"; id is the resource's debug identity.
//
// Example:
//
//	log := logging.WithResource("lock", lockID)
//	log.Debug("wait started")
func WithResource(kind, id string) *slog.Logger {
	return GetLogger().With("resource_kind", kind, "resource_id", id)
}

// WithLock creates a logger with both thread and lock context. Useful for
// the acquire/release lifecycle logged by OrderedLock and LockManager.
//
// Example:
//
//	log := logging.WithLock(owner.Seq(), lockID)
//	log.Info("lock granted", "depth", depth)
func WithLock(threadSeq int64, lockID string) *slog.Logger {
	return GetLogger().With("thread_seq", threadSeq, "resource_id", lockID)
}

// WithComponent creates a logger with component/subsystem context.
//
// Example:
//
//	log := logging.WithComponent("deadlock_detector")
//	log.Warn("cycle detected")
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithError creates a logger with error context. Use this when logging
// errors to include the error in structured format.
//
// Example:
//
//	log := logging.WithError(err)
//	log.Error("hook panicked")
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
