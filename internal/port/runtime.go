package port

import "context"

// Clock supplies the current time as unix milliseconds.
type Clock interface {
	Now() int64
}

// SyncScheduler runs a function on the host engine's synchronous context,
// where economy and inventory mutations are authoritative. Run blocks until
// fn has executed and returns fn's error, or a scheduling error if fn never
// ran (context cancelled, scheduler shut down).
type SyncScheduler interface {
	Run(ctx context.Context, fn func() error) error
}
