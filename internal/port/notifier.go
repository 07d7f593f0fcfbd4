package port

import "github.com/google/uuid"

// Notifier delivers user-facing signals. Implementations are best-effort and
// must never block transaction progress.
type Notifier interface {
	// Broadcast announces text to everyone.
	Broadcast(text string)

	// Notify sends text to one user.
	Notify(user uuid.UUID, text string)

	// UIRefresh tells market views to re-read their listings.
	UIRefresh(market uuid.UUID)
}
