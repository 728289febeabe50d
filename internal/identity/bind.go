package identity

import (
	"log/slog"

	"github.com/wichananm65/rosilias-store/internal/cart"
)

// Bind keeps the cart engine's active cart in step with the session: a user
// identity activates (and merges into) that user's cart, guest activates the
// guest cart. The current identity is applied immediately.
func Bind(s *Session, e *cart.Engine, log *slog.Logger) (unbind func()) {
	if log == nil {
		log = slog.Default()
	}
	return s.Subscribe(func(id *Identity) {
		if id == nil {
			e.SwitchToGuest()
			return
		}
		if err := e.SwitchToUser(id.UserID); err != nil {
			log.Warn("cart switch failed", "user_id", id.UserID, "error", err)
		}
	})
}
