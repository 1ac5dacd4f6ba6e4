package gdrive

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Resource states carried in X-Goog-Resource-State.
const (
	StateSync   = "sync"
	StateChange = "change"
	StateUpdate = "update"
	StateAdd    = "add"
	StateRemove = "remove"
	StateTrash  = "trash"
)

// Notification is one push message delivered to a webhook address.
type Notification struct {
	ChannelID     string
	Token         string
	Expiration    time.Time
	ResourceID    string
	ResourceURI   string
	ResourceState string
	MessageNumber int64
	Changed       []string
}

// ParseNotification reads the X-Goog-* headers of a push request.
func ParseNotification(h http.Header) Notification {
	n := Notification{
		ChannelID:     h.Get("X-Goog-Channel-ID"),
		Token:         h.Get("X-Goog-Channel-Token"),
		ResourceID:    h.Get("X-Goog-Resource-ID"),
		ResourceURI:   h.Get("X-Goog-Resource-URI"),
		ResourceState: h.Get("X-Goog-Resource-State"),
	}

	if v := h.Get("X-Goog-Channel-Expiration"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			n.Expiration = t.UTC()
		}
	}

	if v := h.Get("X-Goog-Message-Number"); v != "" {
		n.MessageNumber, _ = strconv.ParseInt(v, 10, 64)
	}

	if v := h.Get("X-Goog-Changed"); v != "" {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				n.Changed = append(n.Changed, part)
			}
		}
	}

	return n
}

// NotificationHandler returns an http.Handler that accepts Drive push
// messages. When expectedToken is non-empty, messages with a different
// channel token are rejected. The initial "sync" message is acknowledged
// without calling onNotify.
func NotificationHandler(expectedToken string, logger *slog.Logger, onNotify func(Notification)) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

			return
		}

		n := ParseNotification(r.Header)
		if n.ChannelID == "" {
			http.Error(w, "missing channel id", http.StatusBadRequest)

			return
		}

		if expectedToken != "" &&
			subtle.ConstantTimeCompare([]byte(n.Token), []byte(expectedToken)) != 1 {
			logger.Warn("rejected notification with bad token",
				slog.String("channel_id", n.ChannelID),
			)
			http.Error(w, "forbidden", http.StatusForbidden)

			return
		}

		logger.Debug("notification received",
			slog.String("channel_id", n.ChannelID),
			slog.String("state", n.ResourceState),
			slog.Int64("message", n.MessageNumber),
		)

		if n.ResourceState != StateSync && onNotify != nil {
			onNotify(n)
		}

		w.WriteHeader(http.StatusNoContent)
	})
}
