package notifications

import (
	"context"
	"log/slog"
	"strconv"

	"heartlink/internal/models"
	"heartlink/internal/repository"
)

// maxMulticastAttempts bounds how many times a multicast's failed tokens
// are retried.
const maxMulticastAttempts = 3

// retryThreshold is the failed-token count below which a multicast round
// is considered good enough and not retried.
const retryThreshold = 3

// Dispatcher appends alert records and pushes them to devices. Persisting
// the record always happens before the push; a push failure never rolls the
// record back.
type Dispatcher struct {
	alerts repository.AlertRepository
	sender Sender
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over the given alert store and sender.
func NewDispatcher(alerts repository.AlertRepository, sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{alerts: alerts, sender: sender, logger: logger}
}

// NotifyAndPush appends the record to the target's alert log, then pushes
// to the target's device if it has a token. Push errors are logged and
// swallowed so the triggering request still succeeds.
func (d *Dispatcher) NotifyAndPush(ctx context.Context, target *models.User, record *models.AlertRecord) error {
	if err := d.alerts.Append(ctx, target.ID, record); err != nil {
		return err
	}
	if target.PushToken == "" {
		return nil
	}
	data := pushData(record.Type, record.Body, record)
	if err := d.sender.Send(ctx, target.PushToken, data); err != nil {
		d.logger.Warn("push delivery failed",
			"target_id", target.ID,
			"type", record.Type,
			"error", err)
	}
	return nil
}

// PushOnly multicasts a transient push without touching the alert log.
// Used for chat message and room-opened events, which are visible in the
// room itself and would only clutter the log. Failed tokens are retried
// until few enough remain or the attempt ceiling is hit.
func (d *Dispatcher) PushOnly(ctx context.Context, tokens []string, pushType, body string, refs *models.AlertRecord) {
	tokens = compactTokens(tokens)
	if len(tokens) == 0 {
		return
	}
	data := pushData(pushType, body, refs)
	for attempt := 1; attempt <= maxMulticastAttempts; attempt++ {
		failed, err := d.sender.SendMulticast(ctx, tokens, data)
		if err != nil {
			d.logger.Warn("multicast push failed",
				"type", pushType,
				"attempt", attempt,
				"tokens", len(tokens),
				"error", err)
		}
		if len(failed) <= retryThreshold {
			return
		}
		tokens = failed
	}
	d.logger.Warn("multicast push gave up",
		"type", pushType,
		"remaining", len(tokens))
}

func compactTokens(tokens []string) []string {
	out := tokens[:0]
	for _, t := range tokens {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func pushData(pushType, body string, refs *models.AlertRecord) map[string]string {
	data := map[string]string{
		"type":    pushType,
		"message": body,
	}
	if refs == nil {
		return data
	}
	data["user_id"] = strconv.FormatUint(uint64(refs.UserID), 10)
	if refs.PostID != nil {
		data["post_id"] = strconv.FormatUint(uint64(*refs.PostID), 10)
	}
	if refs.CommentID != nil {
		data["comment_id"] = strconv.FormatUint(uint64(*refs.CommentID), 10)
	}
	if refs.RequestID != nil {
		data["request_id"] = strconv.FormatUint(uint64(*refs.RequestID), 10)
	}
	if refs.ChatRoomID != nil {
		data["chat_room_id"] = strconv.FormatUint(uint64(*refs.ChatRoomID), 10)
	}
	if refs.MessageID != nil {
		data["message_id"] = strconv.FormatUint(uint64(*refs.MessageID), 10)
	}
	return data
}
