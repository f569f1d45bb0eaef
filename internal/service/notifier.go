package service

import (
	"context"
	"log/slog"

	"gradschool/internal/metrics"
	"gradschool/internal/models"
	"gradschool/internal/notify"
	"gradschool/internal/repository"
	"gradschool/internal/workflow"
)

// Notifier turns notify effects into addressed events and dispatches them.
// Delivery failures are logged and counted, never returned.
type Notifier struct {
	dispatcher   notify.Dispatcher
	users        *repository.UserRepository
	aaRecipients []string
	metrics      *metrics.Metrics
}

// NewNotifier creates a notifier. aaRecipients are always copied on AA notices
// in addition to users holding the aa role.
func NewNotifier(dispatcher notify.Dispatcher, users *repository.UserRepository, aaRecipients []string, m *metrics.Metrics) *Notifier {
	return &Notifier{dispatcher: dispatcher, users: users, aaRecipients: aaRecipients, metrics: m}
}

// Emit dispatches every notify effect for req. decorate, if set, adds
// event-specific payload such as honoraria.
func (n *Notifier) Emit(ctx context.Context, req models.DefenseRequest, effects []workflow.Effect, decorate func(*notify.Event)) {
	if n == nil || n.dispatcher == nil {
		return
	}

	for _, effect := range effects {
		if effect.Kind != workflow.EffectNotify {
			continue
		}

		event := notify.NewEvent(effect.Event, string(effect.Recipient), req)
		event.To = n.recipients(ctx, req, effect.Recipient)
		if decorate != nil {
			decorate(&event)
		}

		err := n.dispatcher.Dispatch(ctx, event)
		n.metrics.Notification(string(effect.Event), err)
		if err != nil {
			slog.Error("Failed to dispatch notification",
				"event_id", event.ID.String(),
				"event", string(event.Type),
				"audience", event.Audience,
				"defense_request_id", req.ID,
				"error", err,
			)
		}
	}
}

func (n *Notifier) recipients(ctx context.Context, req models.DefenseRequest, to workflow.Recipient) []string {
	switch to {
	case workflow.RecipientStudent:
		if req.StudentEmail != "" {
			return []string{req.StudentEmail}
		}
	case workflow.RecipientAdviser:
		return n.userEmail(ctx, req.AdviserUserID)
	case workflow.RecipientCoordinator:
		return n.userEmail(ctx, req.CoordinatorUserID)
	case workflow.RecipientAA:
		emails := append([]string(nil), n.aaRecipients...)
		if n.users != nil {
			users, err := n.users.ListByRole(ctx, models.UserRoleAA)
			if err != nil {
				slog.Warn("Failed to list AA recipients", "error", err)
			}
			for _, u := range users {
				emails = append(emails, u.Email)
			}
		}
		return dedupe(emails)
	}
	return nil
}

func (n *Notifier) userEmail(ctx context.Context, id *int64) []string {
	if id == nil || n.users == nil {
		return nil
	}
	user, err := n.users.GetByID(ctx, *id)
	if err != nil {
		slog.Warn("Failed to resolve notification recipient", "user_id", *id, "error", err)
		return nil
	}
	return []string{user.Email}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
