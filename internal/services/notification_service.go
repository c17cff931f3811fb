package services

import (
	"context"
	"fmt"
	"strconv"

	"tomanage/internal/models"
	"tomanage/internal/notify"
	"tomanage/internal/recommend"
)

type Delivery struct {
	Channel        notify.Channel           `json:"channel"`
	Recipient      string                   `json:"recipient"`
	Recommendation recommend.Recommendation `json:"recommendation"`
}

// NotificationService sends a fresh recommendation to the user's chat or inbox.
type NotificationService interface {
	Deliver(ctx context.Context, userID string, method recommend.Method, channel notify.Channel) (Delivery, error)
}

type notificationService struct {
	recs      RecommendationService
	profile   ProfileService
	notifiers map[notify.Channel]notify.Notifier
}

func NewNotificationService(recs RecommendationService, profile ProfileService, notifiers map[notify.Channel]notify.Notifier) NotificationService {
	return &notificationService{recs: recs, profile: profile, notifiers: notifiers}
}

func (s *notificationService) Deliver(ctx context.Context, userID string, method recommend.Method, channel notify.Channel) (Delivery, error) {
	n, ok := s.notifiers[channel]
	if !ok || n == nil || !n.Enabled() {
		return Delivery{}, fmt.Errorf("%w: %s delivery is not configured", models.ErrValidation, channel)
	}
	prefs, err := s.profile.Preferences(ctx, userID)
	if err != nil {
		return Delivery{}, err
	}
	recipient, err := recipientFor(prefs, channel)
	if err != nil {
		return Delivery{}, err
	}

	rec, err := s.recs.Recommend(ctx, userID, method)
	if err != nil {
		return Delivery{}, err
	}
	subject := "Your next task"
	if rec.Task != nil {
		subject = "Next up: " + rec.Task.Title
	}
	if err := n.Notify(ctx, recipient, subject, rec.Text); err != nil {
		return Delivery{}, err
	}
	return Delivery{Channel: channel, Recipient: recipient, Recommendation: rec}, nil
}

func recipientFor(prefs models.Preferences, channel notify.Channel) (string, error) {
	switch channel {
	case notify.ChannelTelegram:
		if prefs.TelegramChatID == 0 {
			return "", fmt.Errorf("%w: set telegram_chat_id in preferences first", models.ErrValidation)
		}
		return strconv.FormatInt(prefs.TelegramChatID, 10), nil
	case notify.ChannelEmail:
		if prefs.Email == "" {
			return "", fmt.Errorf("%w: set email in preferences first", models.ErrValidation)
		}
		return prefs.Email, nil
	}
	return "", fmt.Errorf("%w: unknown delivery channel %q", models.ErrValidation, channel)
}
