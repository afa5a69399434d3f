package model

import "time"

// Notification type constants
const (
	NotifTypeCalendarReminder = "calendar_reminder"
	NotifTypeRewardRedeemed   = "reward_redeemed"
)

type PushSubscription struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profileId"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh"`
	AuthKey    string    `json:"auth"`
	DeviceName string    `json:"deviceName"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (s *PushSubscription) Validate() error {
	if s.Endpoint == "" {
		return invalid("endpoint", "is required")
	}
	if s.P256dhKey == "" || s.AuthKey == "" {
		return invalid("keys", "p256dh and auth are required")
	}
	return nil
}
