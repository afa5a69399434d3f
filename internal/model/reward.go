package model

import (
	"strings"
	"time"
)

type Reward struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Icon      string     `json:"icon"`
	Cost      int        `json:"cost"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (r *Reward) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return invalid("name", "is required")
	}
	if r.Cost < 0 {
		return invalid("cost", "must not be negative")
	}
	return nil
}

type Redemption struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	RewardID   string    `json:"rewardId"`
	RewardName string    `json:"rewardName"`
	Cost       int       `json:"cost"`
	RedeemedAt time.Time `json:"redeemedAt"`
}

func (r *Redemption) Validate() error {
	if r.UserID == "" {
		return invalid("userId", "is required")
	}
	if r.RewardID == "" {
		return invalid("rewardId", "is required")
	}
	return nil
}

type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	ProfileID string `json:"profileId"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Color     string `json:"color"`
	Points    int    `json:"points"`
}
