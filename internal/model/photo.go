package model

import "time"

type Photo struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	IsFavorite bool       `json:"isFavorite"`
	UploadedBy string     `json:"uploadedBy"`
	UploadedAt time.Time  `json:"uploadedAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

func (p *Photo) Validate() error {
	if p.URL == "" {
		return invalid("url", "is required")
	}
	return nil
}
