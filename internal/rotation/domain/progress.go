package domain

import "time"

// Progress is the persisted cursor of an interrupted or running rotation.
type Progress struct {
	Collection string    `json:"collection"`
	LastID     string    `json:"lastId"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
