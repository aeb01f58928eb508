package model

import "time"

// Location is a shared (area, container, sub-location) triple referenced by
// inventory details. Created on first use, never duplicated.
type Location struct {
	ID          int64     `json:"id"`
	Area        string    `json:"area"`
	Container   string    `json:"container"`
	SubLocation string    `json:"sub_location"`
	CreatedAt   time.Time `json:"created_at"`
}
