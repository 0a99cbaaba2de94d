package domain

import "time"

// Interview stores the metadata and generated question list for one
// mock-interview setup. Records are created unfinalized and flipped to
// finalized once the question list has been written.
type Interview struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	TechStack []string  `json:"techStack"`
	Questions []string  `json:"questions"`
	Finalized bool      `json:"finalized"`
	CreatedAt time.Time `json:"createdAt"`
}
