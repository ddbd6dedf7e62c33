package domain

import "time"

// Counter is a durable named counter. NextValue holds the value the next
// allocation will return, so an existing row always reflects values already
// handed out.
type Counter struct {
	Name      string    `gorm:"primaryKey;size:64" json:"name"`
	NextValue uint64    `gorm:"not null" json:"next_value"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Counter) TableName() string {
	return "fnol_sequences"
}
