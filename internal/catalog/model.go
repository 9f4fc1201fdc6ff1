package catalog

import "time"

// Outcome values stored in Capture.Outcome.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Capture is one TakingPicture attempt.
type Capture struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Session   string    `gorm:"size:36;index;not null" json:"session"` // one per process run
	Index     int       `gorm:"column:image_index;not null" json:"index"`
	Path      string    `gorm:"size:512;not null" json:"path"`
	Message   string    `gorm:"size:256" json:"message,omitempty"`
	Outcome   string    `gorm:"size:16;not null" json:"outcome"`
	Error     string    `gorm:"size:512" json:"error,omitempty"`
	TakenAt   time.Time `gorm:"index" json:"takenAt"`
	CreatedAt time.Time `json:"-"`
}
