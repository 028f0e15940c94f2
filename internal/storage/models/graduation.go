// internal/storage/models/graduation.go
package models

// Graduation records one graduation attempt outcome per curve. The
// row is upserted on retries so the table holds the latest state.
type Graduation struct {
	BaseModel
	CurveID      string `gorm:"uniqueIndex;not null;type:varchar(36)"`
	Status       string `gorm:"not null;type:varchar(20)"`
	PairHandle   string `gorm:"type:varchar(100)"`
	FinalSupply  string `gorm:"type:numeric(78,0)"`
	MarketCap    string `gorm:"type:numeric(78,0)"`
	PlatformFee  string `gorm:"type:numeric(78,0)"`
	ErrorMessage string `gorm:"type:text"`
}

const (
	GraduationStatusTriggered = "triggered"
	GraduationStatusCompleted = "completed"
	GraduationStatusFailed    = "failed"
)
