// internal/storage/models/trade.go
package models

// Trade is one executed buy or sell. All amounts are WAD-scaled
// integers stored as decimal strings; numeric(78,0) covers the full
// 256-bit range.
type Trade struct {
	BaseModel
	CurveID   string `gorm:"index;not null;type:varchar(36)"`
	Account   string `gorm:"index;not null;type:varchar(100)"`
	Side      string `gorm:"not null;type:varchar(4)"`
	Amount    string `gorm:"not null;type:numeric(78,0)"`
	Value     string `gorm:"not null;type:numeric(78,0)"`
	Fee       string `gorm:"not null;type:numeric(78,0)"`
	NewSupply string `gorm:"not null;type:numeric(78,0)"`
}

const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)
