package entity

import (
	"time"

	"github.com/guregu/null/v6"
)

type RelaySymbol struct {
	ID          string      `db:"id" json:"id"`
	Symbol      string      `db:"symbol" json:"symbol"`
	DisplayName null.String `db:"display_name" json:"display_name"`
	IsDefault   bool        `db:"is_default" json:"is_default"`
	IsActive    bool        `db:"is_active" json:"is_active"`
	SortOrder   int         `db:"sort_order" json:"sort_order"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

func (RelaySymbol) TableName() string {
	return "relay_symbols"
}
