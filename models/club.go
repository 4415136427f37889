package models

import "github.com/uptrace/bun"

// Club is a racing club riders belong to.
type Club struct {
	bun.BaseModel `bun:"table:clubs,alias:cl"`

	ID      int64  `bun:"id,pk,autoincrement" json:"id"`
	Name    string `bun:"name,notnull,unique" json:"name"`
	City    string `bun:"city,notnull,default:''" json:"city,omitempty"`
	Country string `bun:"country,notnull,default:'Bulgaria'" json:"country,omitempty"`
}
