package models

import "github.com/uptrace/bun"

// Rider is a competitor. ClubID is the rider's current club; standings read it
// at recompute time so a transfer moves the rider's points to the new club.
type Rider struct {
	bun.BaseModel `bun:"table:riders,alias:rd"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	UserID    *int64 `bun:"user_id" json:"userID,omitempty"`
	ClubID    *int64 `bun:"club_id" json:"clubID,omitempty"`
	FirstName string `bun:"first_name,notnull" json:"firstName"`
	LastName  string `bun:"last_name,notnull" json:"lastName"`

	Club *Club `bun:"rel:belongs-to,join:club_id=id" json:"-"`
}

// FullName returns "First Last".
func (r *Rider) FullName() string {
	return r.FirstName + " " + r.LastName
}
