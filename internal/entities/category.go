package entities

import (
	"time"
)

// Category is a node in the subject tree. Level is 1 for roots and
// parent.level+1 otherwise, computed at write time; children keep their
// stored level when a parent moves.
type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	ParentID  *int64    `db:"parent_id" json:"parent_id"`
	Level     int       `db:"level" json:"level"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CategoryNode is a category with its nested children, as returned by the
// tree listing.
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}
