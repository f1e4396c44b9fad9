package entities

import (
	"time"
)

// Book statuses. A book is "borrowed" exactly while one open loan
// references it; the lending service owns all status transitions.
const (
	BookStatusAvailable   = "available"
	BookStatusBorrowed    = "borrowed"
	BookStatusMaintenance = "maintenance"
)

type Book struct {
	ID          int64      `db:"id" json:"id"`
	ISBN        string     `db:"isbn" json:"isbn"`
	Title       string     `db:"title" json:"title"`
	Author      string     `db:"author" json:"author"`
	Publisher   string     `db:"publisher" json:"publisher"`
	PublishDate *time.Time `db:"publish_date" json:"publish_date"`
	CategoryID  *int64     `db:"category_id" json:"category_id"`
	CoverURL    string     `db:"cover_url" json:"cover_url"`
	Description string     `db:"description" json:"description"`
	Price       float64    `db:"price" json:"price"`
	Room        string     `db:"room" json:"room"`
	Shelf       string     `db:"shelf" json:"shelf"`
	Row         string     `db:"row" json:"row"`
	Column      string     `db:"column" json:"column"`
	Number      string     `db:"number" json:"number"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
