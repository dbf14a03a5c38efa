package books

import "time"

// Book is the content resource the permission guards protect.
type Book struct {
	ID        int64
	Name      string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MaxContentLength caps book content.
const MaxContentLength = 350
