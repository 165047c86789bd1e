package models

import (
	"time"
)

type Task struct {
	ID            int64             `json:"id"`
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	Excerpt       string            `json:"excerpt"`
	AuthorID      int64             `json:"author_id"`
	ResponsibleID *int64            `json:"responsible_id,omitempty"`
	DueDate       *time.Time        `json:"due_date,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
	MenuOrder     int               `json:"menu_order"`
	CreatedAt     time.Time         `json:"created_at"`
	ModifiedAt    time.Time         `json:"modified_at"`
}

// Revision is a snapshot of a task taken right before it was overwritten.
type Revision struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Excerpt   string    `json:"excerpt"`
	CreatedAt time.Time `json:"created_at"`
}

type Term struct {
	ID       int64  `json:"id"`
	Taxonomy string `json:"taxonomy"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ParentID *int64 `json:"parent_id,omitempty"`
}
