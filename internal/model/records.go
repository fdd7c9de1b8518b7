package model

import "time"

// ViewRecord is the stored view counter for a single post.
type ViewRecord struct {
	Slug        string    `json:"slug"`
	View        int64     `json:"view"`
	LastUpdated time.Time `json:"-"`
}

// DiscussionRecord is a discussion as confirmed by the remote API after an update.
type DiscussionRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}
