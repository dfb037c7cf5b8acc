package models

// Category summarizes one category bucket (e.g. group-title from M3U).
type Category struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
