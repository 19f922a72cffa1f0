// Package models defines the database entity types.
package models

// Upload is one upload attempt recorded in the local history. It never
// carries credentials.
type Upload struct {
	ID         string
	Seq        int
	Label      string
	Filename   string
	Size       int
	ProjectID  int
	OK         bool
	StatusCode int
	Message    string
	CreatedAt  int64
}
