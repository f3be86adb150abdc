package models

// Source is a news outlet the operator wants scanned
type Source struct {
	ID     string `json:"id" yaml:"id"`
	URL    string `json:"url" yaml:"url"`
	Name   string `json:"name" yaml:"name"`
	Active bool   `json:"active" yaml:"active"`
}
