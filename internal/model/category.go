package model

// Category is a flat reference row used to resolve category ids during
// preset-driven matching and by the categorization workflow.
type Category struct {
	Name        string
	Description string
	Emoji       string
	Type        string
	ID          int
	GroupID     int
	IsActive    bool
}

// CategoryGroup groups categories for reporting.
type CategoryGroup struct {
	Name     string
	Color    string
	Emoji    string
	ID       int
	IsActive bool
}
