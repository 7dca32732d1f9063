package models

// Ktav is a written piece for the writings section.
type Ktav struct {
	Entry
	Title   string `json:"title"   gorm:"not null"`
	Content string `json:"content" gorm:"type:text;not null"`
}

func (Ktav) TableName() string { return "ktavim" }
