package models

// Memory is a visitor-submitted remembrance.
type Memory struct {
	Entry
	Name    string `json:"name"    gorm:"not null"`
	Message string `json:"message" gorm:"type:text;not null"`
}

func (Memory) TableName() string { return "memories" }
