package models

import "time"

// GalleryItem is an uploaded photo. PublicID is the media host's deletion handle;
// Filename is only set on items uploaded to the local disk by early revisions.
type GalleryItem struct {
	Entry
	URL      string `json:"url"                 gorm:"type:varchar(1024);not null"`
	PublicID string `json:"public_id,omitempty" gorm:"type:varchar(512)"`
	Caption  string `json:"caption"             gorm:"type:text"`
	Uploader string `json:"uploader"`
	Filename string `json:"filename,omitempty"`
}

func (GalleryItem) TableName() string { return "gallery_items" }

// StaticSlot is one of the six fixed, always-visible gallery positions.
type StaticSlot struct {
	Slot      int       `json:"slot"                gorm:"primaryKey;autoIncrement:false"`
	URL       string    `json:"url"                 gorm:"type:varchar(1024);not null"`
	PublicID  string    `json:"public_id,omitempty" gorm:"type:varchar(512)"`
	Caption   string    `json:"caption"             gorm:"type:text"`
	Uploader  string    `json:"uploader"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StaticSlot) TableName() string { return "static_gallery_slots" }
