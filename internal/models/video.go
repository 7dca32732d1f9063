package models

// Video is a YouTube link shown in one of the site's video sections.
type Video struct {
	Entry
	Title     string `json:"title"     gorm:"not null"`
	YoutubeID string `json:"youtubeId" gorm:"column:youtube_id;not null"`
	Section   string `json:"section"   gorm:"index;not null"`
}

func (Video) TableName() string { return "videos" }
