package models

import "time"

// Entry holds the columns shared by every moderated content kind.
// ID is the store-assigned handle: a surrogate key in SQL mode, the list position in file mode.
type Entry struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	Approved  bool      `json:"approved"   gorm:"not null;default:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (e *Entry) EntryID() int64            { return e.ID }
func (e *Entry) SetEntryID(id int64)       { e.ID = id }
func (e *Entry) IsApproved() bool          { return e.Approved }
func (e *Entry) SetApproved(approved bool) { e.Approved = approved }
func (e *Entry) Created() time.Time        { return e.CreatedAt }
func (e *Entry) SetCreated(t time.Time)    { e.CreatedAt = t }
