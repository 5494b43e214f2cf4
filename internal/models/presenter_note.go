package models

import "strconv"

// PresenterNote holds the generated speaker notes for one slide.
type PresenterNote struct {
	Base           `bson:",inline"`
	PresentationID string      `json:"presentationId" gorm:"type:varchar(191);index;not null" bson:"presentationId"`
	SlideNumber    int         `json:"slideNumber"    gorm:"not null" bson:"slideNumber"`
	Title          string      `json:"title"          bson:"title"`
	Points         StringArray `json:"points"         gorm:"type:longtext" bson:"points"`
	SuggestedTime  string      `json:"suggestedTime"  bson:"suggestedTime"`
	KeyPhrases     StringArray `json:"keyPhrases"     gorm:"type:longtext" bson:"keyPhrases"`
	DemoTags       StringArray `json:"demoTags"       gorm:"type:longtext" bson:"demoTags"`
}

func (PresenterNote) TableName() string { return "presenter_notes" }

func (n *PresenterNote) KeyHash() string {
	return NoteKey{PresentationID: n.PresentationID, SlideNumber: n.SlideNumber}.Hash()
}

// NoteKey identifies one slide of one presentation.
type NoteKey struct {
	PresentationID string
	SlideNumber    int
}

func (k NoteKey) Hash() string {
	return HashKey("note", k.PresentationID, strconv.Itoa(k.SlideNumber))
}

// NoteKeyHash adapts NoteKey.Hash for store constructors.
func NoteKeyHash(k NoteKey) string { return k.Hash() }
