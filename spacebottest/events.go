package spacebottest

import (
	"github.com/denhac/spacebot"
)

// BindEvents binds the test events to an EventBinder.
func BindEvents(binder spacebot.EventBinder) {
	binder.Bind(
		BadgeWasScanned{},
		DoorWasUnlocked{},
	)
}

// BadgeWasScanned is a test event.
type BadgeWasScanned struct {
	ReaderID string `json:"readerID"`
	Number   int    `json:"number"`
}

func (e BadgeWasScanned) AggregateID() string   { return e.ReaderID }
func (e BadgeWasScanned) AggregateType() string { return "badge" }
func (e BadgeWasScanned) EventType() string     { return "BadgeWasScanned" }

// DoorWasUnlocked is a test event in a second aggregate type.
type DoorWasUnlocked struct {
	DoorID string `json:"doorID"`
}

func (e DoorWasUnlocked) AggregateID() string   { return e.DoorID }
func (e DoorWasUnlocked) AggregateType() string { return "door" }
func (e DoorWasUnlocked) EventType() string     { return "DoorWasUnlocked" }
