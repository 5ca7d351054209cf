package board

import "github.com/Shivanand-hulikatti/activity-board/internal/model"

// PlaceholderLabel is the label of the always-present empty option.
const PlaceholderLabel = "-- Select an activity --"

// View is the rendered list and selection control.
type View struct {
	Cards   []Card
	Options []SelectOption
}

// Card is one rendered activity.
type Card struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	SpotsLeft       int
	Participants    []UnregisterControl
}

// ParticipantCount is the number of rendered roster entries.
func (c Card) ParticipantCount() int {
	return len(c.Participants)
}

// UnregisterControl is a participant entry. Activity and Email are the
// control's addressable identity.
type UnregisterControl struct {
	Activity string
	Email    string
}

// Action returns the action this control dispatches when clicked.
func (u UnregisterControl) Action() UnregisterAction {
	return UnregisterAction{Activity: u.Activity, Email: u.Email}
}

// SelectOption is an entry in the activity selection control.
type SelectOption struct {
	Value string
	Label string
}

// EmptyView is the view before the first successful load: no cards and the
// placeholder option only.
func EmptyView() View {
	return View{Options: []SelectOption{{Value: "", Label: PlaceholderLabel}}}
}

// Render builds a fresh view from catalog. It shares no memory with earlier
// views, so rendering the same catalog twice gives equal results.
func Render(catalog model.Catalog) View {
	v := View{
		Cards:   make([]Card, 0, len(catalog)),
		Options: make([]SelectOption, 0, len(catalog)+1),
	}
	v.Options = append(v.Options, SelectOption{Value: "", Label: PlaceholderLabel})

	for _, a := range catalog {
		participants := make([]UnregisterControl, 0, len(a.Participants))
		for _, p := range a.Participants {
			participants = append(participants, UnregisterControl{Activity: a.Name, Email: p})
		}
		v.Cards = append(v.Cards, Card{
			Name:            a.Name,
			Description:     a.Description,
			Schedule:        a.Schedule,
			MaxParticipants: a.MaxParticipants,
			SpotsLeft:       a.SpotsLeft(),
			Participants:    participants,
		})
		v.Options = append(v.Options, SelectOption{Value: a.Name, Label: a.Name})
	}
	return v
}
