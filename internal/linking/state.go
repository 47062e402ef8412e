package linking

import "kds-display-backend/internal/model"

// State is the link state of one display.
type State int

const (
	Unlinked State = iota
	Linked
)

func (s State) String() string {
	if s == Linked {
		return "linked"
	}
	return "unlinked"
}

// Event is a user intent applied to a display.
type Event int

const (
	EventLink Event = iota
	EventUnlink
)

// Action is what the engine does in response to an event.
type Action string

const (
	ActionCreate   Action = "create"
	ActionRedirect Action = "redirect"
	ActionDelete   Action = "delete"
)

// StateOf derives the state from a display's current links.
func StateOf(links []model.Link) State {
	if len(links) > 0 {
		return Linked
	}
	return Unlinked
}

// Transition returns the action for an event and the state that follows a
// successful action. A linked products display redirects to its queue's
// product assignment instead of taking a second link.
func Transition(displayType model.DisplayType, state State, event Event) (State, Action) {
	if event == EventUnlink {
		return Unlinked, ActionDelete
	}
	if state == Linked && displayType == model.DisplayProducts {
		return Linked, ActionRedirect
	}
	return Linked, ActionCreate
}
