package domain

import "fmt"

// Action is a settings menu action carried in inline button callback data.
type Action int

const (
	ActionUnknown Action = iota
	ActionSetChat
	ActionSetRename
	ActionSetCaption
	ActionSetReplacement
	ActionAddSession
	ActionDeleteWords
	ActionSetThumbnail
	ActionLogout
	ActionReset
	ActionRemoveThumbnail
)

var actionData = map[Action]string{
	ActionSetChat:         "setchat",
	ActionSetRename:       "setrename",
	ActionSetCaption:      "setcaption",
	ActionSetReplacement:  "setreplacement",
	ActionAddSession:      "addsession",
	ActionDeleteWords:     "delete",
	ActionSetThumbnail:    "setthumb",
	ActionLogout:          "logout",
	ActionReset:           "reset",
	ActionRemoveThumbnail: "remthumb",
}

var actionByData = func() map[string]Action {
	m := make(map[string]Action, len(actionData))
	for a, d := range actionData {
		m[d] = a
	}
	return m
}()

// ParseAction maps callback data back to an Action.
func ParseAction(data string) (Action, error) {
	if a, ok := actionByData[data]; ok {
		return a, nil
	}
	return ActionUnknown, fmt.Errorf("%w: %q", ErrUnknownAction, data)
}

// CallbackData is the string placed in the inline button.
func (a Action) CallbackData() string {
	return actionData[a]
}

func (a Action) String() string {
	if d, ok := actionData[a]; ok {
		return d
	}
	return "unknown"
}

// Conversational reports whether the action waits for a follow-up message
// from the user instead of completing immediately.
func (a Action) Conversational() bool {
	switch a {
	case ActionSetChat, ActionSetRename, ActionSetCaption, ActionSetReplacement,
		ActionAddSession, ActionDeleteWords, ActionSetThumbnail:
		return true
	case ActionLogout, ActionReset, ActionRemoveThumbnail, ActionUnknown:
		return false
	}
	return false
}
