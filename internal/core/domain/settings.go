package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SettingsField names a stored per-user preference. The values double as
// document field names.
type SettingsField string

const (
	FieldChatID     SettingsField = "chat_id"
	FieldRenameTag  SettingsField = "rename_tag"
	FieldCaption    SettingsField = "caption"
	FieldReplaceTxt SettingsField = "replace_txt"
	FieldToReplace  SettingsField = "to_replace"
	FieldCleanWords SettingsField = "clean_words"
	FieldSession    SettingsField = "session"
	FieldThumbnail  SettingsField = "thumbnail_file_id"
)

// ResetFields are cleared by a settings reset. The session string survives a
// reset and is only dropped by logout.
var ResetFields = []SettingsField{
	FieldCleanWords,
	FieldReplaceTxt,
	FieldToReplace,
	FieldRenameTag,
	FieldCaption,
	FieldChatID,
	FieldThumbnail,
}

// UserSettings holds the file processing preferences of a user.
type UserSettings struct {
	UserID          UserID
	ChatID          string
	RenameTag       string
	Caption         string
	ReplaceTxt      string
	ToReplace       string
	CleanWords      []string
	Session         string
	ThumbnailFileID string
}

// Value returns the string value of a scalar field.
func (s *UserSettings) Value(field SettingsField) string {
	switch field {
	case FieldChatID:
		return s.ChatID
	case FieldRenameTag:
		return s.RenameTag
	case FieldCaption:
		return s.Caption
	case FieldReplaceTxt:
		return s.ReplaceTxt
	case FieldToReplace:
		return s.ToReplace
	case FieldSession:
		return s.Session
	case FieldThumbnail:
		return s.ThumbnailFileID
	case FieldCleanWords:
		return strings.Join(s.CleanWords, " ")
	}
	return ""
}

// SetValue assigns a scalar field. It returns false for clean_words and
// unknown fields.
func (s *UserSettings) SetValue(field SettingsField, value string) bool {
	switch field {
	case FieldChatID:
		s.ChatID = value
	case FieldRenameTag:
		s.RenameTag = value
	case FieldCaption:
		s.Caption = value
	case FieldReplaceTxt:
		s.ReplaceTxt = value
	case FieldToReplace:
		s.ToReplace = value
	case FieldSession:
		s.Session = value
	case FieldThumbnail:
		s.ThumbnailFileID = value
	default:
		return false
	}
	return true
}

// Clear empties a field and reports whether it held a value.
func (s *UserSettings) Clear(field SettingsField) bool {
	if field == FieldCleanWords {
		had := len(s.CleanWords) > 0
		s.CleanWords = nil
		return had
	}
	had := s.Value(field) != ""
	s.SetValue(field, "")
	return had
}

// HasDeleteWord reports whether word is on the delete list.
func (s *UserSettings) HasDeleteWord(word string) bool {
	for _, w := range s.CleanWords {
		if w == word {
			return true
		}
	}
	return false
}

// MergeWords returns the set union of existing and added, keeping the order in
// which words were first seen.
func MergeWords(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	merged := make([]string, 0, len(existing)+len(added))
	for _, list := range [][]string{existing, added} {
		for _, w := range list {
			if w == "" {
				continue
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			merged = append(merged, w)
		}
	}
	return merged
}

// ChatRef is a target chat as typed by a user: a numeric id such as
// -1001234567890 or a public @username, optionally followed by /TOPIC_ID.
type ChatRef struct {
	ID       int64
	Username string
	TopicID  int
}

// ParseChatRef parses the chat reference accepted by the setchat action.
func ParseChatRef(input string) (ChatRef, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return ChatRef{}, fmt.Errorf("%w: empty", ErrInvalidChat)
	}

	raw, topic, hasTopic := strings.Cut(input, "/")
	var ref ChatRef
	if hasTopic {
		t, err := strconv.Atoi(strings.TrimSpace(topic))
		if err != nil || t <= 0 {
			return ChatRef{}, fmt.Errorf("%w: bad topic id %q", ErrInvalidChat, topic)
		}
		ref.TopicID = t
	}

	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		ref.ID = id
		return ref, nil
	}

	name := strings.TrimPrefix(raw, "@")
	if name == "" || strings.ContainsAny(name, " \t@") {
		return ChatRef{}, fmt.Errorf("%w: %q", ErrInvalidChat, input)
	}
	ref.Username = "@" + name
	return ref, nil
}

func (r ChatRef) String() string {
	base := r.Username
	if base == "" {
		base = strconv.FormatInt(r.ID, 10)
	}
	if r.TopicID > 0 {
		return fmt.Sprintf("%s/%d", base, r.TopicID)
	}
	return base
}
