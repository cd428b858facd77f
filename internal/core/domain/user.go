package domain

import (
	"strconv"
	"strings"
)

// UserID is a Telegram user identifier.
type UserID int64

func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseUserID parses a decimal Telegram user id.
func ParseUserID(s string) (UserID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return UserID(v), nil
}

type User struct {
	ID        UserID
	FirstName string
	LastName  string
	Username  string
}

// DisplayName returns the best human readable name for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return "Unknown"
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.ID.String()
}
