package mongo

import (
	"time"

	"mirrorbot/internal/core/domain"
)

// premiumDocument is a record of the premium collection.
type premiumDocument struct {
	UserID     int64      `bson:"_id"`
	ExpireDate *time.Time `bson:"expire_date,omitempty"`
}

func (d *premiumDocument) toDomain() (*domain.Entitlement, error) {
	if d.ExpireDate == nil || d.ExpireDate.IsZero() {
		return nil, domain.ErrNotEntitled
	}
	expireAt := *d.ExpireDate
	return &domain.Entitlement{UserID: domain.UserID(d.UserID), ExpireAt: &expireAt}, nil
}

// settingsDocument is a record of the users collection. Field names follow
// domain.SettingsField.
type settingsDocument struct {
	UserID          int64    `bson:"_id"`
	ChatID          string   `bson:"chat_id,omitempty"`
	RenameTag       string   `bson:"rename_tag,omitempty"`
	Caption         string   `bson:"caption,omitempty"`
	ReplaceTxt      string   `bson:"replace_txt,omitempty"`
	ToReplace       string   `bson:"to_replace,omitempty"`
	CleanWords      []string `bson:"clean_words,omitempty"`
	Session         string   `bson:"session,omitempty"`
	ThumbnailFileID string   `bson:"thumbnail_file_id,omitempty"`
}

func (d *settingsDocument) toDomain() *domain.UserSettings {
	return &domain.UserSettings{
		UserID:          domain.UserID(d.UserID),
		ChatID:          d.ChatID,
		RenameTag:       d.RenameTag,
		Caption:         d.Caption,
		ReplaceTxt:      d.ReplaceTxt,
		ToReplace:       d.ToReplace,
		CleanWords:      d.CleanWords,
		Session:         d.Session,
		ThumbnailFileID: d.ThumbnailFileID,
	}
}
