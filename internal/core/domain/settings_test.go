package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeWords(t *testing.T) {
	merged := MergeWords([]string{"ad", "promo"}, []string{"promo", "spam", "", "ad", "x"})
	assert.Equal(t, []string{"ad", "promo", "spam", "x"}, merged)
}

func TestUserSettings_Clear(t *testing.T) {
	s := &UserSettings{Caption: "hello", CleanWords: []string{"a"}}

	assert.True(t, s.Clear(FieldCaption))
	assert.False(t, s.Clear(FieldCaption))
	assert.True(t, s.Clear(FieldCleanWords))
	assert.Empty(t, s.CleanWords)
	assert.False(t, s.SetValue(FieldCleanWords, "x"))
}

func TestParseChatRef(t *testing.T) {
	ref, err := ParseChatRef("-1004783898/12")
	require.NoError(t, err)
	assert.Equal(t, int64(-1004783898), ref.ID)
	assert.Equal(t, 12, ref.TopicID)
	assert.Equal(t, "-1004783898/12", ref.String())

	ref, err = ParseChatRef("mychannel")
	require.NoError(t, err)
	assert.Equal(t, "@mychannel", ref.Username)

	ref, err = ParseChatRef(" @mychannel ")
	require.NoError(t, err)
	assert.Equal(t, "@mychannel", ref.Username)

	for _, bad := range []string{"", "@", "-100/abc", "two words", "-100/0"} {
		_, err := ParseChatRef(bad)
		assert.True(t, errors.Is(err, ErrInvalidChat), bad)
	}
}
