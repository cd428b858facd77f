package services

import (
	"path"
	"strings"
	"unicode"

	"mirrorbot/internal/core/domain"
)

const defaultExtension = "mp4"

var videoExtensions = map[string]struct{}{
	"mp4": {}, "mkv": {}, "avi": {}, "mov": {}, "wmv": {},
	"flv": {}, "webm": {}, "mpeg": {}, "mpg": {}, "3gp": {},
}

// splitExtension separates a file name into base name and the extension the
// renamed file will carry. Video containers become mp4; anything that does
// not look like an extension is dropped in favour of mp4.
func splitExtension(fileName string) (string, string) {
	dot := strings.LastIndex(fileName, ".")
	if dot <= 0 {
		return fileName, defaultExtension
	}

	base, ext := fileName[:dot], fileName[dot+1:]
	if !isAlpha(ext) || len(ext) > 9 {
		return base, defaultExtension
	}
	if _, ok := videoExtensions[strings.ToLower(ext)]; ok {
		return base, defaultExtension
	}
	return base, ext
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// cleanText strips delete words and applies the configured replacement.
func cleanText(text string, s *domain.UserSettings) string {
	for _, w := range s.CleanWords {
		if w != "" {
			text = strings.ReplaceAll(text, w, "")
		}
	}
	if s.ReplaceTxt != "" && s.ToReplace != "" {
		text = strings.ReplaceAll(text, s.ReplaceTxt, s.ToReplace)
	}
	return text
}

// Rename builds the uploaded file name "<name> <tag>.<ext>" from the original
// name and the user's preferences. Directory components are discarded.
func Rename(fileName string, s *domain.UserSettings) string {
	if s == nil {
		s = &domain.UserSettings{}
	}

	base, ext := splitExtension(path.Base(strings.ReplaceAll(fileName, "\\", "/")))
	base = strings.TrimSpace(cleanText(base, s))

	tag := strings.TrimSpace(s.RenameTag)
	if tag == "" {
		return base + "." + ext
	}
	return base + " " + tag + "." + ext
}

// RenderCaption cleans the original caption and appends the user's custom
// caption below it.
func RenderCaption(original string, s *domain.UserSettings) string {
	if s == nil {
		return original
	}

	caption := strings.TrimSpace(cleanText(original, s))
	custom := strings.TrimSpace(s.Caption)
	switch {
	case custom == "":
		return caption
	case caption == "":
		return custom
	default:
		return caption + "\n\n" + custom
	}
}
