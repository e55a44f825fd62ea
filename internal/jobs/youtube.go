package jobs

import (
	"regexp"
	"strings"
)

// InvalidURLMessage is shown when a submitted link is not a YouTube video.
const InvalidURLMessage = "Пожалуйста, введите корректную ссылку на YouTube"

var (
	youtubeURLPattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/(watch\?v=|live/)|youtu\.be/)[a-zA-Z0-9_-]+`)
	youtubeIDPattern  = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|live/)|youtu\.be/)([a-zA-Z0-9_-]+)`)
)

// IsYouTubeURL reports whether raw looks like a YouTube watch, live, or short link.
func IsYouTubeURL(raw string) bool {
	return youtubeURLPattern.MatchString(strings.TrimSpace(raw))
}

// ExtractVideoID returns the YouTube video id embedded in raw.
func ExtractVideoID(raw string) (string, bool) {
	match := youtubeIDPattern.FindStringSubmatch(raw)
	if len(match) < 2 {
		return "", false
	}
	return match[1], true
}
