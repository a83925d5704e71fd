// ABOUTME: Meeting link extraction from event fields
// ABOUTME: Scans candidate strings for known conferencing URL shapes
package convert

import "regexp"

// Ordered by how specific the pattern is; first hit wins.
var meetingURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https://[a-zA-Z0-9.-]*zoom\.us/j/[0-9]+[^\s<>"']*`),
	regexp.MustCompile(`https://meet\.google\.com/[a-z]+(?:-[a-z]+)+[^\s<>"']*`),
	regexp.MustCompile(`https://teams\.microsoft\.com/l/meetup-join/[^\s<>"']+`),
	regexp.MustCompile(`https://[a-zA-Z0-9.-]*webex\.com/(?:meet|join)/[^\s<>"']+`),
}

// FindMeetingURL returns the first conferencing link found in the candidate
// strings, checked in order. Empty when none match.
func FindMeetingURL(candidates ...string) string {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, re := range meetingURLPatterns {
			if m := re.FindString(c); m != "" {
				return m
			}
		}
	}
	return ""
}
