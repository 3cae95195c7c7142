package envelope

import "regexp"

// mentionRegex matches id-like tokens such as "daf2c@" or "err@": lowercase
// letters, optionally one digit and more letters, then "@". It also matches
// inside longer addresses and mid-sentence.
var mentionRegex = regexp.MustCompile(`([a-z]+(?:[0-9][a-z]+)?)@`)

// Mentions scans text for userid mentions not already in seen. New ids are
// added to seen and returned in order of first appearance.
func Mentions(text string, seen map[string]struct{}) []string {
	var found []string
	for _, m := range mentionRegex.FindAllStringSubmatch(text, -1) {
		userID := m[1]
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		found = append(found, userID)
	}
	return found
}
