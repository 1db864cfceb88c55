package chat

import "regexp"

// mentionPattern matches @username tokens: 2-20 word characters preceded
// by start-of-text or a non-word character. Email-like strings can
// over-match; that is accepted, resolution against real usernames filters
// the rest.
var mentionPattern = regexp.MustCompile(`(?:^|[^0-9A-Za-z_])@(\w{2,20})`)

// ExtractMentions returns the de-duplicated candidate usernames mentioned
// in text, in order of first appearance. Resolving candidates to users and
// excluding the sender is the caller's job.
func ExtractMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	usernames := make([]string, 0, len(matches))
	for _, match := range matches {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		usernames = append(usernames, name)
	}
	return usernames
}
