package core

import (
	"regexp"
	"strings"
)

// Minimum-quality thresholds for parsed topic lines. Shorter titles or
// descriptions almost always mean the generator echoed instructions or
// produced a fragment, so they are discarded rather than trusted.
const (
	MinTopicTitleLen       = 10
	MinTopicDescriptionLen = 20
)

var numberedLine = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)$`)

// ParseTopicLine parses a single numbered line of the form
// "N. Title: Description" into a Topic. The line is split on the first
// colon; an ellipsis is appended when the description lacks terminal
// punctuation. Lines failing the length thresholds are rejected.
func ParseTopicLine(line string) (Topic, bool) {
	m := numberedLine.FindStringSubmatch(line)
	if m == nil {
		return Topic{}, false
	}

	rest := m[1]
	idx := strings.Index(rest, ":")
	if idx < 0 {
		return Topic{}, false
	}

	title := strings.TrimSpace(strings.Trim(rest[:idx], "*_# "))
	description := strings.TrimSpace(strings.Trim(rest[idx+1:], "*_ "))

	if len(title) < MinTopicTitleLen || len(description) < MinTopicDescriptionLen {
		return Topic{}, false
	}

	if !strings.ContainsAny(description[len(description)-1:], ".!?…\"'") {
		description += "..."
	}

	return Topic{Title: title, Description: description}, true
}

// ParseTopics extracts every well-formed topic line from raw generator
// output. Malformed lines are silently filtered; callers treat an empty
// result as the only hard failure.
func ParseTopics(raw string) []Topic {
	var topics []Topic
	for _, line := range strings.Split(raw, "\n") {
		if topic, ok := ParseTopicLine(line); ok {
			topics = append(topics, topic)
		}
	}
	return topics
}
