package datasync

import (
	"strings"

	"github.com/at-ishikawa/quizsync/internal/content"
)

// SubjectRule decides whether a subject belongs to a class.
type SubjectRule struct {
	Name  string
	Match func(subject content.Entity, classID string) bool
}

func fieldEquals(field string) SubjectRule {
	return SubjectRule{
		Name: field,
		Match: func(subject content.Entity, classID string) bool {
			return subject.String(field) == classID
		},
	}
}

// NameOrIDContains matches subjects whose name or id contains the class id, ignoring case.
var NameOrIDContains = SubjectRule{
	Name: "nameOrId",
	Match: func(subject content.Entity, classID string) bool {
		needle := strings.ToLower(classID)
		return strings.Contains(strings.ToLower(subject.Name()), needle) ||
			strings.Contains(strings.ToLower(subject.ID()), needle)
	},
}

// DefaultRules is tried in order until one rule matches at least one subject.
var DefaultRules = []SubjectRule{
	fieldEquals("classId"),
	fieldEquals("class"),
	fieldEquals("className"),
	NameOrIDContains,
}

// RuleAllSubjects is reported when no rule matched and every subject was kept.
const RuleAllSubjects = "all"

// SubjectMatcher selects the subjects of a class.
type SubjectMatcher struct {
	Rules []SubjectRule
	// FallbackToAll keeps every subject when no rule matches any.
	FallbackToAll bool
}

// NewSubjectMatcher returns a matcher over DefaultRules.
func NewSubjectMatcher(fallbackToAll bool) SubjectMatcher {
	return SubjectMatcher{Rules: DefaultRules, FallbackToAll: fallbackToAll}
}

// Match returns the subjects picked by the first rule with a non-empty result and that rule's name.
// The rule name is empty when nothing matched and there was no fallback.
func (m SubjectMatcher) Match(subjects []content.Entity, classID string) ([]content.Entity, string) {
	for _, rule := range m.Rules {
		var matched []content.Entity
		for _, subject := range subjects {
			if rule.Match(subject, classID) {
				matched = append(matched, subject)
			}
		}
		if len(matched) > 0 {
			return matched, rule.Name
		}
	}
	if m.FallbackToAll {
		return subjects, RuleAllSubjects
	}
	return []content.Entity{}, ""
}
