package remote

import (
	"fmt"
	"strings"
)

// Collection names a kind of document in the remote store.
type Collection string

const (
	CollectionSubjects             Collection = "subjects"
	CollectionChapters             Collection = "chapters"
	CollectionQuestions            Collection = "questions"
	CollectionWordMeaningSubjects  Collection = "wordMeaning/subjects"
	CollectionWordMeaningChapters  Collection = "wordMeaning/chapters"
	CollectionWordMeaningPages     Collection = "wordMeaning/pages"
	CollectionWordMeaningQuestions Collection = "wordMeaning/questions"
)

// Collections lists every collection, parents before children.
var Collections = []Collection{
	CollectionSubjects,
	CollectionChapters,
	CollectionQuestions,
	CollectionWordMeaningSubjects,
	CollectionWordMeaningChapters,
	CollectionWordMeaningPages,
	CollectionWordMeaningQuestions,
}

// HasParent reports whether documents of the collection are grouped under a parent id.
func (c Collection) HasParent() bool {
	return c != CollectionSubjects && c != CollectionWordMeaningSubjects
}

// Path returns the document path of the collection, for example "chapters/<subjectId>".
func (c Collection) Path(parentID string) (string, error) {
	if !c.Valid() {
		return "", fmt.Errorf("unknown collection %q", c)
	}
	if !c.HasParent() {
		return string(c), nil
	}
	if parentID == "" || strings.Contains(parentID, "/") {
		return "", fmt.Errorf("collection %s requires a parent id, got %q", c, parentID)
	}
	return string(c) + "/" + parentID, nil
}

func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCollection accepts both the path form ("wordMeaning/pages") and a short flag-friendly form ("wm-pages").
func ParseCollection(s string) (Collection, error) {
	aliases := map[string]Collection{
		"wm-subjects":  CollectionWordMeaningSubjects,
		"wm-chapters":  CollectionWordMeaningChapters,
		"wm-pages":     CollectionWordMeaningPages,
		"wm-questions": CollectionWordMeaningQuestions,
	}
	if c, ok := aliases[s]; ok {
		return c, nil
	}
	c := Collection(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown collection %q", s)
	}
	return c, nil
}
