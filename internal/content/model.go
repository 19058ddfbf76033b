// Package content provides the quiz data model shared by the sync engine, the installer and the local store.
package content

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SchemaVersion is written into every Metadata produced by Assemble.
const SchemaVersion = "2.0.0"

// Entity is a remote document: a stable "id" plus arbitrary fields.
type Entity map[string]any

// ID returns the entity id, or an empty string when it is missing.
func (e Entity) ID() string {
	return e.String("id")
}

// String returns a field rendered as a string. Missing or null fields return "".
func (e Entity) String(field string) string {
	v, ok := e[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// Name returns the "name" field.
func (e Entity) Name() string {
	return e.String("name")
}

// Serial returns the numeric "serial" field used to order chapters, or 0.
func (e Entity) Serial() float64 {
	switch t := e["serial"].(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// SortBySerial orders entities by their serial field, keeping the original order for ties.
func SortBySerial(entities []Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Serial() < entities[j].Serial()
	})
}

// ChunkType distinguishes quiz chunks from word-meaning chunks.
type ChunkType string

const (
	ChunkTypeQuiz        ChunkType = "quiz"
	ChunkTypeWordMeaning ChunkType = "wordMeaning"
)

const (
	quizChunkPrefix        = "quiz_"
	wordMeaningChunkPrefix = "wm_"
)

// QuizChunkName returns the chunk key for a quiz subject.
func QuizChunkName(subjectID string) string {
	return quizChunkPrefix + subjectID
}

// WordMeaningChunkName returns the chunk key for a word-meaning subject.
func WordMeaningChunkName(subjectID string) string {
	return wordMeaningChunkPrefix + subjectID
}

// Chunk is a self-contained unit of one subject's content.
//
// For quiz chunks Questions is keyed by chapter id. For word-meaning chunks Pages is keyed
// by chapter id and Questions by page id.
type Chunk struct {
	Type      ChunkType           `json:"type" yaml:"type"`
	Subject   Entity              `json:"subject" yaml:"subject"`
	Chapters  []Entity            `json:"chapters" yaml:"chapters"`
	Pages     map[string][]Entity `json:"pages,omitempty" yaml:"pages,omitempty"`
	Questions map[string][]Entity `json:"questions" yaml:"questions"`
}

// QuestionCount returns the number of questions held by the chunk.
func (c Chunk) QuestionCount() int {
	count := 0
	for _, questions := range c.Questions {
		count += len(questions)
	}
	return count
}

// Check verifies the structural invariants of a chunk.
func (c Chunk) Check() error {
	switch c.Type {
	case ChunkTypeQuiz:
		for _, chapter := range c.Chapters {
			if _, ok := c.Questions[chapter.ID()]; !ok {
				return fmt.Errorf("chapter %q has no questions entry", chapter.ID())
			}
		}
	case ChunkTypeWordMeaning:
		for _, chapter := range c.Chapters {
			pages, ok := c.Pages[chapter.ID()]
			if !ok {
				return fmt.Errorf("chapter %q has no pages entry", chapter.ID())
			}
			for _, page := range pages {
				if _, ok := c.Questions[page.ID()]; !ok {
					return fmt.Errorf("page %q has no questions entry", page.ID())
				}
			}
		}
	default:
		return fmt.Errorf("unknown chunk type %q", c.Type)
	}
	if c.Subject.ID() == "" {
		return fmt.Errorf("chunk subject has no id")
	}
	return nil
}

// Stats summarizes the quiz content of a class.
type Stats struct {
	Subjects    int `json:"subjects" yaml:"subjects"`
	Chapters    int `json:"chapters" yaml:"chapters"`
	Questions   int `json:"questions" yaml:"questions"`
	ChunksCount int `json:"chunksCount" yaml:"chunks_count"`
}

// ErrorRecord is a recorded, non-fatal failure of one unit of work.
type ErrorRecord struct {
	Type    string `json:"type" yaml:"type"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Chapter string `json:"chapter,omitempty" yaml:"chapter,omitempty"`
	Page    string `json:"page,omitempty" yaml:"page,omitempty"`
	Error   string `json:"error" yaml:"error"`
}

// Source names the producer of a Metadata.
type Source string

const (
	SourceExport Source = "export"
	SourceSync   Source = "sync"
)

// Metadata describes the chunks of one class.
type Metadata struct {
	Version    string        `json:"version" yaml:"version" validate:"required"`
	ClassID    string        `json:"classId" yaml:"class_id" validate:"required"`
	LastSync   time.Time     `json:"lastSync" yaml:"last_sync"`
	Source     Source        `json:"source,omitempty" yaml:"source,omitempty"`
	Stats      Stats         `json:"stats" yaml:"stats"`
	ChunksList []string      `json:"chunksList" yaml:"chunks_list" validate:"required,min=1,dive,required"`
	Errors     []ErrorRecord `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// ClassRecord is everything stored locally for one installed class.
type ClassRecord struct {
	ClassID     string           `json:"classId" yaml:"class_id"`
	Metadata    Metadata         `json:"metadata" yaml:"metadata"`
	Chunks      map[string]Chunk `json:"chunks" yaml:"chunks"`
	InstalledAt time.Time        `json:"installedAt" yaml:"installed_at"`
}

// MissingChunks returns the names listed in chunksList that are absent from chunks, in list order.
func MissingChunks(chunksList []string, chunks map[string]Chunk) []string {
	var missing []string
	for _, name := range chunksList {
		if _, ok := chunks[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// ExtraChunks returns the chunk keys that chunksList does not enumerate, sorted.
func ExtraChunks(chunksList []string, chunks map[string]Chunk) []string {
	listed := make(map[string]struct{}, len(chunksList))
	for _, name := range chunksList {
		listed[name] = struct{}{}
	}
	var extra []string
	for name := range chunks {
		if _, ok := listed[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return extra
}

// Check verifies that metadata and chunks agree and that every chunk is well formed.
func (r ClassRecord) Check() error {
	if r.Metadata.ClassID == "" {
		return fmt.Errorf("metadata is missing")
	}
	if len(r.Chunks) == 0 {
		return fmt.Errorf("no chunks found")
	}
	if missing := MissingChunks(r.Metadata.ChunksList, r.Chunks); len(missing) > 0 {
		return fmt.Errorf("missing chunks: %s", strings.Join(missing, ", "))
	}
	if extra := ExtraChunks(r.Metadata.ChunksList, r.Chunks); len(extra) > 0 {
		return fmt.Errorf("unlisted chunks: %s", strings.Join(extra, ", "))
	}
	for _, name := range r.Metadata.ChunksList {
		if err := r.Chunks[name].Check(); err != nil {
			return fmt.Errorf("chunk %s: %w", name, err)
		}
	}
	return nil
}
