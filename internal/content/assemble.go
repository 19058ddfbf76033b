package content

import "time"

// Dataset is the raw content of one class as fetched from the remote store.
type Dataset struct {
	ClassID string
	// Subjects in the order they should appear in chunksList.
	Subjects []Entity
	// Chapters by subject id.
	Chapters map[string][]Entity
	// Questions by chapter id.
	Questions   map[string][]Entity
	WordMeaning *WordMeaningDataset
	Errors      []ErrorRecord
}

// WordMeaningDataset is the raw word-meaning content of one class.
type WordMeaningDataset struct {
	Subjects []Entity
	// Chapters by subject id.
	Chapters map[string][]Entity
	// Pages by chapter id.
	Pages map[string][]Entity
	// Questions by page id.
	Questions map[string][]Entity
}

// Assemble turns a dataset into metadata and chunks.
// Sync and export both go through here so that their output is interchangeable.
func Assemble(ds Dataset, source Source, now time.Time) (Metadata, map[string]Chunk) {
	chunks := make(map[string]Chunk)
	chunksList := make([]string, 0, len(ds.Subjects))
	var stats Stats

	for _, subject := range ds.Subjects {
		name := QuizChunkName(subject.ID())
		if _, ok := chunks[name]; ok {
			continue
		}

		chapters := nonNil(ds.Chapters[subject.ID()])
		questions := make(map[string][]Entity, len(chapters))
		for _, chapter := range chapters {
			qs := nonNil(ds.Questions[chapter.ID()])
			questions[chapter.ID()] = qs
			stats.Questions += len(qs)
		}
		stats.Subjects++
		stats.Chapters += len(chapters)

		chunks[name] = Chunk{
			Type:      ChunkTypeQuiz,
			Subject:   subject,
			Chapters:  chapters,
			Questions: questions,
		}
		chunksList = append(chunksList, name)
	}

	if wm := ds.WordMeaning; wm != nil {
		for _, subject := range wm.Subjects {
			name := WordMeaningChunkName(subject.ID())
			if _, ok := chunks[name]; ok {
				continue
			}

			chapters := nonNil(wm.Chapters[subject.ID()])
			pages := make(map[string][]Entity, len(chapters))
			questions := make(map[string][]Entity)
			for _, chapter := range chapters {
				chapterPages := nonNil(wm.Pages[chapter.ID()])
				pages[chapter.ID()] = chapterPages
				for _, page := range chapterPages {
					questions[page.ID()] = nonNil(wm.Questions[page.ID()])
				}
			}

			chunks[name] = Chunk{
				Type:      ChunkTypeWordMeaning,
				Subject:   subject,
				Chapters:  chapters,
				Pages:     pages,
				Questions: questions,
			}
			chunksList = append(chunksList, name)
		}
	}

	stats.ChunksCount = len(chunksList)

	metadata := Metadata{
		Version:    SchemaVersion,
		ClassID:    ds.ClassID,
		LastSync:   now.UTC(),
		Source:     source,
		Stats:      stats,
		ChunksList: chunksList,
	}
	if len(ds.Errors) > 0 {
		metadata.Errors = append([]ErrorRecord(nil), ds.Errors...)
	}
	return metadata, chunks
}

func nonNil(entities []Entity) []Entity {
	if entities == nil {
		return []Entity{}
	}
	return entities
}
