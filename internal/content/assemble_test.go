package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		dataset        Dataset
		wantChunksList []string
		wantStats      Stats
	}{
		{
			name: "quiz subjects become quiz chunks",
			dataset: Dataset{
				ClassID:  "11th",
				Subjects: []Entity{{"id": "phy", "name": "Physics"}, {"id": "chem", "name": "Chemistry"}},
				Chapters: map[string][]Entity{
					"phy":  {{"id": "p1"}, {"id": "p2"}},
					"chem": {{"id": "c1"}},
				},
				Questions: map[string][]Entity{
					"p1": {{"id": "q1"}, {"id": "q2"}},
					"c1": {{"id": "q3"}},
				},
			},
			wantChunksList: []string{"quiz_phy", "quiz_chem"},
			wantStats:      Stats{Subjects: 2, Chapters: 3, Questions: 3, ChunksCount: 2},
		},
		{
			name: "word meaning subjects are appended after quiz chunks",
			dataset: Dataset{
				ClassID:  "10th",
				Subjects: []Entity{{"id": "eng"}},
				WordMeaning: &WordMeaningDataset{
					Subjects:  []Entity{{"id": "vocab"}},
					Chapters:  map[string][]Entity{"vocab": {{"id": "v1"}}},
					Pages:     map[string][]Entity{"v1": {{"id": "pg1"}}},
					Questions: map[string][]Entity{"pg1": {{"id": "w1"}}},
				},
			},
			wantChunksList: []string{"quiz_eng", "wm_vocab"},
			wantStats:      Stats{Subjects: 1, Chapters: 0, Questions: 0, ChunksCount: 2},
		},
		{
			name: "duplicated subjects are listed once",
			dataset: Dataset{
				ClassID:  "9th",
				Subjects: []Entity{{"id": "math"}, {"id": "math"}},
			},
			wantChunksList: []string{"quiz_math"},
			wantStats:      Stats{Subjects: 1, ChunksCount: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metadata, chunks := Assemble(tt.dataset, SourceSync, now)

			assert.Equal(t, SchemaVersion, metadata.Version)
			assert.Equal(t, tt.dataset.ClassID, metadata.ClassID)
			assert.Equal(t, now, metadata.LastSync)
			assert.Equal(t, SourceSync, metadata.Source)
			assert.Equal(t, tt.wantChunksList, metadata.ChunksList)
			assert.Equal(t, tt.wantStats, metadata.Stats)

			record := ClassRecord{ClassID: tt.dataset.ClassID, Metadata: metadata, Chunks: chunks}
			require.NoError(t, record.Check())
		})
	}
}

func TestAssemble_EveryChapterHasQuestionsEntry(t *testing.T) {
	ds := Dataset{
		ClassID:  "11th",
		Subjects: []Entity{{"id": "phy"}},
		Chapters: map[string][]Entity{"phy": {{"id": "p1"}, {"id": "p2"}}},
		Questions: map[string][]Entity{
			"p1": {{"id": "q1"}},
		},
	}

	_, chunks := Assemble(ds, SourceExport, time.Now())

	chunk := chunks["quiz_phy"]
	require.Contains(t, chunk.Questions, "p2")
	assert.NotNil(t, chunk.Questions["p2"])
	assert.Empty(t, chunk.Questions["p2"])
	assert.Equal(t, 1, chunk.QuestionCount())
}

func TestClassRecord_Check(t *testing.T) {
	valid := Chunk{
		Type:      ChunkTypeQuiz,
		Subject:   Entity{"id": "phy"},
		Chapters:  []Entity{{"id": "p1"}},
		Questions: map[string][]Entity{"p1": {}},
	}

	tests := []struct {
		name    string
		record  ClassRecord
		wantErr string
	}{
		{
			name: "valid",
			record: ClassRecord{
				Metadata: Metadata{ClassID: "11th", ChunksList: []string{"quiz_phy"}},
				Chunks:   map[string]Chunk{"quiz_phy": valid},
			},
		},
		{
			name:    "missing metadata",
			record:  ClassRecord{Chunks: map[string]Chunk{"quiz_phy": valid}},
			wantErr: "metadata is missing",
		},
		{
			name: "no chunks",
			record: ClassRecord{
				Metadata: Metadata{ClassID: "11th", ChunksList: []string{"quiz_phy"}},
			},
			wantErr: "no chunks found",
		},
		{
			name: "listed chunk is absent",
			record: ClassRecord{
				Metadata: Metadata{ClassID: "11th", ChunksList: []string{"quiz_phy", "quiz_chem"}},
				Chunks:   map[string]Chunk{"quiz_phy": valid},
			},
			wantErr: "missing chunks: quiz_chem",
		},
		{
			name: "unlisted chunk",
			record: ClassRecord{
				Metadata: Metadata{ClassID: "11th", ChunksList: []string{"quiz_phy"}},
				Chunks:   map[string]Chunk{"quiz_phy": valid, "quiz_bio": valid},
			},
			wantErr: "unlisted chunks: quiz_bio",
		},
		{
			name: "chapter without questions entry",
			record: ClassRecord{
				Metadata: Metadata{ClassID: "11th", ChunksList: []string{"quiz_phy"}},
				Chunks: map[string]Chunk{"quiz_phy": {
					Type:      ChunkTypeQuiz,
					Subject:   Entity{"id": "phy"},
					Chapters:  []Entity{{"id": "p1"}},
					Questions: map[string][]Entity{},
				}},
			},
			wantErr: `chunk quiz_phy: chapter "p1" has no questions entry`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Check()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestEntity(t *testing.T) {
	e := Entity{"id": "c1", "serial": float64(3), "name": "Motion", "count": float64(2.5), "flag": true}

	assert.Equal(t, "c1", e.ID())
	assert.Equal(t, "Motion", e.Name())
	assert.Equal(t, "2.5", e.String("count"))
	assert.Equal(t, "true", e.String("flag"))
	assert.Equal(t, "", e.String("missing"))
	assert.Equal(t, float64(3), e.Serial())

	chapters := []Entity{{"id": "b", "serial": float64(2)}, {"id": "a", "serial": float64(1)}, {"id": "c"}}
	SortBySerial(chapters)
	assert.Equal(t, []string{"c", "a", "b"}, []string{chapters[0].ID(), chapters[1].ID(), chapters[2].ID()})
}
