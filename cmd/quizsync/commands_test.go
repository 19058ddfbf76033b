package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/quizsync/internal/content"
	"github.com/at-ishikawa/quizsync/internal/testutil"
)

type recordedWrite struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeFirebase serves a class fixture the way the realtime database REST API does and records writes.
type fakeFirebase struct {
	*httptest.Server

	mu     sync.Mutex
	writes []recordedWrite
}

func newFakeFirebase(t *testing.T, fixture testutil.ClassFixture) *fakeFirebase {
	t.Helper()

	byID := func(entities []content.Entity) map[string]content.Entity {
		node := make(map[string]content.Entity, len(entities))
		for _, e := range entities {
			node[e.ID()] = e
		}
		return node
	}

	f := &fakeFirebase{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json")
		if r.Method != http.MethodGet {
			var body map[string]any
			if data, _ := io.ReadAll(r.Body); len(data) > 0 {
				_ = json.Unmarshal(data, &body)
			}
			f.mu.Lock()
			f.writes = append(f.writes, recordedWrite{Method: r.Method, Path: path, Body: body})
			f.mu.Unlock()
			_, _ = w.Write([]byte("null"))
			return
		}

		var node any
		collection, parentID, _ := strings.Cut(path, "/")
		switch collection {
		case "subjects":
			node = byID(fixture.Subjects)
		case "chapters":
			node = byID(fixture.Chapters[parentID])
		case "questions":
			node = byID(fixture.Questions[parentID])
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(node))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeFirebase) Writes() []recordedWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedWrite(nil), f.writes...)
}

type cliEnv struct {
	tmpDir     string
	configPath string
	firebase   *fakeFirebase
}

func newCLIEnv(t *testing.T, fixture testutil.ClassFixture) *cliEnv {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = noColor
	})

	tmpDir := t.TempDir()
	configPath := testutil.SetupTestConfig(t, tmpDir)
	firebase := newFakeFirebase(t, fixture)

	// The installer reads what the export command writes.
	data := httptest.NewServer(http.StripPrefix("/pwa-data/", http.FileServer(http.Dir(filepath.Join(tmpDir, "export")))))
	t.Cleanup(data.Close)

	f, err := os.OpenFile(configPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = fmt.Fprintf(f, "remote:\n  firebase:\n    base_url: %s\ndata:\n  base_url: %s\n", firebase.URL, data.URL)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	return &cliEnv{tmpDir: tmpDir, configPath: configPath, firebase: firebase}
}

func (env *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func (env *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := env.run(t, args...)
	require.NoError(t, err, "quizsync %s", strings.Join(args, " "))
	return out
}

func TestCommands_SyncExportInstall(t *testing.T) {
	fixture := testutil.NewClassFixture("11th")
	env := newCLIEnv(t, fixture)

	out := env.mustRun(t, "classes")
	assert.Equal(t, "No classes installed\n", out)

	out = env.mustRun(t, "sync", "11th")
	assert.Contains(t, out, "Synced 11th in ")
	assert.Contains(t, out, "2 subjects, 6 chapters, 60 questions, 2 chunks")
	assert.NotContains(t, out, "errors")

	out = env.mustRun(t, "validate", "11th")
	assert.Equal(t, "✓ 11th is valid: 2 chunks, 60 questions\n", out)

	out = env.mustRun(t, "export", "11th")
	files := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, files, 3)
	for _, file := range files {
		assert.FileExists(t, file)
	}

	env.mustRun(t, "uninstall", "11th")
	out = env.mustRun(t, "classes")
	assert.Equal(t, "No classes installed\n", out)

	out = env.mustRun(t, "install", "11th")
	assert.Contains(t, out, "[100%] Installation complete! 11th is ready to use offline.\n")
	assert.Contains(t, out, "Installed 11th: 2 subjects, 6 chapters, 60 questions in 2 chunks\n")

	out = env.mustRun(t, "show", "11th", "--output", "json")
	var metadata content.Metadata
	require.NoError(t, json.Unmarshal([]byte(out), &metadata))
	assert.Equal(t, "11th", metadata.ClassID)
	assert.Equal(t, content.SourceExport, metadata.Source)
	assert.ElementsMatch(t, []string{"quiz_11th-s1", "quiz_11th-s2"}, metadata.ChunksList)

	out = env.mustRun(t, "classes", "--output", "yaml")
	assert.Equal(t, "- 11th\n", out)

	out = env.mustRun(t, "queue", "list")
	assert.Equal(t, "The download queue is empty\n", out)

	out = env.mustRun(t, "usage")
	assert.Contains(t, out, "quota: unlimited")

	env.mustRun(t, "clear")
	out = env.mustRun(t, "classes")
	assert.Equal(t, "No classes installed\n", out)
}

func TestCommands_InstallFailure(t *testing.T) {
	env := newCLIEnv(t, testutil.NewClassFixture("11th"))

	_, err := env.run(t, "install", "12th")
	require.Error(t, err)

	out := env.mustRun(t, "queue", "list", "--output", "json")
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "12th", entries[0]["classId"])
	assert.Equal(t, "failed", entries[0]["status"])

	env.mustRun(t, "queue", "clear")
	out = env.mustRun(t, "queue", "list")
	assert.Equal(t, "The download queue is empty\n", out)
}

func TestCommands_ValidateMissingClass(t *testing.T) {
	env := newCLIEnv(t, testutil.NewClassFixture("11th"))

	out, err := env.run(t, "validate", "10th")
	require.Error(t, err)
	assert.Equal(t, "✗ validation failed: no data found for 10th\n", out)
}

func TestCommands_Prefs(t *testing.T) {
	env := newCLIEnv(t, testutil.NewClassFixture("11th"))

	env.mustRun(t, "prefs", "set", "theme", "dark")
	env.mustRun(t, "prefs", "set", "volume", "3")
	env.mustRun(t, "prefs", "set", "offline", "true")

	out := env.mustRun(t, "prefs", "get", "theme", "--output", "text")
	assert.Equal(t, "dark\n", out)

	out = env.mustRun(t, "prefs", "list", "--output", "json")
	var prefs map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &prefs))
	assert.Equal(t, map[string]any{"theme": "dark", "volume": float64(3), "offline": true}, prefs)

	out = env.mustRun(t, "prefs", "list")
	assert.Equal(t, "offline=true\ntheme=dark\nvolume=3\n", out)

	_, err := env.run(t, "prefs", "get", "missing")
	assert.EqualError(t, err, "preference missing is not set")
}

func TestCommands_RemoteWrites(t *testing.T) {
	env := newCLIEnv(t, testutil.NewClassFixture("11th"))

	out := env.mustRun(t, "remote", "create", "chapters", "--parent", "11th-s1", "--data", `{"name": "Chapter 4", "serial": 4}`)
	require.True(t, strings.HasPrefix(out, "OK "))
	id := strings.TrimSpace(strings.TrimPrefix(out, "OK "))

	env.mustRun(t, "remote", "update", "chapters", id, "--parent", "11th-s1", "--data", "name: Renamed")
	env.mustRun(t, "remote", "delete", "chapters", id, "--parent", "11th-s1")

	writes := env.firebase.Writes()
	require.Len(t, writes, 3)
	assert.Equal(t, http.MethodPut, writes[0].Method)
	assert.Equal(t, "chapters/11th-s1/"+id, writes[0].Path)
	assert.Equal(t, "Chapter 4", writes[0].Body["name"])
	assert.Equal(t, id, writes[0].Body["id"])
	assert.Equal(t, recordedWrite{Method: http.MethodPatch, Path: "chapters/11th-s1/" + id, Body: map[string]any{"name": "Renamed"}}, writes[1])
	assert.Equal(t, http.MethodDelete, writes[2].Method)
	assert.Equal(t, "chapters/11th-s1/"+id, writes[2].Path)
}

func TestCommands_RemoteErrors(t *testing.T) {
	env := newCLIEnv(t, testutil.NewClassFixture("11th"))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing parent",
			args:    []string{"remote", "create", "chapters", "--data", "name: x"},
			wantErr: "collection chapters requires --parent",
		},
		{
			name:    "data is not an object",
			args:    []string{"remote", "create", "subjects", "--data", "[1, 2]"},
			wantErr: "yaml.Unmarshal() > ",
		},
		{
			name:    "migrate needs mysql",
			args:    []string{"remote", "migrate"},
			wantErr: "migrations are only available for the mysql driver, got firebase",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
	assert.Empty(t, env.firebase.Writes())
}
