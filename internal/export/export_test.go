package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/carnet/internal/models"
	"github.com/starford/carnet/internal/noteservice"
	"github.com/starford/carnet/internal/testutil"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 8)...)

func TestDocumentFrontMatter(t *testing.T) {
	n := models.Note{
		ID:         "note_1",
		NotebookID: "nb_1",
		Title:      "Groceries: milk",
		Content:    "# List\n- milk\n",
		CreatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC),
		Deleted:    true,
	}
	doc, err := Document(n)
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.SplitN(string(doc), "---\n", 3)
	if len(parts) != 3 || parts[0] != "" {
		t.Fatalf("document = %q", doc)
	}
	if parts[2] != n.Content {
		t.Errorf("body = %q", parts[2])
	}
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		t.Fatalf("front matter: %v", err)
	}
	if fm.ID != n.ID || fm.Title != n.Title || fm.Notebook != n.NotebookID || !fm.Deleted {
		t.Errorf("front matter = %+v", fm)
	}
	if !fm.UpdatedAt.Equal(n.UpdatedAt) {
		t.Errorf("updated_at = %v", fm.UpdatedAt)
	}
}

func TestRunWritesTree(t *testing.T) {
	ctx := context.Background()
	svc := noteservice.NewService(testutil.TestDB(t), testutil.Logger())

	nb, err := svc.CreateNotebook(ctx, "Work")
	if err != nil {
		t.Fatal(err)
	}
	active, err := svc.CreateNote(ctx, "active", nb.ID)
	if err != nil {
		t.Fatal(err)
	}
	trashed, err := svc.CreateNote(ctx, "trashed", nb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.SoftDeleteNote(ctx, trashed.ID); err != nil {
		t.Fatal(err)
	}
	imgID, err := svc.SaveImage(ctx, active.ID, pngBytes, "a.png", "image/png")
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	e, err := New(svc, dir, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	sum, err := e.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum != (Summary{Notebooks: 1, Notes: 2, Images: 1}) {
		t.Errorf("summary = %+v", sum)
	}

	for _, id := range []string{active.ID, trashed.ID} {
		if _, err := os.Stat(filepath.Join(dir, nb.ID, id+".md")); err != nil {
			t.Errorf("note %s not exported: %v", id, err)
		}
	}
	got, err := os.ReadFile(filepath.Join(dir, nb.ID, "images", imgID))
	if err != nil {
		t.Fatalf("image not exported: %v", err)
	}
	if !bytes.Equal(got, pngBytes) {
		t.Error("image bytes differ")
	}

	entries, _ := os.ReadDir(filepath.Join(dir, nb.ID))
	for _, ent := range entries {
		if strings.HasPrefix(ent.Name(), ".carnet-tmp-") {
			t.Errorf("temp file left behind: %s", ent.Name())
		}
	}
}

func TestRunOverwrites(t *testing.T) {
	ctx := context.Background()
	svc := noteservice.NewService(testutil.TestDB(t), testutil.Logger())
	nb, _ := svc.CreateNotebook(ctx, "Work")
	n, _ := svc.CreateNote(ctx, "t", nb.ID)

	dir := t.TempDir()
	e, err := New(svc, dir, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateNoteContent(ctx, n.ID, "second"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Run(ctx); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, nb.ID, n.ID+".md"))
	if !strings.HasSuffix(string(data), "---\nsecond") {
		t.Errorf("document = %q", data)
	}
}
