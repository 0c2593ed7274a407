package noteservice_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/carnet/internal/apperr"
	"github.com/starford/carnet/internal/ident"
	"github.com/starford/carnet/internal/models"
	"github.com/starford/carnet/internal/noteservice"
	"github.com/starford/carnet/internal/store"
	"github.com/starford/carnet/internal/testutil"
)

var ctx = context.Background()

func newService(t *testing.T) *noteservice.Service {
	t.Helper()
	db := testutil.TestDB(t, store.WithClock(testutil.StepClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), time.Second)))
	return noteservice.NewService(db, testutil.Logger())
}

func mustNotebook(t *testing.T, svc *noteservice.Service, title string) *models.Notebook {
	t.Helper()
	nb, err := svc.CreateNotebook(ctx, title)
	if err != nil {
		t.Fatalf("CreateNotebook(%q): %v", title, err)
	}
	return nb
}

func mustNote(t *testing.T, svc *noteservice.Service, title, nbID string) *models.Note {
	t.Helper()
	n, err := svc.CreateNote(ctx, title, nbID)
	if err != nil {
		t.Fatalf("CreateNote(%q): %v", title, err)
	}
	return n
}

func TestCreateNotebook_AssignsPrefixedID(t *testing.T) {
	svc := newService(t)
	nb := mustNotebook(t, svc, "  Work ")
	if p := ident.Prefix(nb.ID); p != ident.Notebook {
		t.Errorf("id %q: prefix %q", nb.ID, p)
	}
	if nb.Title != "Work" {
		t.Errorf("title = %q, want trimmed", nb.Title)
	}
}

func TestCreateNotebook_EmptyTitle(t *testing.T) {
	svc := newService(t)
	_, err := svc.CreateNotebook(ctx, "   ")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestCreateNote_UnknownNotebook(t *testing.T) {
	svc := newService(t)
	_, err := svc.CreateNote(ctx, "Draft", "nb_missing")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestCreateNote_ReportsEveryMissingField(t *testing.T) {
	svc := newService(t)
	_, err := svc.CreateNote(ctx, "  ", "")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	var fields validation.Errors
	if !errors.As(err, &fields) {
		t.Fatalf("err = %v, want validation.Errors", err)
	}
	for _, f := range []string{"title", "notebook_id"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing field error for %q in %v", f, fields)
		}
	}
}

func TestCreateNote_Defaults(t *testing.T) {
	svc := newService(t)
	nb := mustNotebook(t, svc, "Work")
	n := mustNote(t, svc, "Draft", nb.ID)
	if n.Content != "" || n.Deleted || n.NotebookID != nb.ID {
		t.Errorf("note = %+v", n)
	}
	if p := ident.Prefix(n.ID); p != ident.Note {
		t.Errorf("id prefix = %q", p)
	}
}

func TestEnsureDefaultNotebook(t *testing.T) {
	svc := newService(t)
	created, err := svc.EnsureDefaultNotebook(ctx)
	if err != nil || !created {
		t.Fatalf("EnsureDefaultNotebook = %v, %v", created, err)
	}
	created, err = svc.EnsureDefaultNotebook(ctx)
	if err != nil || created {
		t.Fatalf("second EnsureDefaultNotebook = %v, %v", created, err)
	}
	nbs, _ := svc.ListNotebooks(ctx)
	if len(nbs) != 1 || nbs[0].Title != noteservice.DefaultNotebookTitle {
		t.Errorf("notebooks = %+v", nbs)
	}
}

func TestDeleteNotebook_FallbackAndIdempotence(t *testing.T) {
	svc := newService(t)
	work := mustNotebook(t, svc, "Work")
	home := mustNotebook(t, svc, "Home")
	zoo := mustNotebook(t, svc, "Zoo")
	n := mustNote(t, svc, "Draft", work.ID)

	next, err := svc.DeleteNotebook(ctx, work.ID, work.ID)
	if err != nil {
		t.Fatalf("DeleteNotebook: %v", err)
	}
	if next != home.ID {
		t.Errorf("fallback = %q, want first by title %q", next, home.ID)
	}
	if notes, _ := svc.ListActiveNotes(ctx, work.ID); len(notes) != 0 {
		t.Errorf("notes survived cascade: %+v", notes)
	}
	if _, err := svc.GetNote(ctx, n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetNote after cascade err = %v", err)
	}

	next, err = svc.DeleteNotebook(ctx, work.ID, home.ID)
	if err != nil {
		t.Fatalf("second DeleteNotebook: %v", err)
	}
	if next != home.ID {
		t.Errorf("selection changed on idempotent delete: %q", next)
	}

	_, _ = svc.DeleteNotebook(ctx, home.ID, home.ID)
	next, _ = svc.DeleteNotebook(ctx, zoo.ID, zoo.ID)
	if next != "" {
		t.Errorf("fallback with no notebooks = %q, want empty", next)
	}
}

func TestMutations_MissingIDAreNoOps(t *testing.T) {
	svc := newService(t)
	nb := mustNotebook(t, svc, "Work")
	for name, err := range map[string]error{
		"content":  svc.UpdateNoteContent(ctx, "note_x", "c"),
		"title":    svc.UpdateNoteTitle(ctx, "note_x", "t"),
		"notebook": svc.UpdateNoteNotebook(ctx, "note_x", nb.ID),
		"soft":     svc.SoftDeleteNote(ctx, "note_x"),
		"restore":  svc.RestoreNote(ctx, "note_x"),
		"purge":    svc.PurgeNote(ctx, "note_x"),
	} {
		if err != nil {
			t.Errorf("%s: err = %v, want nil", name, err)
		}
	}
}

func TestUpdateNoteNotebook_Moves(t *testing.T) {
	svc := newService(t)
	a := mustNotebook(t, svc, "A")
	b := mustNotebook(t, svc, "B")
	n := mustNote(t, svc, "Draft", a.ID)
	_ = mustNote(t, svc, "Other", b.ID)

	if err := svc.UpdateNoteNotebook(ctx, n.ID, b.ID); err != nil {
		t.Fatalf("UpdateNoteNotebook: %v", err)
	}
	if notes, _ := svc.ListActiveNotes(ctx, a.ID); len(notes) != 0 {
		t.Errorf("A still lists %+v", notes)
	}
	notes, _ := svc.ListActiveNotes(ctx, b.ID)
	if len(notes) != 2 || notes[0].ID != n.ID {
		t.Errorf("B notes = %+v, want moved note first", notes)
	}

	if err := svc.UpdateNoteNotebook(ctx, n.ID, "nb_gone"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("move to unknown notebook err = %v", err)
	}
}

func TestTrashLifecycle(t *testing.T) {
	svc := newService(t)
	nb := mustNotebook(t, svc, "Work")
	keep := mustNote(t, svc, "Keep", nb.ID)
	drop := mustNote(t, svc, "Drop", nb.ID)
	other := mustNote(t, svc, "Other", nb.ID)

	for _, id := range []string{keep.ID, drop.ID, other.ID} {
		if err := svc.SoftDeleteNote(ctx, id); err != nil {
			t.Fatalf("SoftDeleteNote: %v", err)
		}
	}
	if err := svc.RestoreNote(ctx, keep.ID); err != nil {
		t.Fatalf("RestoreNote: %v", err)
	}
	if err := svc.PurgeNote(ctx, drop.ID); err != nil {
		t.Fatalf("PurgeNote: %v", err)
	}
	trash, _ := svc.ListDeletedNotes(ctx)
	if len(trash) != 1 || trash[0].ID != other.ID {
		t.Fatalf("trash = %+v", trash)
	}
	n, err := svc.EmptyTrash(ctx)
	if err != nil || n != 1 {
		t.Fatalf("EmptyTrash = %d, %v", n, err)
	}
	active, _ := svc.ListActiveNotes(ctx, nb.ID)
	if len(active) != 1 || active[0].ID != keep.ID {
		t.Errorf("active = %+v", active)
	}
}

type failingStore struct {
	store.NoteStore
	saves int
}

func (f *failingStore) UpdateNoteContent(context.Context, string, string) error {
	return apperr.Storage("store: update note content", errors.New("disk full"))
}

func (f *failingStore) SaveImage(ctx context.Context, img models.Image) (*models.Image, error) {
	f.saves++
	return f.NoteStore.SaveImage(ctx, img)
}

func TestStorageFailure_Propagates(t *testing.T) {
	fs := &failingStore{NoteStore: testutil.TestDB(t)}
	svc := noteservice.NewService(fs, testutil.Logger())
	err := svc.UpdateNoteContent(ctx, "note_1", "x")
	if !errors.Is(err, apperr.ErrStorage) {
		t.Errorf("err = %v, want ErrStorage", err)
	}
}

func TestSaveImage_RoundTrip(t *testing.T) {
	svc := newService(t)
	nb := mustNotebook(t, svc, "Work")
	n := mustNote(t, svc, "Draft", nb.ID)
	data := []byte("\x89PNG\r\n\x1a\nrest")

	id, err := svc.SaveImage(ctx, n.ID, data, "f.png", "image/png")
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if p := ident.Prefix(id); p != ident.Image {
		t.Errorf("image id prefix = %q", p)
	}
	img, err := svc.GetImage(ctx, id)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if !bytes.Equal(img.Data, data) || img.Size != int64(len(data)) {
		t.Errorf("image = %+v", img)
	}
	if _, err := svc.GetImage(ctx, "img_unknown"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetImage(unknown) err = %v, want ErrNotFound", err)
	}
}

func TestSaveImage_RejectedBeforeStore(t *testing.T) {
	fs := &failingStore{NoteStore: testutil.TestDB(t)}
	svc := noteservice.NewService(fs, testutil.Logger(), noteservice.WithMaxImageBytes(8))

	cases := map[string]struct {
		data []byte
		name string
		mime string
	}{
		"oversized": {bytes.Repeat([]byte{1}, 9), "f.png", "image/png"},
		"not image": {[]byte{1}, "f.txt", "text/plain"},
		"empty":     {nil, "f.png", "image/png"},
		"no name":   {[]byte{1}, "", "image/png"},
	}
	for name, c := range cases {
		_, err := svc.SaveImage(ctx, "note_1", c.data, c.name, c.mime)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", name, err)
		}
	}
	if fs.saves != 0 {
		t.Errorf("store SaveImage called %d times", fs.saves)
	}
}

func TestPurgeNote_RemovesImages(t *testing.T) {
	svc := newService(t)
	nb := mustNotebook(t, svc, "Work")
	n := mustNote(t, svc, "Draft", nb.ID)
	id1, _ := svc.SaveImage(ctx, n.ID, []byte{1}, "a.png", "image/png")
	id2, _ := svc.SaveImage(ctx, n.ID, []byte{2}, "b.jpg", "image/jpeg")

	if err := svc.SoftDeleteNote(ctx, n.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetImage(ctx, id1); err != nil {
		t.Errorf("image of soft-deleted note gone: %v", err)
	}
	if err := svc.PurgeNote(ctx, n.ID); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{id1, id2} {
		if _, err := svc.GetImage(ctx, id); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("GetImage(%s) after purge err = %v", id, err)
		}
	}
}
