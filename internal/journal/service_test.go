package journal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/mastermind/internal/apperr"
	"github.com/starford/mastermind/internal/compose"
	"github.com/starford/mastermind/internal/index"
	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/sse"
	"github.com/starford/mastermind/internal/storage"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) PublishProjectEvent(kind, project string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind+":"+project)
}

func (r *recorder) Publish(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Type)
}

func (r *recorder) has(e string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.events {
		if got == e {
			return true
		}
	}
	return false
}

type testEnv struct {
	svc    *Service
	dir    string
	events *recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	archive := storage.NewArchive(filepath.Join(dir, "archive"))
	store, err := storage.NewFS(dir, archive)
	if err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "mastermind-journal-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	delims := markup.NewFileSource(filepath.Join(t.TempDir(), "delimiters.yaml"), markup.Defaults())
	if err := delims.Load(); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	svc := New(Deps{
		Store:      store,
		Archive:    archive,
		DB:         db,
		Delimiters: delims,
		Events:     rec,
		Logger:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
	return &testEnv{svc: svc, dir: dir, events: rec}
}

func (e *testEnv) write(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.dir, name+".md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.dir, name+".md"))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

const alphaDoc = `:::date 01/03/2024
__/@@ Alpha
<work>
fix parser
<work/>
<home>
buy milk
<home/>
@@/`

const betaDoc = `:::date 02/03/2024
__/@@ Beta
<gym>
run 5k
<gym/>
@@/`

func TestCreateAndGetProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateProject(ctx, "Alpha", alphaDoc)
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if created.Name != "Alpha" || created.Content != alphaDoc || created.Checksum == "" {
		t.Errorf("created = %+v", created)
	}
	if !env.events.has("created:Alpha") {
		t.Errorf("events = %v", env.events.events)
	}

	got, err := env.svc.GetProject(ctx, "Alpha")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Checksum != created.Checksum || got.UpdatedAt.IsZero() {
		t.Errorf("got = %+v", got)
	}

	if _, err := env.svc.CreateProject(ctx, "Alpha", "x"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateProject_EmptySeedsSkeleton(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.svc.CreateProject(context.Background(), "Fresh", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.Content, "__/@@ Fresh\n\n@@/") || !strings.HasPrefix(p.Content, ":::date ") {
		t.Errorf("content = %q", p.Content)
	}
}

func TestCreateProject_SanitizesName(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.svc.CreateProject(context.Background(), "a/b", "x")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "a_b" {
		t.Errorf("name = %q, want a_b", p.Name)
	}
	if _, err := env.svc.CreateProject(context.Background(), "   ", "x"); !errors.Is(err, apperr.ErrInvalidName) {
		t.Errorf("blank name err = %v, want ErrInvalidName", err)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.GetProject(context.Background(), "Nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPutProject_IfMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, created, err := env.svc.PutProject(ctx, "Alpha", alphaDoc, "")
	if err != nil || !created {
		t.Fatalf("first put = %v, created=%v", err, created)
	}

	if _, _, err := env.svc.PutProject(ctx, "Alpha", "changed", `"stale"`); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale put err = %v, want ErrConflict", err)
	}

	updated, created, err := env.svc.PutProject(ctx, "Alpha", "changed", `"`+p.Checksum+`"`)
	if err != nil || created {
		t.Fatalf("matching put = %v, created=%v", err, created)
	}
	if updated.Content != "changed" {
		t.Errorf("content = %q", updated.Content)
	}
	if !env.events.has("updated:Alpha") {
		t.Errorf("events = %v", env.events.events)
	}

	if _, _, err := env.svc.PutProject(ctx, "Ghost", "x", `"abc"`); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("conditional put on missing err = %v, want ErrNotFound", err)
	}
}

func TestDeleteProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, _ = env.svc.CreateProject(ctx, "Alpha", alphaDoc)

	if err := env.svc.DeleteProject(ctx, "Alpha"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := env.svc.GetProject(ctx, "Alpha"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
	rows, _ := env.svc.ListProjects(ctx)
	if len(rows) != 0 {
		t.Errorf("index still lists %+v", rows)
	}
	if err := env.svc.DeleteProject(ctx, "Alpha"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestArchiveProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, _ = env.svc.CreateProject(ctx, "Alpha", alphaDoc)

	key, err := env.svc.ArchiveProject(ctx, "Alpha")
	if err != nil {
		t.Fatalf("ArchiveProject: %v", err)
	}
	if !strings.HasPrefix(key, "Alpha-") || !strings.HasSuffix(key, ".md") {
		t.Errorf("key = %q", key)
	}
	if _, err := env.svc.GetProject(ctx, "Alpha"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("project still readable after archive: %v", err)
	}
	if !env.events.has("archived:Alpha") {
		t.Errorf("events = %v", env.events.events)
	}

	entries := env.svc.Archives(ctx)
	if len(entries) != 1 || entries[0].Project != "Alpha" {
		t.Fatalf("archives = %+v", entries)
	}
	data, err := env.svc.ReadArchive(ctx, key)
	if err != nil || string(data) != alphaDoc {
		t.Errorf("ReadArchive = %q, %v", data, err)
	}
	if _, err := env.svc.ReadArchive(ctx, "../Alpha.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("traversal key err = %v", err)
	}

	if _, err := env.svc.ArchiveProject(ctx, "Alpha"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("archive missing err = %v", err)
	}
}

func TestResolveSelection_Defaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "Alpha", alphaDoc)
	env.write(t, "Beta", betaDoc)
	if err := env.svc.Reindex(ctx); err != nil {
		t.Fatal(err)
	}

	sel, err := env.svc.ResolveSelection(ctx, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(sel.Projects, ",") != "Alpha,Beta" {
		t.Errorf("projects = %v", sel.Projects)
	}
	if strings.Join(sel.Tags.Sorted(), ",") != "gym,home,work" {
		t.Errorf("tags = %v", sel.Tags.Sorted())
	}
	if sel.Dates.Len() != 0 {
		t.Errorf("dates = %v", sel.Dates)
	}

	only, _ := env.svc.ResolveSelection(ctx, []string{"Beta"}, nil, []string{"02/03/2024"})
	if strings.Join(only.Tags.Sorted(), ",") != "gym" || !only.Dates.Has("02/03/2024") {
		t.Errorf("scoped selection = %+v", only)
	}
}

func TestComposeAndSave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "Alpha", alphaDoc)
	env.write(t, "Beta", betaDoc)
	_ = env.svc.Reindex(ctx)

	sel, _ := env.svc.ResolveSelection(ctx, nil, []string{"work", "gym"}, nil)
	composite, err := env.svc.Compose(ctx, sel)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		":::date 01/03/2024", "__/@@ Alpha", "<work>", "fix parser", "<work/>", "@@/",
		":::date 02/03/2024", "__/@@ Beta", "<gym>", "run 5k", "<gym/>", "@@/",
	}, "\n")
	if composite != want {
		t.Fatalf("composite =\n%s\nwant\n%s", composite, want)
	}

	report, err := env.svc.Save(ctx, composite, sel, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Saved()) != 0 {
		t.Errorf("unchanged composite saved %v", report.Saved())
	}

	edited := strings.Replace(composite, "fix parser", "fix parser and lexer", 1)
	report, err = env.svc.Save(ctx, edited, sel, compose.AcceptAll{})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(report.Saved(), ",") != "Alpha" {
		t.Fatalf("saved = %v, results = %+v", report.Saved(), report.Results)
	}

	alpha := env.read(t, "Alpha")
	if !strings.Contains(alpha, "fix parser and lexer") || !strings.Contains(alpha, "buy milk") {
		t.Errorf("Alpha after save:\n%s", alpha)
	}
	if env.read(t, "Beta") != betaDoc {
		t.Error("Beta rewritten although unchanged")
	}
	if !env.events.has(sse.SaveCompleted) || !env.events.has("updated:Alpha") {
		t.Errorf("events = %v", env.events.events)
	}

	hits, _ := env.svc.Search(ctx, "lexer", 10)
	if len(hits) != 1 || hits[0].Project != "Alpha" {
		t.Errorf("index not refreshed by save: %+v", hits)
	}
}

func TestPreview_WritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "Alpha", alphaDoc)
	_ = env.svc.Reindex(ctx)

	sel, _ := env.svc.ResolveSelection(ctx, nil, []string{"work"}, nil)
	composite, _ := env.svc.Compose(ctx, sel)
	edited := strings.Replace(composite, "fix parser", "rewrite parser", 1)

	props, err := env.svc.Preview(ctx, edited, sel)
	if err != nil {
		t.Fatal(err)
	}
	if len(props) != 1 || !strings.Contains(props[0].Merged, "rewrite parser") {
		t.Fatalf("proposals = %+v", props)
	}
	if env.read(t, "Alpha") != alphaDoc {
		t.Error("preview wrote to the store")
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "Alpha", alphaDoc)

	changed, err := env.svc.Export(ctx, ":::date 05/03/2024\n__/@@ Alpha\nnew entry\n@@/")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(changed, ",") != "Alpha" {
		t.Fatalf("changed = %v", changed)
	}
	if !strings.Contains(env.read(t, "Alpha"), ":::date 05/03/2024\n__/@@ Alpha\nnew entry\n@@/") {
		t.Errorf("Alpha after export:\n%s", env.read(t, "Alpha"))
	}
	inv, _ := env.svc.Inventory(ctx, []string{"Alpha"})
	if strings.Join(inv.Dates, ",") != "01/03/2024,05/03/2024" {
		t.Errorf("dates = %v", inv.Dates)
	}
}

func TestUpdateDelimiters_Migrate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "Alpha", alphaDoc)
	_ = env.svc.Reindex(ctx)

	next := markup.Defaults()
	next.Date.LinePrefix = "## " + markup.DatePlaceholder
	next.Section.StartPrefix = ">> " + markup.NamePlaceholder
	next.Section.EndLine = "--end--"

	migrated, err := env.svc.UpdateDelimiters(ctx, next, true)
	if err != nil {
		t.Fatalf("UpdateDelimiters: %v", err)
	}
	if strings.Join(migrated, ",") != "Alpha" {
		t.Errorf("migrated = %v", migrated)
	}

	alpha := env.read(t, "Alpha")
	for _, want := range []string{"## 01/03/2024", ">> Alpha", "--end--", "<work>"} {
		if !strings.Contains(alpha, want) {
			t.Errorf("migrated document missing %q:\n%s", want, alpha)
		}
	}
	if strings.Contains(alpha, "__/@@") {
		t.Errorf("old delimiters left:\n%s", alpha)
	}

	d, _ := env.svc.Delimiters(ctx)
	if d.Section.EndLine != "--end--" {
		t.Errorf("delimiters = %+v", d)
	}
	inv, _ := env.svc.Inventory(ctx, nil)
	if strings.Join(inv.Dates, ",") != "01/03/2024" {
		t.Errorf("index not rebuilt with new delimiters: %+v", inv)
	}
	if !env.events.has(sse.ConfigUpdated) {
		t.Errorf("events = %v", env.events.events)
	}
}

func TestUpdateDelimiters_Invalid(t *testing.T) {
	env := newTestEnv(t)
	bad := markup.Defaults()
	bad.Tags.Open = "<>"
	if _, err := env.svc.UpdateDelimiters(context.Background(), bad, false); !errors.Is(err, markup.ErrInvalidTemplate) {
		t.Errorf("err = %v, want ErrInvalidTemplate", err)
	}
	d, _ := env.svc.Delimiters(context.Background())
	if d.Tags.Open != "<{name}>" {
		t.Errorf("invalid delimiters were stored: %+v", d)
	}
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.svc.Analyze(context.Background(), alphaDoc+"\n@@/")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Sections) != 1 || len(res.Errors) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestRenderProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "Alpha", alphaDoc)
	_ = env.svc.Reindex(ctx)

	html, err := env.svc.RenderProject(ctx, "Alpha", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<h3>Alpha</h3>") || !strings.Contains(html, "buy milk") {
		t.Errorf("html = %s", html)
	}
}

func TestSnippets(t *testing.T) {
	env := newTestEnv(t)
	sn, err := env.svc.Snippets(context.Background(), "Alpha", "work", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if sn.Date != ":::date 09/03/2024" || sn.Section != "__/@@ Alpha\n\n@@/" || sn.Tag != "<work>\n\n<work/>" {
		t.Errorf("snippets = %+v", sn)
	}
}
