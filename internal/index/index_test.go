package index

import (
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/starford/mastermind/internal/markup"
)

var pats = markup.MustCompile(markup.Defaults())

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "mastermind-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

const alphaDoc = `:::date 15/02/2024
__/@@ Alpha urgent
<work>
shipped the parser
<work/>
@@/
:::date 03/01/2024
__/@@ Alpha
<home>
groceries
<home/>
@@/
__/@@ Beta
belongs elsewhere
@@/`

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"projects", "sections", "block_tags"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestIndexDocumentAndChecksum(t *testing.T) {
	db := testDB(t)
	if err := IndexDocument(db, "Alpha", []byte(alphaDoc), time.Now(), pats); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	cs, err := db.GetChecksum("Alpha")
	if err != nil || cs == "" {
		t.Fatalf("GetChecksum = %q, %v", cs, err)
	}

	secs, err := db.Sections("Alpha")
	if err != nil {
		t.Fatal(err)
	}
	if len(secs) != 2 {
		t.Fatalf("sections = %+v", secs)
	}
	if secs[0].Date != "15/02/2024" || !reflect.DeepEqual(secs[0].Tags, []string{"urgent", "work"}) {
		t.Errorf("first section = %+v", secs[0])
	}

	projects, err := db.ListProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].Sections != 2 {
		t.Errorf("projects = %+v", projects)
	}
}

func TestInventory(t *testing.T) {
	db := testDB(t)
	_ = IndexDocument(db, "Alpha", []byte(alphaDoc), time.Now(), pats)
	_ = IndexDocument(db, "Gamma", []byte(":::date 01/12/2023\n__/@@ Gamma\n<gym>\nrun\n<gym/>\n@@/"), time.Now(), pats)

	inv, err := db.Inventory(nil)
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if !reflect.DeepEqual(inv.Projects, []string{"Alpha", "Gamma"}) {
		t.Errorf("projects = %v", inv.Projects)
	}
	if !reflect.DeepEqual(inv.Dates, []string{"01/12/2023", "03/01/2024", "15/02/2024"}) {
		t.Errorf("dates = %v", inv.Dates)
	}
	if !reflect.DeepEqual(inv.Tags, []string{"gym", "home", "work"}) {
		t.Errorf("tags = %v", inv.Tags)
	}
	if !reflect.DeepEqual(inv.SectionTags, []string{"gym", "home", "urgent", "work"}) {
		t.Errorf("section tags = %v", inv.SectionTags)
	}
	want := []Year{{Year: 2023, Months: []int{12}}, {Year: 2024, Months: []int{1, 2}}}
	if !reflect.DeepEqual(inv.Calendar, want) {
		t.Errorf("calendar = %+v", inv.Calendar)
	}

	only, err := db.Inventory([]string{"Gamma"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(only.Tags, []string{"gym"}) || !reflect.DeepEqual(only.Dates, []string{"01/12/2023"}) {
		t.Errorf("filtered inventory = %+v", only)
	}
}

func TestDeleteProject(t *testing.T) {
	db := testDB(t)
	_ = IndexDocument(db, "Alpha", []byte(alphaDoc), time.Now(), pats)

	if err := db.DeleteProject("Alpha"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	cs, _ := db.GetChecksum("Alpha")
	if cs != "" {
		t.Errorf("deleted project still has checksum %q", cs)
	}
	secs, _ := db.Sections("Alpha")
	if len(secs) != 0 {
		t.Errorf("sections remain: %+v", secs)
	}
	inv, _ := db.Inventory(nil)
	if len(inv.Tags) != 0 {
		t.Errorf("tags remain: %v", inv.Tags)
	}
}

func TestReindexReplacesSections(t *testing.T) {
	db := testDB(t)
	_ = IndexDocument(db, "Alpha", []byte(alphaDoc), time.Now(), pats)
	_ = IndexDocument(db, "Alpha", []byte(":::date 01/01/2024\n__/@@ Alpha\nnew\n@@/"), time.Now(), pats)

	secs, _ := db.Sections("Alpha")
	if len(secs) != 1 || secs[0].Date != "01/01/2024" {
		t.Errorf("sections = %+v", secs)
	}
}

func TestReset(t *testing.T) {
	db := testDB(t)
	_ = IndexDocument(db, "Alpha", []byte(alphaDoc), time.Now(), pats)
	if err := db.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	all, _ := db.AllChecksums()
	if len(all) != 0 {
		t.Errorf("checksums after reset = %v", all)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = IndexDocument(db, "Alpha", []byte(alphaDoc), time.Now(), pats)

	results, err := db.Search("groceries", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Project != "Alpha" || results[0].Date != "03/01/2024" {
		t.Errorf("search results = %+v, want 1 hit in Alpha on 03/01/2024", results)
	}
}

func TestGetProject(t *testing.T) {
	db := testDB(t)
	if p, err := db.GetProject("Alpha"); err != nil || p != nil {
		t.Fatalf("GetProject before index = %+v, %v", p, err)
	}
	at := time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)
	_ = IndexDocument(db, "Alpha", []byte(alphaDoc), at, pats)

	p, err := db.GetProject("Alpha")
	if err != nil || p == nil {
		t.Fatalf("GetProject = %+v, %v", p, err)
	}
	if p.Sections != 2 || !p.UpdatedAt.Equal(at) {
		t.Errorf("project = %+v", p)
	}
}
