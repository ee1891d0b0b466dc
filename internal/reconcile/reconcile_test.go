package reconcile

import (
	"reflect"
	"strings"
	"testing"

	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/selection"
	"github.com/starford/mastermind/internal/visibility"
)

var pats = markup.MustCompile(markup.Defaults())

// scenarioPats uses @@-style headers and slash-prefixed close tags.
var scenarioPats = markup.MustCompile(markup.Delimiters{
	Date:    markup.DateDelimiters{LinePrefix: ":::date {DD/MM/YYYY}"},
	Section: markup.SectionDelimiters{StartPrefix: "@@ {name}", EndLine: "@@/"},
	Tags:    markup.TagDelimiters{Open: "<{name}>", Close: "</{name}>"},
})

func lines(ls ...string) string { return strings.Join(ls, "\n") }

func TestReconcile_HiddenLineSurvivesEdit(t *testing.T) {
	original := ":::date 01/01/2024\n@@ Proj A\n<x>\nhidden line\n</x>\nvisible line\n@@/"
	edited := ":::date 01/01/2024\n@@ Proj A\nvisible line EDITED\n@@/"
	want := ":::date 01/01/2024\n@@ Proj A\n<x>\nhidden line\n</x>\nvisible line EDITED\n@@/"

	got := Reconcile(Input{Original: original, Edited: edited, Tags: selection.NewSet()}, scenarioPats)
	if got != want {
		t.Errorf("Reconcile =\n%q\nwant\n%q", got, want)
	}
}

func TestReconcile_RoundTripIdentity(t *testing.T) {
	original := lines(
		":::date 01/01/2024",
		"__/@@ Alpha",
		"<work>",
		"shown",
		"<work/>",
		"free line",
		"@@/",
		"",
		"__/@@ Alpha second",
		"more",
		"@@/",
		":::date 05/01/2024",
		"__/@@ Alpha third",
		"@@/",
	)
	tags := selection.NewSet("work")
	got := Reconcile(Input{Original: original, Edited: original, Tags: tags}, pats)
	if got != original {
		t.Errorf("round trip changed the document:\n%s", got)
	}
}

func TestReconcile_DeletionPropagation(t *testing.T) {
	original := lines(
		":::date 01/01/2024",
		"__/@@ A visible",
		"seen",
		"@@/",
		"",
		"__/@@ A kept",
		"<secret>",
		"unseen",
		"<secret/>",
		"still here",
		"@@/",
	)
	edited := lines(
		":::date 01/01/2024",
		"__/@@ A kept",
		"still here",
		"@@/",
	)
	want := lines(
		":::date 01/01/2024",
		"__/@@ A kept",
		"<secret>",
		"unseen",
		"<secret/>",
		"still here",
		"@@/",
	)
	got := Reconcile(Input{Original: original, Edited: edited, Tags: selection.NewSet()}, pats)
	if got != want {
		t.Errorf("Reconcile =\n%s\nwant\n%s", got, want)
	}
}

func TestReconcile_UnseenBlockRetained(t *testing.T) {
	// When section headers double as tag markers a whole block can be
	// hidden, and a block the user never saw must survive the save.
	p := markup.MustCompile(markup.Delimiters{
		Date:    markup.DateDelimiters{LinePrefix: ":::date {DD/MM/YYYY}"},
		Section: markup.SectionDelimiters{StartPrefix: "== {name}", EndLine: "=="},
		Tags:    markup.TagDelimiters{Open: "== {name}", Close: "==/{name}"},
	})
	original := lines(
		":::date 01/01/2024",
		"== Private",
		"diary",
		"==",
		"",
		"== Public",
		"notes",
		"==",
	)
	edited := lines(
		":::date 01/01/2024",
		"== Other",
		"fresh",
		"==",
	)
	tags := selection.NewSet("Other")
	got := Reconcile(Input{Original: original, Edited: edited, Tags: tags}, p)
	want := lines(
		":::date 01/01/2024",
		"== Other",
		"fresh",
		"==",
		"",
		"== Private",
		"diary",
		"==",
		"",
		"== Public",
		"notes",
		"==",
	)
	if got != want {
		t.Errorf("Reconcile =\n%s\nwant\n%s", got, want)
	}
}

func TestReconcile_DateFocus(t *testing.T) {
	original := lines(
		":::date 01/01/2024",
		"__/@@ A one",
		"old one",
		"@@/",
		":::date 02/01/2024",
		"__/@@ A two",
		"old two",
		"@@/",
	)
	edited := lines(
		":::date 01/01/2024",
		"__/@@ A one",
		"new one",
		"@@/",
		":::date 02/01/2024",
		"__/@@ A two",
		"new two",
		"@@/",
		":::date 03/01/2024",
		"__/@@ A three",
		"@@/",
	)
	got := Reconcile(Input{
		Original: original,
		Edited:   edited,
		Tags:     selection.NewSet(),
		Focus:    selection.NewSet("02/01/2024"),
	}, pats)
	want := lines(
		":::date 01/01/2024",
		"__/@@ A one",
		"old one",
		"@@/",
		":::date 02/01/2024",
		"__/@@ A two",
		"new two",
		"@@/",
	)
	if got != want {
		t.Errorf("Reconcile =\n%s\nwant\n%s", got, want)
	}
}

func TestReconcile_CalendarOrder(t *testing.T) {
	original := lines(
		":::date 10/02/2024",
		"__/@@ A feb",
		"@@/",
		":::date 05/01/2025",
		"__/@@ A next year",
		"@@/",
	)
	edited := lines(
		":::date 10/02/2024",
		"__/@@ A feb",
		"@@/",
		":::date 05/01/2025",
		"__/@@ A next year",
		"@@/",
		":::date 20/01/2024",
		"__/@@ A jan",
		"@@/",
	)
	got := Reconcile(Input{Original: original, Edited: edited, Tags: selection.NewSet()}, pats)

	var dates []string
	for _, l := range strings.Split(got, "\n") {
		if d, ok := pats.DateOf(l); ok {
			dates = append(dates, d)
		}
	}
	want := []string{"20/01/2024", "10/02/2024", "05/01/2025"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("dates = %v, want %v", dates, want)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	original := lines(
		":::date 01/01/2024",
		"__/@@ A",
		"<x>",
		"hidden",
		"<x/>",
		"visible",
		"@@/",
		"",
		"__/@@ A other",
		"<x>",
		"only hidden",
		"<x/>",
		"@@/",
	)
	tags := selection.NewSet()
	edited := lines(
		":::date 01/01/2024",
		"__/@@ A",
		"visible changed",
		"added",
		"@@/",
		"__/@@ A other",
		"@@/",
	)

	first := Reconcile(Input{Original: original, Edited: edited, Tags: tags}, pats)

	view := visibility.Filter(first, pats, tags)
	second := Reconcile(Input{Original: first, Edited: view, Tags: tags}, pats)
	if second != first {
		t.Errorf("second pass changed output:\n%s\nvs\n%s", second, first)
	}
	if !strings.Contains(first, "hidden\n<x/>\nvisible changed\nadded\n@@/") {
		t.Errorf("merge result unexpected:\n%s", first)
	}
}

func TestReconcile_NewBlockAndEmptyOriginal(t *testing.T) {
	edited := lines(":::date 01/01/2024", "__/@@ Fresh", "hello", "@@/")
	got := Reconcile(Input{Original: "", Edited: edited, Tags: selection.NewSet()}, pats)
	if got != edited {
		t.Errorf("Reconcile = %q", got)
	}
}

func TestReconcile_CollapsesBlankRuns(t *testing.T) {
	edited := lines(":::date 01/01/2024", "__/@@ A", "x", "", "", "", "", "y", "@@/")
	got := Reconcile(Input{Edited: edited, Tags: selection.NewSet()}, pats)
	want := lines(":::date 01/01/2024", "__/@@ A", "x", "", "", "y", "@@/")
	if got != want {
		t.Errorf("Reconcile = %q, want %q", got, want)
	}
}

func TestMergeBlock(t *testing.T) {
	orig := []string{"__/@@ A", "<x>", "h", "<x/>", "v1", "v2", "@@/"}
	tags := selection.NewSet()

	tests := []struct {
		name   string
		edited []string
		want   []string
	}{
		{
			name:   "same length",
			edited: []string{"__/@@ A", "n1", "n2", "@@/"},
			want:   []string{"__/@@ A", "<x>", "h", "<x/>", "n1", "n2", "@@/"},
		},
		{
			name:   "surplus before end line",
			edited: []string{"__/@@ A", "n1", "n2", "n3", "n4", "@@/"},
			want:   []string{"__/@@ A", "<x>", "h", "<x/>", "n1", "n2", "n3", "n4", "@@/"},
		},
		{
			name:   "no end line in edit",
			edited: []string{"__/@@ A", "n1"},
			want:   []string{"__/@@ A", "<x>", "h", "<x/>", "n1", "@@/"},
		},
		{
			name:   "shorter edit drops visible tail",
			edited: []string{"__/@@ A", "@@/"},
			want:   []string{"__/@@ A", "<x>", "h", "<x/>", "@@/"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MergeBlock(orig, tt.edited, pats, tags); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MergeBlock = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMergeBlock_EndLineStaysAfterHiddenLines(t *testing.T) {
	orig := []string{"__/@@ A", "a", "b", "<x>", "hidden", "<x/>", "@@/"}
	got := MergeBlock(orig, []string{"__/@@ A", "a", "@@/"}, pats, selection.NewSet())
	want := []string{"__/@@ A", "a", "<x>", "hidden", "<x/>", "@@/"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeBlock = %q, want %q", got, want)
	}
}

func TestReconcile_HiddenLinesSurviveRepeatedSaves(t *testing.T) {
	original := lines(":::date 01/01/2024", "__/@@ A", "a", "b", "<x>", "hidden", "<x/>", "@@/")
	none := selection.NewSet()

	first := Reconcile(Input{Original: original, Edited: lines(":::date 01/01/2024", "__/@@ A", "a", "@@/"), Tags: none}, pats)
	want := lines(":::date 01/01/2024", "__/@@ A", "a", "<x>", "hidden", "<x/>", "@@/")
	if first != want {
		t.Fatalf("first save =\n%s\nwant\n%s", first, want)
	}

	second := Reconcile(Input{Original: first, Edited: lines(":::date 01/01/2024", "__/@@ A", "a changed", "@@/"), Tags: none}, pats)
	want = lines(":::date 01/01/2024", "__/@@ A", "a changed", "<x>", "hidden", "<x/>", "@@/")
	if second != want {
		t.Errorf("second save =\n%s\nwant\n%s", second, want)
	}
}
