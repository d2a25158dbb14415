package logscan

import "testing"

func TestParseLineSkipsDecorationRows(t *testing.T) {
	_, ok, err := parseLine("| |")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected decoration-only row to be skipped")
	}
}

func TestParseLineSingleParent(t *testing.T) {
	entry, ok, err := parseLine("* #abc123 def456-1700000000 add test.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected row to parse")
	}
	if entry.Hash != "abc123" {
		t.Fatalf("unexpected hash: %q", entry.Hash)
	}
	if len(entry.ParentHashes) != 1 || entry.ParentHashes[0] != "def456" {
		t.Fatalf("unexpected parents: %v", entry.ParentHashes)
	}
	if entry.AuthorTS != 1700000000 {
		t.Fatalf("unexpected author ts: %d", entry.AuthorTS)
	}
	if entry.Subject != "add test.txt" {
		t.Fatalf("unexpected subject: %q", entry.Subject)
	}
}

func TestParseLineNoParent(t *testing.T) {
	entry, ok, err := parseLine("* #abc123-1700000000 initial commit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected row to parse")
	}
	if len(entry.ParentHashes) != 0 {
		t.Fatalf("expected no parents, got %v", entry.ParentHashes)
	}
	if entry.Parents()[0] != "4b825dc642cb6eb9a060e54bf8d69288fbee4904" {
		t.Fatalf("expected empty-tree sentinel, got %v", entry.Parents())
	}
}

func TestParseLineTrunkRowIsOnCurrentLine(t *testing.T) {
	entry, ok, err := parseLine("* #abc123 def456-1700000000 add test.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected row to parse")
	}
	if !entry.OnCurrentLine {
		t.Fatalf("expected trunk row (node marker at column 0) to be OnCurrentLine")
	}
}

func TestParseLineBranchedRowIsNotOnCurrentLine(t *testing.T) {
	entry, ok, err := parseLine("| * #abc123 def456-1700000000 branched work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected row to parse")
	}
	if entry.OnCurrentLine {
		t.Fatalf("expected row reached off the main line (node marker behind graph art) to not be OnCurrentLine")
	}
}

func TestParseLineDeeplyIndentedBranchedRowIsNotOnCurrentLine(t *testing.T) {
	entry, ok, err := parseLine("| | * #abc123 def456-1700000000 deep branch work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected row to parse")
	}
	if entry.OnCurrentLine {
		t.Fatalf("expected deeply-indented row to not be OnCurrentLine")
	}
}

func TestParseLineMergeCommitMultipleParents(t *testing.T) {
	entry, ok, err := parseLine("*   #abc123 def456 ghi789-1700000000 Merge branch 'feature'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected row to parse")
	}
	if len(entry.ParentHashes) != 2 {
		t.Fatalf("unexpected parents: %v", entry.ParentHashes)
	}
	if entry.Subject != "Merge branch 'feature'" {
		t.Fatalf("unexpected subject: %q", entry.Subject)
	}
}

func TestParseLineSubjectContainingDash(t *testing.T) {
	entry, ok, err := parseLine("* #abc123 def456-1700000000 fix: off-by-one error")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected row to parse")
	}
	if entry.Subject != "fix: off-by-one error" {
		t.Fatalf("unexpected subject: %q", entry.Subject)
	}
}

func TestEntryKeyAndValue(t *testing.T) {
	e := Entry{Hash: "abc", ParentHashes: []string{"def"}, AuthorTS: 100, Subject: "msg"}
	if e.Key() != "#abc def" {
		t.Fatalf("unexpected key: %q", e.Key())
	}
	if e.Value() != "100 msg" {
		t.Fatalf("unexpected value: %q", e.Value())
	}
}

func TestSquashMarker(t *testing.T) {
	start, end, ok := SquashMarker("chore(sync): squash commits from aaa111 to bbb222")
	if !ok {
		t.Fatalf("expected squash marker to be recognized")
	}
	if start != "aaa111" || end != "bbb222" {
		t.Fatalf("unexpected range: %s..%s", start, end)
	}

	if _, _, ok := SquashMarker("add test.txt"); ok {
		t.Fatalf("expected plain subject to not match")
	}
}
