package logscan_test

import (
	"testing"

	"github.com/skaphos/gitsync/internal/logscan"
)

func TestNewInTargetComparesByValueNotKey(t *testing.T) {
	source := []logscan.Entry{
		{Hash: "src1", AuthorTS: 100, Subject: "add a"},
		{Hash: "src2", AuthorTS: 200, Subject: "add b"},
	}
	target := []logscan.Entry{
		// Same value as src1 but a different hash, as projection always
		// produces.
		{Hash: "tgt1", AuthorTS: 100, Subject: "add a"},
	}

	got := logscan.NewInTarget(source, target)
	if len(got) != 1 || got[0].Hash != "src2" {
		t.Fatalf("unexpected new-in-target result: %+v", got)
	}
}

func TestNewInTargetEmptyTargetReturnsAllSource(t *testing.T) {
	source := []logscan.Entry{{Hash: "src1", AuthorTS: 1, Subject: "x"}}
	got := logscan.NewInTarget(source, nil)
	if len(got) != 1 {
		t.Fatalf("expected all source entries, got %d", len(got))
	}
}
