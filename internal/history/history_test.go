package history_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitsync/internal/history"
)

var _ = Describe("Ledger", func() {
	It("saves and loads a ledger", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "history.yaml")
		l := &history.Ledger{
			Runs: []history.Run{
				{SourceDir: "/src", TargetDir: "/tgt", Outcome: history.OutcomeSucceeded, TargetHash: "abc"},
			},
		}
		Expect(history.Save(l, path)).To(Succeed())

		loaded, err := history.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Runs).To(HaveLen(1))
		Expect(loaded.Runs[0].TargetHash).To(Equal("abc"))
	})

	It("returns an empty ledger when the file does not exist", func() {
		l, err := history.Load(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Runs).To(BeEmpty())
	})

	It("upserts by (source, target) directory pair", func() {
		l := &history.Ledger{}
		l.Upsert(history.Run{SourceDir: "/a", TargetDir: "/b", Outcome: history.OutcomeSucceeded, TargetHash: "h1"})
		l.Upsert(history.Run{SourceDir: "/a", TargetDir: "/b", Outcome: history.OutcomeSucceeded, TargetHash: "h2"})
		Expect(l.Runs).To(HaveLen(1))
		Expect(l.Runs[0].TargetHash).To(Equal("h2"))
	})

	It("distinguishes pairs by subdir", func() {
		l := &history.Ledger{}
		l.Upsert(history.Run{SourceDir: "/a", SourceSubdir: "pkg1", TargetDir: "/b", Outcome: history.OutcomeSucceeded})
		l.Upsert(history.Run{SourceDir: "/a", SourceSubdir: "pkg2", TargetDir: "/b", Outcome: history.OutcomeSucceeded})
		Expect(l.Runs).To(HaveLen(2))
	})

	It("finds a recorded run", func() {
		l := &history.Ledger{}
		l.Upsert(history.Run{SourceDir: "/a", TargetDir: "/b", Outcome: history.OutcomeConflict, Detail: "main"})
		found := l.Find("/a", "", "/b", "")
		Expect(found).NotTo(BeNil())
		Expect(found.Outcome).To(Equal(history.OutcomeConflict))
	})

	It("reports nil for an unrecorded pair", func() {
		l := &history.Ledger{}
		Expect(l.Find("/a", "", "/b", "")).To(BeNil())
	})
})
