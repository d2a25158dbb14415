package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitsync/internal/config"
)

var _ = Describe("Config", func() {
	It("resolves config path from override directory", func() {
		path, err := config.ConfigPath(filepath.Join("tmp", "gitsync"))
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix(filepath.Join("gitsync", "config.yaml")))
	})

	It("resolves config path from override file", func() {
		path, err := config.ConfigPath(filepath.Join("tmp", "config.yaml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix(filepath.Join("tmp", "config.yaml")))
	})

	It("resolves config path from env", func() {
		Expect(os.Setenv("GITSYNC_CONFIG", filepath.Join("cfg", "config.yaml"))).To(Succeed())
		defer func() { _ = os.Unsetenv("GITSYNC_CONFIG") }()
		path, err := config.ConfigPath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix(filepath.Join("cfg", "config.yaml")))
	})

	It("resolves init path to local dotfile by default", func() {
		dir := GinkgoT().TempDir()
		path, err := config.InitConfigPath("", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(dir, ".gitsync.yaml")))
	})

	It("prefers local dotfile for runtime config resolution", func() {
		dir := GinkgoT().TempDir()
		localPath := filepath.Join(dir, ".gitsync.yaml")
		Expect(os.WriteFile(localPath, []byte("apiVersion: skaphos.io/gitsync/v1beta1\nkind: GitSyncConfig\n"), 0o644)).To(Succeed())

		path, err := config.ResolveConfigPath("", dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(localPath))
	})

	It("resolves runtime config from nearest parent dotfile", func() {
		dir := GinkgoT().TempDir()
		parentPath := filepath.Join(dir, ".gitsync.yaml")
		Expect(os.WriteFile(parentPath, []byte("apiVersion: skaphos.io/gitsync/v1beta1\nkind: GitSyncConfig\n"), 0o644)).To(Succeed())

		nested := filepath.Join(dir, "a", "b", "c")
		Expect(os.MkdirAll(nested, 0o755)).To(Succeed())

		path, err := config.ResolveConfigPath("", nested)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(parentPath))
	})

	It("prefers nearer dotfile over farther parent", func() {
		dir := GinkgoT().TempDir()
		parentPath := filepath.Join(dir, ".gitsync.yaml")
		Expect(os.WriteFile(parentPath, []byte("apiVersion: skaphos.io/gitsync/v1beta1\nkind: GitSyncConfig\n"), 0o644)).To(Succeed())

		childDir := filepath.Join(dir, "a", "b")
		Expect(os.MkdirAll(childDir, 0o755)).To(Succeed())
		childPath := filepath.Join(childDir, ".gitsync.yaml")
		Expect(os.WriteFile(childPath, []byte("apiVersion: skaphos.io/gitsync/v1beta1\nkind: GitSyncConfig\n"), 0o644)).To(Succeed())

		nested := filepath.Join(childDir, "c")
		Expect(os.MkdirAll(nested, 0o755)).To(Succeed())

		path, err := config.ResolveConfigPath("", nested)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(childPath))
	})

	It("falls back to global runtime config when local dotfile is absent", func() {
		dir := GinkgoT().TempDir()
		path, err := config.ResolveConfigPath("", dir)
		Expect(err).NotTo(HaveOccurred())

		globalPath, err := config.ConfigPath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(globalPath))
	})

	It("saves and loads config with defaults and run definitions", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.yaml")
		cfg := config.DefaultConfig()
		cfg.Runs = []config.Run{
			{
				Name:   "mirror-pkg",
				Source: config.Endpoint{Dir: filepath.Join(dir, "src")},
				Target: config.Endpoint{Dir: filepath.Join(dir, "tgt"), Subdir: "pkg"},
			},
		}

		Expect(config.Save(&cfg, path)).To(Succeed())
		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Defaults.RemoteName).To(Equal("origin"))
		Expect(loaded.FindRun("mirror-pkg")).NotTo(BeNil())
		Expect(loaded.FindRun("mirror-pkg").Target.Subdir).To(Equal("pkg"))
		Expect(loaded.FindRun("missing")).To(BeNil())
	})

	It("rejects a config file with the wrong apiVersion", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.yaml")
		Expect(os.WriteFile(path, []byte("apiVersion: some.other/v1\nkind: GitSyncConfig\n"), 0o644)).To(Succeed())
		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
	})
})
