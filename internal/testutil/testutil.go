// Package testutil provides shared test helpers for building artifacts,
// manifests and repository layouts on disk.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// WriteZip writes a zip archive at path holding entries (name to content).
// Names ending in "/" become directory entries. Entries are written in
// lexical order so the archive bytes are reproducible.
func WriteZip(t testing.TB, path string, entries map[string]string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, name := range sortedNames(entries) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("add %s to %s: %v", name, path, err)
		}
		if strings.HasSuffix(name, "/") {
			continue
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatalf("write %s to %s: %v", name, path, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
	return path
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Pom renders a minimal POM for g:a:v. Each dependency is written as
// "groupId:artifactId:version" or "groupId:artifactId:type:version".
func Pom(g, a, v string, deps ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<project xmlns="http://maven.apache.org/POM/4.0.0">` + "\n")
	b.WriteString("  <modelVersion>4.0.0</modelVersion>\n")
	fmt.Fprintf(&b, "  <groupId>%s</groupId>\n  <artifactId>%s</artifactId>\n  <version>%s</version>\n", g, a, v)
	if len(deps) > 0 {
		b.WriteString("  <dependencies>\n")
		for _, d := range deps {
			parts := strings.Split(d, ":")
			b.WriteString("    <dependency>\n")
			fmt.Fprintf(&b, "      <groupId>%s</groupId>\n      <artifactId>%s</artifactId>\n", parts[0], parts[1])
			if len(parts) == 4 {
				fmt.Fprintf(&b, "      <type>%s</type>\n", parts[2])
			}
			fmt.Fprintf(&b, "      <version>%s</version>\n", parts[len(parts)-1])
			b.WriteString("    </dependency>\n")
		}
		b.WriteString("  </dependencies>\n")
	}
	b.WriteString("</project>\n")
	return b.String()
}

// RepoPath returns the Maven layout location of a file in a repository root.
func RepoPath(root, g, a, v, fileName string) string {
	return filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(g, ".", "/")), a, v, fileName)
}

// ReadTree returns every regular file below root keyed by its slash
// separated relative path.
func ReadTree(t testing.TB, root string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("read tree %s: %v", root, err)
	}
	return tree
}

func sortedNames(entries map[string]string) []string {
	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
