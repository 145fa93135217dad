package cmd

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/idcheck/internal/testutil"
)

// isolate runs the test in an empty working directory with no config files
// on the search path.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	return dir
}

// replayFlags points the OCR engine at a recorded TSV holding words.
func replayFlags(t *testing.T, dir string, words ...string) []string {
	t.Helper()
	path := testutil.WriteFile(t, dir, "ocr.tsv", []byte(testutil.TesseractTSV(words...)))
	return []string{"--ocr-engine", "replay", "--replay-file", path}
}

// panCardWords returns 25 tokens: three keywords, one identifier and fillers.
func panCardWords() []string {
	words := []string{"INCOME", "TAX", "DEPARTMENT", "ABCDE1234F"}
	for len(words) < 25 {
		words = append(words, "zz")
	}
	return words
}

func writeCard(t *testing.T, dir, name string) string {
	t.Helper()
	doc := testutil.GenerateDocument(testutil.DefaultDocumentConfig())
	return testutil.WriteFile(t, dir, name, testutil.PNG(t, doc))
}

func execute(t *testing.T, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}
