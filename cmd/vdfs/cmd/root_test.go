package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t       *testing.T
	project string
	config  string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	project := t.TempDir()
	files := map[string]string{
		"Documentation/intro.md":        "# Intro\n\nWelcome to the project.",
		"Documentation/guide/setup.md":  "# Setup\n\nInstall it.",
		"Documentation/guide/notes.txt": "ignored",
	}
	for rel, content := range files {
		full := filepath.Join(project, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	config := filepath.Join(project, "vdfs.yaml")
	yaml := fmt.Sprintf(`project:
  dir: %s
collections:
  dsn: %s
log:
  level: error
`, project, filepath.Join(project, ".vdfs", "collections.db"))
	require.NoError(t, os.WriteFile(config, []byte(yaml), 0o644))
	return &cli{t: t, project: project, config: config}
}

func (c *cli) runWithInput(stdin string, args ...string) (string, error) {
	c.t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", c.config}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) run(args ...string) string {
	c.t.Helper()
	out, err := c.runWithInput("", args...)
	require.NoError(c.t, err, out)
	return out
}

func lines(out string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			rows = append(rows, strings.Fields(line))
		}
	}
	return rows
}

func TestLs(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, [][]string{
		{"file", "/All/Documentation/intro"},
		{"file", "/All/Documentation/guide/setup"},
	}, lines(c.run("ls", "/All/Documentation", "-r", "--files")))

	assert.Equal(t, [][]string{
		{"folder", "/All/Documentation/guide"},
		{"file", "/All/Documentation/intro"},
	}, lines(c.run("ls", "/All/Documentation")))

	assert.Equal(t, [][]string{{"folder", "/All"}}, lines(c.run("ls")))
	assert.Equal(t, [][]string{{"folder", "/All/Documentation"}}, lines(c.run("ls", "/All")))

	assert.Equal(t, [][]string{
		{"file", "/All/Documentation/guide/setup"},
	}, lines(c.run("ls", "/Documentation/guide", "--internal", "--files")))

	assert.Equal(t, [][]string{
		{"file", "/All/Documentation/intro"},
	}, lines(c.run("ls", "/All/Documentation", "-r", "--files", "--deny", "/Documentation/guide/setup")))

	_, err := c.runWithInput("", "ls", "/Nowhere")
	assert.Error(t, err)
}

func TestTree(t *testing.T) {
	c := newCLI(t)
	out := c.run("tree", "/All")
	assert.True(t, strings.HasPrefix(out, "/All\n"), out)
	assert.Contains(t, out, "Documentation")
	assert.Contains(t, out, "guide")
	assert.Contains(t, out, "intro *")
	assert.Contains(t, out, "setup *")
	assert.NotContains(t, out, "notes")
}

func TestCatAndWrite(t *testing.T) {
	c := newCLI(t)
	assert.Equal(t, "# Intro\n\nWelcome to the project.", c.run("cat", "/All/Documentation/intro"))

	c.run("write", "/All/Documentation/intro", "--text", "# Intro v2")
	assert.Equal(t, "# Intro v2", c.run("cat", "/all/documentation/INTRO"))

	_, err := c.runWithInput("# From stdin\n", "write", "/All/Documentation/guide/setup")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(c.project, "Documentation", "guide", "setup.md"))
	require.NoError(t, err)
	assert.Equal(t, "# From stdin\n", string(data))

	_, err = c.runWithInput("", "cat", "/All/Documentation/guide")
	assert.Error(t, err)
	_, err = c.runWithInput("", "cat", "/All/Documentation/missing")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	c := newCLI(t)
	out := c.run("new", "/All/Documentation/guide", "install")
	assert.Equal(t, "/All/Documentation/guide/install\n", out)
	assert.FileExists(t, filepath.Join(c.project, "Documentation", "guide", "install.md"))

	_, err := c.runWithInput("", "new", "/All/Documentation/guide", "install")
	assert.Error(t, err)
	_, err = c.runWithInput("", "new", "/All/Documentation/intro", "x")
	assert.Error(t, err)
}

func TestAttrs(t *testing.T) {
	c := newCLI(t)
	out := c.run("attrs", "/All/Documentation/intro")
	assert.Contains(t, out, filepath.Join(c.project, "Documentation", "intro.md"))
	assert.Contains(t, out, "Documentation")
	assert.Contains(t, out, "Welcome to the project.")
	assert.Contains(t, out, "ItemIsEngineContent")

	rows := lines(out)
	assert.Contains(t, rows, []string{"ItemIsProjectContent", "true"})
	assert.Contains(t, rows, []string{"ItemIsEngineContent", "false"})
	var keys []string
	for _, row := range rows[1:] {
		keys = append(keys, row[0])
	}
	assert.IsNonDecreasing(t, keys)

	out = c.run("attrs", "/All/Documentation/guide")
	assert.Contains(t, lines(out), []string{"ItemIsProjectContent", "true"})
	assert.NotContains(t, out, "ItemDescription")
}

func TestCatDocumentNextToFolder(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, os.WriteFile(filepath.Join(c.project, "Documentation", "guide.md"), []byte("# Guide"), 0o644))

	assert.Equal(t, "# Guide", c.run("cat", "/All/Documentation/guide.md"))
	_, err := c.runWithInput("", "cat", "/All/Documentation/guide")
	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	c := newCLI(t)
	out := c.run("refresh")
	require.Len(t, lines(out), 1)
	assert.Contains(t, out, "project")
	assert.Contains(t, out, "documents=2")
	assert.Contains(t, out, "folders=1")
}

func TestEdit(t *testing.T) {
	c := newCLI(t)
	script := filepath.Join(t.TempDir(), "editor.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho '# Edited' > \"$1\"\n"), 0o755))
	t.Setenv("EDITOR", script)

	c.run("edit", "/All/Documentation/intro")
	assert.Equal(t, "# Edited\n", c.run("cat", "/All/Documentation/intro"))
}

func TestCollections(t *testing.T) {
	c := newCLI(t)
	c.run("collections", "create", "onboarding")
	c.run("collections", "create", "setup", "--parent", "onboarding")
	c.run("collections", "add", "setup", "/All/Documentation/guide/setup")

	assert.Empty(t, strings.TrimSpace(c.run("collections", "members", "onboarding")))
	assert.Equal(t, "/documentation/guide/setup\n", c.run("collections", "members", "onboarding", "--children"))

	assert.Equal(t, [][]string{
		{"file", "/All/Documentation/guide/setup"},
	}, lines(c.run("ls", "/All/Documentation", "-r", "--files", "--collection", "onboarding", "--children")))

	assert.Empty(t, strings.TrimSpace(c.run("ls", "/All/Documentation", "-r", "--collection", "onboarding")))

	out := c.run("collections", "list")
	assert.Contains(t, out, "onboarding 0")
	assert.Contains(t, out, "setup (in onboarding) 1")

	c.run("col", "remove", "setup", "/All/Documentation/guide/setup")
	assert.Empty(t, strings.TrimSpace(c.run("collections", "members", "setup")))
}
