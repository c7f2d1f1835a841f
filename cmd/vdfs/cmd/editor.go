package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ZanzyTHEbar/virtual-docfs/vdfs/trees"
)

// processEditor opens documents in an external editor process and returns
// whatever it saved so the mount can persist and announce the change.
type processEditor struct {
	command []string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

func newProcessEditor(command string, stdin io.Reader, stdout, stderr io.Writer) *processEditor {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = []string{"vi"}
	}
	return &processEditor{command: fields, stdin: stdin, stdout: stdout, stderr: stderr}
}

func (e *processEditor) Edit(ctx context.Context, doc *trees.Document) (string, error) {
	args := append(append([]string(nil), e.command[1:]...), doc.DiskPath)
	c := exec.CommandContext(ctx, e.command[0], args...)
	c.Stdin, c.Stdout, c.Stderr = e.stdin, e.stdout, e.stderr
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", e.command[0], err)
	}

	data, err := os.ReadFile(doc.DiskPath)
	if err != nil {
		return "", fmt.Errorf("failed to read back %s: %w", doc.RelativePath, err)
	}
	return string(data), nil
}
