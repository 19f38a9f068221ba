package action

import (
	"fmt"
	"strings"

	"github.com/aymanbagabas/go-udiff"
)

// DiffMaxLines caps the dry-run diff preview per file.
const DiffMaxLines = 40

// renderDiff returns a unified diff of from -> to, truncated to maxLines.
func renderDiff(name string, from string, to string, maxLines int) (string, bool) {
	if maxLines <= 0 {
		maxLines = DiffMaxLines
	}
	diff := udiff.Unified(name+" (current)", name+" (planned)", from, to)
	lines := splitDiffLines(diff)
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n"), false
	}
	lines = append(lines[:maxLines:maxLines], fmt.Sprintf("... (%d more lines)", len(splitDiffLines(diff))-maxLines))
	return strings.Join(lines, "\n"), true
}

func splitDiffLines(content string) []string {
	trimmed := strings.TrimRight(content, "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// previewWrite logs the planned change to path under dry-run.
func previewWrite(env Env, path string, from string, to string) {
	wouldDo(env, "write %s", path)
	if diff, _ := renderDiff(path, from, to, DiffMaxLines); diff != "" {
		env.Log.Infof("%s", diff)
	}
}
