package action

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/conn-castle/devsetup/internal/messages"
)

// ProfileBlock keeps a marked block of lines in a user's shell profile.
// Content outside the markers is preserved byte for byte.
type ProfileBlock struct {
	User string
	// Path is usually "~/.bashrc".
	Path   string
	Marker string
	Lines  []string
}

func (a ProfileBlock) Kind() Kind { return KindProfileBlock }

func (a ProfileBlock) Describe() string {
	return fmt.Sprintf("update %s block in %s", a.Marker, a.Path)
}

func (a ProfileBlock) Run(_ context.Context, env Env) error {
	path, owner, err := resolvePath(env, a.Path, a.User)
	if err != nil {
		return err
	}
	current, err := readOptional(env, path)
	if err != nil {
		return err
	}
	updated, err := ApplyBlock(current, a.Marker, a.Lines)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if updated == current {
		satisfied(env, a.Describe())
		return nil
	}
	if env.Config.DryRun() {
		previewWrite(env, path, current, updated)
		return nil
	}
	mode := permOr(env, path, 0o644)
	return writeOwned(env, path, []byte(updated), mode, owner)
}

// permOr returns the permissions of an existing path, or fallback.
func permOr(env Env, path string, fallback os.FileMode) os.FileMode {
	if info, err := env.System.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return fallback
}

// BlockMarkers returns the begin and end lines of a managed block.
func BlockMarkers(marker string) (string, string) {
	return "# >>> " + marker + " >>>", "# <<< " + marker + " <<<"
}

// ApplyBlock returns content with the managed block set to lines.
// An existing block is replaced in place; otherwise the block is appended.
func ApplyBlock(content string, marker string, lines []string) (string, error) {
	begin, end := BlockMarkers(marker)
	block := begin + "\n" + strings.Join(lines, "\n") + "\n" + end + "\n"

	start := indexLine(content, begin)
	if start < 0 {
		if indexLine(content, end) >= 0 {
			return "", fmt.Errorf(messages.ActionBlockUnbalancedFmt, marker)
		}
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		if content != "" {
			content += "\n"
		}
		return content + block, nil
	}
	rel := indexLine(content[start:], end)
	if rel < 0 {
		return "", fmt.Errorf(messages.ActionBlockUnbalancedFmt, marker)
	}
	stop := start + rel + len(end)
	if stop < len(content) && content[stop] == '\n' {
		stop++
	}
	return content[:start] + block + content[stop:], nil
}

// indexLine finds line as a whole line in content.
func indexLine(content string, line string) int {
	offset := 0
	for {
		i := strings.Index(content[offset:], line)
		if i < 0 {
			return -1
		}
		pos := offset + i
		startOK := pos == 0 || content[pos-1] == '\n'
		after := pos + len(line)
		endOK := after == len(content) || content[after] == '\n'
		if startOK && endOK {
			return pos
		}
		offset = pos + 1
	}
}
