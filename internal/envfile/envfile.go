// Package envfile parses KEY=VALUE files such as /etc/os-release.
package envfile

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/conn-castle/devsetup/internal/messages"
)

// Parse reads KEY=VALUE content into a map.
// Blank lines and # comments are ignored; a leading "export " is tolerated.
func Parse(content string) (map[string]string, error) {
	env := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		key, value, ok, err := parseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf(messages.EnvfileLineErrorFmt, lineNo, err)
		}
		if ok {
			env[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf(messages.EnvfileReadFailedFmt, err)
	}
	return env, nil
}

// OSRelease holds the identification fields of an os-release file.
type OSRelease struct {
	ID         string
	IDLike     []string
	VersionID  string
	PrettyName string
}

// Matches reports whether the distribution is one of ids, either directly or through ID_LIKE.
func (r OSRelease) Matches(ids []string) bool {
	for _, want := range ids {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		if r.ID == want {
			return true
		}
		for _, like := range r.IDLike {
			if like == want {
				return true
			}
		}
	}
	return false
}

// ParseOSRelease parses os-release content.
func ParseOSRelease(content string) (OSRelease, error) {
	env, err := Parse(content)
	if err != nil {
		return OSRelease{}, err
	}
	id := strings.ToLower(env["ID"])
	if id == "" {
		return OSRelease{}, fmt.Errorf(messages.EnvfileOSReleaseMissingID)
	}
	return OSRelease{
		ID:         id,
		IDLike:     strings.Fields(strings.ToLower(env["ID_LIKE"])),
		VersionID:  env["VERSION_ID"],
		PrettyName: env["PRETTY_NAME"],
	}, nil
}

func parseLine(line string) (string, string, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false, nil
	}
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "export "))
	idx := strings.Index(trimmed, "=")
	if idx <= 0 {
		return "", "", false, fmt.Errorf(messages.EnvfileExpectedKeyValue)
	}
	key := strings.TrimSpace(trimmed[:idx])
	value, err := unquote(strings.TrimSpace(trimmed[idx+1:]))
	if err != nil {
		return "", "", false, err
	}
	return key, value, true, nil
}

// unquote strips shell-style quoting. Double quotes honor backslash escapes.
func unquote(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	switch value[0] {
	case '\'':
		end := strings.IndexByte(value[1:], '\'')
		if end < 0 {
			return "", fmt.Errorf(messages.EnvfileUnterminatedQuotedValue)
		}
		return value[1 : 1+end], nil
	case '"':
		var b strings.Builder
		for i := 1; i < len(value); i++ {
			c := value[i]
			if c == '\\' && i+1 < len(value) {
				i++
				b.WriteByte(value[i])
				continue
			}
			if c == '"' {
				return b.String(), nil
			}
			b.WriteByte(c)
		}
		return "", fmt.Errorf(messages.EnvfileUnterminatedQuotedValue)
	}
	if idx := strings.Index(value, " #"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value, nil
}
