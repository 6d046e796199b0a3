package storage

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var separatorReplacer = strings.NewReplacer(
	"：", ":",
	"﹨", string(filepath.Separator),
	"／", string(filepath.Separator),
	`\`, string(filepath.Separator),
	"/", string(filepath.Separator),
)

var repeatedDrive = regexp.MustCompile(`(?i)^([a-z]:[\\/].*?)[\\/]([a-z]:[\\/].*)$`)

// SanitizePath normalizes separators, including full-width look-alikes,
// collapses duplicates and returns a cleaned absolute path.
func SanitizePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	path = separatorReplacer.Replace(path)
	sep := string(filepath.Separator)
	for strings.Contains(path, sep+sep) {
		path = strings.ReplaceAll(path, sep+sep, sep)
	}

	// D:\x\D:\x\y collapses to D:\x\y
	if m := repeatedDrive.FindStringSubmatch(path); m != nil && strings.HasPrefix(strings.ToLower(m[2]), strings.ToLower(m[1])) {
		path = m[2]
	}

	return filepath.Abs(filepath.Clean(path))
}

// SafeName strips separators from a single path component such as a
// highlight title.
func SafeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '／', '﹨', '：':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

// Snapshot lists the regular files in dir.
func Snapshot(dir string) map[string]struct{} {
	out := make(map[string]struct{})
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			out[entry.Name()] = struct{}{}
		}
	}
	return out
}

// NewFiles returns the files present in dir that are absent from before.
// Anything else writing into dir between the two listings is attributed to
// the caller, so only use it where a single writer owns the directory.
func NewFiles(dir string, before map[string]struct{}) []string {
	var out []string
	for name := range Snapshot(dir) {
		if _, ok := before[name]; !ok {
			out = append(out, filepath.Join(dir, name))
		}
	}
	sort.Strings(out)
	return out
}
