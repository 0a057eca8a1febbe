package srcsrv

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

var ErrPathEscapesRoot = errors.New("source path escapes the destination root")

// stripVolume turns a Windows or POSIX absolute path into a slash separated
// relative one: C:\src\a.cs and \\server\share\src\a.cs both become src/a.cs
func stripVolume(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")

	if strings.HasPrefix(p, "//") {
		// UNC: drop server and share
		parts := strings.SplitN(strings.TrimLeft(p, "/"), "/", 3)
		if len(parts) == 3 {
			p = parts[2]
		} else {
			p = ""
		}
	} else if len(p) >= 2 && p[1] == ':' && isLetter(p[0]) {
		p = p[2:]
	}
	return strings.TrimLeft(p, "/")
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// relativeFromVar2 derives a relative path from the second field of a
// source file entry, which is either a server relative path or a full
// URL
func relativeFromVar2(v string) string {
	if u, err := url.Parse(v); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return strings.TrimLeft(u.Host+"/"+u.Path, "/")
	}
	return stripVolume(v)
}

// destination computes where a source file entry lands under root
func destination(root string, fields []string, useSourceFilePath bool) (string, error) {
	if len(fields) == 0 || strings.TrimSpace(fields[0]) == "" {
		return "", fmt.Errorf("source file entry has no path")
	}

	rel := ""
	if !useSourceFilePath && len(fields) > 1 {
		rel = relativeFromVar2(fields[1])
	}
	if rel == "" {
		rel = stripVolume(fields[0])
	}
	return safeJoin(root, rel)
}

// safeJoin joins rel below root and refuses results outside of it
func safeJoin(root, rel string) (string, error) {
	cleaned := path.Clean(rel)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || path.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRoot, rel)
	}

	dest := filepath.Join(root, filepath.FromSlash(cleaned))
	back, err := filepath.Rel(root, dest)
	if err != nil || back == "." || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRoot, rel)
	}
	return dest, nil
}
