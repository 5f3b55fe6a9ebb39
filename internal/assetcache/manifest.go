package assetcache

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// LoadManifest reads one asset path or URL per line. Blank lines and lines
// starting with '#' are skipped; duplicates keep their first position.
func LoadManifest(r io.Reader) ([]string, error) {
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return out, nil
}

// ResolveManifest turns manifest entries into absolute URLs. Relative paths
// are resolved against origin; absolute URLs (pinned third-party bundles)
// are kept as they are.
func ResolveManifest(origin *url.URL, entries []string) ([]string, error) {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		u, err := url.Parse(e)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %q: %w", e, err)
		}
		if !u.IsAbs() {
			if origin == nil {
				return nil, fmt.Errorf("manifest entry %q: relative path without origin", e)
			}
			u = origin.ResolveReference(u)
		}
		out = append(out, Key(u))
	}
	return out, nil
}

// Key is the cache key of a GET for u: the absolute URL without fragment.
func Key(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	c.Host = strings.ToLower(c.Host)
	c.Scheme = strings.ToLower(c.Scheme)
	if c.Path == "" {
		c.Path = "/"
	}
	return c.String()
}
