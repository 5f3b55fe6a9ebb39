package assetcache

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	in := `
# application shell
/
/app.js
  /app.css

/app.js
https://cdn.example.com/lib@1.2.3/lib.min.js
`
	got, err := LoadManifest(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/app.js", "/app.css", "https://cdn.example.com/lib@1.2.3/lib.min.js"}, got)
}

func TestResolveManifest(t *testing.T) {
	origin, err := url.Parse("https://App.Example.com")
	require.NoError(t, err)

	got, err := ResolveManifest(origin, []string{"/", "app.js#main", "https://cdn.example.com/x.js"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://app.example.com/",
		"https://app.example.com/app.js",
		"https://cdn.example.com/x.js",
	}, got)

	_, err = ResolveManifest(nil, []string{"/app.js"})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	u, err := url.Parse("HTTPS://Example.COM?x=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/?x=1", Key(u))
}
