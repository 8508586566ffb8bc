package gather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/util"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/worker"
)

const articlePage = `<!DOCTYPE html>
<html><head><title>Eiffel Tower facts</title></head>
<body>
<nav><a href="/">Home</a> | <a href="/about">About</a></nav>
<article>
<h1>Eiffel Tower facts</h1>
<p>The Eiffel Tower is a wrought-iron lattice tower on the Champ de Mars in Paris, France. It is named after the engineer Gustave Eiffel, whose company designed and built the tower between 1887 and 1889.</p>
<p>The tower is 330 metres tall, about the same height as an 81-storey building, and was the tallest man-made structure in the world until the Chrysler Building in New York City was finished in 1930.</p>
<p>The tower has three levels for visitors, with restaurants on the first and second levels. The top level's upper platform is 276 m above the ground, the highest observation deck accessible to the public in the European Union.</p>
</article>
<footer>Copyright example</footer>
</body></html>`

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
		case "/article":
			assert.Contains(t, r.Header.Get("User-Agent"), "TruthfulnessEvaluator")
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(articlePage))
		case "/notes.txt":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("  first   line \n\n\n second line\n"))
		case "/image.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
		case "/private/page":
			t.Error("disallowed page must not be requested")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestFetcher_Fetch(t *testing.T) {
	server := newSiteServer(t)
	defer server.Close()

	f := NewFetcher(FetcherConfig{
		Client:  server.Client(),
		Robots:  util.NewRobotsChecker("TruthfulnessEvaluator/0.1", server.Client(), nil),
		Limiter: worker.NewLimiter(100, 10),
		Timeout: 5 * time.Second,
	})
	ctx := context.Background()

	text, err := f.Fetch(ctx, server.URL+"/article")
	require.NoError(t, err)
	assert.Contains(t, text, "wrought-iron lattice tower")
	assert.Contains(t, text, "330 metres tall")
	assert.NotContains(t, text, "<p>")

	text, err = f.Fetch(ctx, server.URL+"/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", text)
}

func TestFetcher_Failures(t *testing.T) {
	server := newSiteServer(t)
	defer server.Close()

	f := NewFetcher(FetcherConfig{
		Client: server.Client(),
		Robots: util.NewRobotsChecker("TruthfulnessEvaluator/0.1", server.Client(), nil),
	})
	ctx := context.Background()

	_, err := f.Fetch(ctx, server.URL+"/private/page")
	assert.ErrorIs(t, err, ErrDisallowed)

	_, err = f.Fetch(ctx, server.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = f.Fetch(ctx, server.URL+"/image.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")

	_, err = f.Fetch(ctx, "ftp://example.com/file")
	require.Error(t, err)
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b\nc", collapseWhitespace("  a \t b \n\n   \n c  "))
	assert.Equal(t, "", collapseWhitespace(strings.Repeat(" \n", 3)))
}
