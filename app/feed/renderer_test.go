package feed

import (
	"strings"
	"testing"
)

func TestRendererRun(t *testing.T) {
	renderer := NewRenderer()

	html, err := renderer.Run("# Title\n\n## Article\n\n*Published: today*\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for _, want := range []string{"<h1", "Title</h1>", "<h2", "<em>Published: today</em>", "<table>"} {
		if !strings.Contains(html, want) {
			t.Errorf("Expected rendered HTML to contain %q, got %s", want, html)
		}
	}
}

func TestRendererSanitizes(t *testing.T) {
	renderer := NewRenderer()

	html, err := renderer.Run("Hello <script>alert(1)</script> [link](javascript:alert(1))")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if strings.Contains(html, "<script") || strings.Contains(html, "javascript:") {
		t.Errorf("Expected script content to be removed, got %s", html)
	}
}
