package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/festy23/mrdocgen/internal/browser"
	"github.com/festy23/mrdocgen/internal/config"
	"github.com/festy23/mrdocgen/internal/mergerequest/model"
)

// fakeSurface simulates the analysis web surface. Loading indicators stay
// visible for loadingPolls snapshots, then disappear.
type fakeSurface struct {
	hasInput     bool
	responseText string
	pageText     string
	loadingPolls int

	typed   []string
	clicked []browser.Element
	navs    []string
}

func (f *fakeSurface) Navigate(_ context.Context, url string) error {
	f.navs = append(f.navs, url)
	return nil
}

func (f *fakeSurface) CurrentURL(context.Context) (string, error) { return "about:blank", nil }

func (f *fakeSurface) Locate(_ context.Context, loc browser.Locator) (browser.Element, error) {
	if f.hasInput && loc.Value == "//textarea" {
		return "el-input", nil
	}
	return "", browser.ErrElementNotFound
}

func (f *fakeSurface) LocateAll(_ context.Context, loc browser.Locator) ([]browser.Element, error) {
	switch {
	case strings.Contains(loc.Value, "'loading'"):
		if f.loadingPolls > 0 {
			f.loadingPolls--
			return []browser.Element{"el-loading"}, nil
		}
		return nil, nil
	case strings.Contains(loc.Value, "data-test-id='response'"):
		if f.responseText != "" {
			return []browser.Element{"el-old", "el-resp"}, nil
		}
		return nil, nil
	default:
		return nil, nil
	}
}

func (f *fakeSurface) Click(_ context.Context, el browser.Element) error {
	f.clicked = append(f.clicked, el)
	return nil
}

func (f *fakeSurface) Clear(context.Context, browser.Element) error { return nil }

func (f *fakeSurface) Type(_ context.Context, _ browser.Element, text string) error {
	f.typed = append(f.typed, text)
	return nil
}

func (f *fakeSurface) ReadText(_ context.Context, el browser.Element) (string, error) {
	if el == "el-resp" {
		return f.responseText, nil
	}
	return "", nil
}

func (f *fakeSurface) PageText(context.Context) (string, error) { return f.pageText, nil }
func (f *fakeSurface) Close(context.Context) error              { return nil }

func orchestratorCfg() config.AnalysisConfig {
	return config.AnalysisConfig{
		Enabled:          true,
		ServiceURL:       "https://analysis.example.com",
		ChunkSize:        40,
		ChunkDelay:       time.Millisecond,
		SettleDelay:      time.Millisecond,
		PollInterval:     time.Millisecond,
		MaxWait:          100 * time.Millisecond,
		MinResponseChars: 80,
		MaxDiffsInPrompt: 5,
		DiffCharBudget:   2000,
	}
}

func newOrchestrator(surface *fakeSurface, cfg config.AnalysisConfig) *Orchestrator {
	return NewOrchestrator(surface, browser.DefaultStrategyTables(), cfg,
		5*time.Millisecond, zap.NewNop().Sugar())
}

func substantiveResponse() string {
	return "Summary: this merge request introduces a read-through caching layer " +
		"for merge request metadata and rewires the service to use it."
}

func testMeta() *model.Metadata {
	return &model.Metadata{Title: "Add caching layer", Source: model.SourceAPI}
}

func testChanges() []model.FileChange {
	return []model.FileChange{
		{NewPath: "cache.go", Diff: "+type Cache struct{}", Additions: 10, Category: model.CategoryBackend},
	}
}

func TestOrchestrator_Analyze(t *testing.T) {
	t.Run("full cycle yields an external result", func(t *testing.T) {
		surface := &fakeSurface{hasInput: true, responseText: substantiveResponse(), loadingPolls: 2}
		o := newOrchestrator(surface, orchestratorCfg())

		result, err := o.Analyze(context.Background(), testMeta(), testChanges())
		require.NoError(t, err)
		assert.Equal(t, model.ProvenanceExternal, result.Provenance)
		assert.GreaterOrEqual(t, result.Length(), orchestratorCfg().MinResponseChars)
		assert.Equal(t, StateExtracted, o.State())

		// The prompt went out in bounded chunks followed by the key trigger.
		require.NotEmpty(t, surface.typed)
		assert.Equal(t, keyEnter, surface.typed[len(surface.typed)-1])
		for _, chunk := range surface.typed[:len(surface.typed)-1] {
			assert.LessOrEqual(t, len(chunk), orchestratorCfg().ChunkSize)
		}
		assert.Equal(t, []string{"https://analysis.example.com"}, surface.navs)
	})

	t.Run("multibyte text survives chunked typing intact", func(t *testing.T) {
		surface := &fakeSurface{hasInput: true, responseText: substantiveResponse()}
		cfg := orchestratorCfg()
		cfg.ChunkSize = 10
		o := newOrchestrator(surface, cfg)

		meta := &model.Metadata{
			Title:       "Починка авторизации",
			Description: "Исправляет обработку сессий при повторном входе",
			Source:      model.SourceAPI,
		}
		changes := []model.FileChange{
			{NewPath: "auth.go", Diff: "+// комментарий о повторном входе\n+var retries = 3",
				Additions: 2, Category: model.CategoryBackend},
		}

		_, err := o.Analyze(context.Background(), meta, changes)
		require.NoError(t, err)

		require.NotEmpty(t, surface.typed)
		var reassembled strings.Builder
		for _, chunk := range surface.typed[:len(surface.typed)-1] {
			assert.True(t, utf8.ValidString(chunk), "chunk splits a rune: %q", chunk)
			reassembled.WriteString(chunk)
		}
		assert.Equal(t, BuildPrompt(meta, changes, cfg), reassembled.String())
	})

	t.Run("sub-threshold response is discarded", func(t *testing.T) {
		surface := &fakeSurface{hasInput: true, responseText: "too short to count"}
		o := newOrchestrator(surface, orchestratorCfg())

		_, err := o.Analyze(context.Background(), testMeta(), testChanges())
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrEnrichmentUnavailable))
		assert.Equal(t, StateExtractionFailed, o.State())
	})

	t.Run("timeout is soft when content eventually readable", func(t *testing.T) {
		// Loading indicators never clear within MaxWait, but the response
		// body is already substantive.
		surface := &fakeSurface{hasInput: true, responseText: substantiveResponse(), loadingPolls: 1 << 30}
		cfg := orchestratorCfg()
		cfg.MaxWait = 5 * time.Millisecond
		o := newOrchestrator(surface, cfg)

		result, err := o.Analyze(context.Background(), testMeta(), testChanges())
		require.NoError(t, err)
		assert.Equal(t, model.ProvenanceExternal, result.Provenance)
	})

	t.Run("missing input area degrades cleanly", func(t *testing.T) {
		surface := &fakeSurface{hasInput: false}
		o := newOrchestrator(surface, orchestratorCfg())

		_, err := o.Analyze(context.Background(), testMeta(), testChanges())
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrEnrichmentUnavailable))
	})

	t.Run("page text scan recovers a response", func(t *testing.T) {
		surface := &fakeSurface{
			hasInput: true,
			pageText: "navigation chrome\nSummary\n" + strings.Repeat("relevant analysis content. ", 10),
		}
		cfg := orchestratorCfg()
		cfg.MaxWait = 5 * time.Millisecond
		o := newOrchestrator(surface, cfg)

		result, err := o.Analyze(context.Background(), testMeta(), testChanges())
		require.NoError(t, err)
		assert.Contains(t, result.Text, "Summary")
		assert.NotContains(t, result.Text, "navigation chrome")
	})
}

func TestChunkEnd(t *testing.T) {
	tests := []struct {
		name  string
		s     string
		start int
		size  int
		want  int
	}{
		{name: "ascii fits exactly", s: "abcdef", start: 0, size: 3, want: 3},
		{name: "tail shorter than size", s: "abcdef", start: 4, size: 10, want: 6},
		{name: "backs up off a rune boundary", s: "ab" + "я" + "cd", start: 0, size: 3, want: 2},
		{name: "oversized rune sent whole", s: "я", start: 0, size: 1, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunkEnd(tt.s, tt.start, tt.size))
		})
	}
}

func TestResponseComplete(t *testing.T) {
	tests := []struct {
		name     string
		state    PageState
		expected bool
	}{
		{
			name:     "loading visible",
			state:    PageState{LoadingVisible: true, ResponseText: "content"},
			expected: false,
		},
		{
			name:     "no response yet",
			state:    PageState{LoadingVisible: false, ResponseText: "  "},
			expected: false,
		},
		{
			name:     "done",
			state:    PageState{LoadingVisible: false, ResponseText: "content"},
			expected: true,
		},
		{
			name:     "idle page",
			state:    PageState{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResponseComplete(tt.state))
		})
	}
}
