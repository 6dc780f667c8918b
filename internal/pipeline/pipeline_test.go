package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/festy23/mrdocgen/internal/classifier"
	"github.com/festy23/mrdocgen/internal/config"
	"github.com/festy23/mrdocgen/internal/mergerequest/model"
	"github.com/festy23/mrdocgen/internal/synthesizer"
)

type fakeResolver struct {
	probeErr   error
	apiWorking bool
	results    map[string]model.AccessibilityResult

	resolveCalls int
}

func (f *fakeResolver) Probe(context.Context) error { return f.probeErr }

func (f *fakeResolver) Resolve(_ context.Context, ref model.Ref) model.AccessibilityResult {
	f.resolveCalls++
	if result, ok := f.results[ref.CacheKey()]; ok {
		return result
	}
	return model.AccessibilityResult{FailureReason: "no channel available"}
}

func (f *fakeResolver) APIWorking() bool  { return f.apiWorking }
func (f *fakeResolver) UIAvailable() bool { return true }

type fakeAPI struct {
	entries []model.DiffEntry
	err     error
}

func (f *fakeAPI) GetChanges(context.Context, model.Ref) ([]model.DiffEntry, error) {
	return f.entries, f.err
}

func (f *fakeAPI) GetCommits(context.Context, model.Ref, int) (int, []string, error) {
	return 2, []string{"first commit", "second commit"}, nil
}

type fakeAnalyzer struct {
	text string
	err  error

	calls int
}

func (f *fakeAnalyzer) Analyze(context.Context, *model.Metadata, []model.FileChange) (model.AnalysisResult, error) {
	f.calls++
	if f.err != nil {
		return model.AnalysisResult{}, f.err
	}
	return model.AnalysisResult{Text: f.text, Provenance: model.ProvenanceExternal}, nil
}

type fakeWriter struct {
	docs    map[string]string
	summary []model.RunResult
}

func newFakeWriter() *fakeWriter { return &fakeWriter{docs: make(map[string]string)} }

func (f *fakeWriter) WriteDocument(ref model.Ref, content string) (string, error) {
	name := fmt.Sprintf("MR_%d.md", ref.IID)
	f.docs[name] = content
	return "docs/" + name, nil
}

func (f *fakeWriter) WriteSummary(results []model.RunResult) (string, error) {
	f.summary = results
	return "docs/README.md", nil
}

func apiMeta(title string) *model.Metadata {
	return &model.Metadata{Title: title, Source: model.SourceAPI}
}

func reachable(meta *model.Metadata) model.AccessibilityResult {
	return model.AccessibilityResult{APIReachable: true, Metadata: meta}
}

func testPipeline(t *testing.T, resolver *fakeResolver, api *fakeAPI, analyzer Analyzer, writer *fakeWriter) *Pipeline {
	t.Helper()
	cfg := config.PipelineConfig{Pacing: time.Millisecond, CacheSize: 16}
	p, err := New(Deps{
		Resolver:    resolver,
		API:         api,
		Classifier:  classifier.New(zap.NewNop().Sugar()),
		Analyzer:    analyzer,
		Synthesizer: synthesizer.New(10),
		Writer:      writer,
		Logger:      zap.NewNop().Sugar(),
	}, cfg)
	require.NoError(t, err)
	return p
}

func javaDiff() []model.DiffEntry {
	return []model.DiffEntry{
		{NewPath: "src/main/java/app/UserService.java", Diff: "+@Service\n+public class UserService {}"},
		{NewPath: "src/main/java/app/UserController.java", Diff: "+@RestController\n+public class UserController {}"},
	}
}

func TestPipeline_Run(t *testing.T) {
	ref := model.Ref{Host: "gitlab.example.com", Project: "group/app", IID: 42}

	t.Run("enriched document when analysis succeeds", func(t *testing.T) {
		resolver := &fakeResolver{apiWorking: true, results: map[string]model.AccessibilityResult{
			ref.CacheKey(): reachable(apiMeta("Refactor user service")),
		}}
		analyzer := &fakeAnalyzer{text: "Summary: the user service was restructured around a thinner controller."}
		writer := newFakeWriter()
		p := testPipeline(t, resolver, &fakeAPI{entries: javaDiff()}, analyzer, writer)

		results, err := p.Run(context.Background(), []model.Ref{ref})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, model.OutcomeDocumented, results[0].Outcome)
		assert.Equal(t, "docs/MR_42.md", results[0].DocumentPath)

		doc := writer.docs["MR_42.md"]
		assert.Contains(t, doc, "# Refactor user service")
		assert.Contains(t, doc, "restructured around a thinner controller")
		assert.Contains(t, doc, EnrichedNote)
		assert.Len(t, writer.summary, 1)
	})

	t.Run("analysis failure falls back deterministically", func(t *testing.T) {
		resolver := &fakeResolver{apiWorking: true, results: map[string]model.AccessibilityResult{
			ref.CacheKey(): reachable(apiMeta("Refactor user service")),
		}}
		analyzer := &fakeAnalyzer{err: fmt.Errorf("%w: input area not found", model.ErrEnrichmentUnavailable)}
		writer := newFakeWriter()
		p := testPipeline(t, resolver, &fakeAPI{entries: javaDiff()}, analyzer, writer)

		results, err := p.Run(context.Background(), []model.Ref{ref})
		require.NoError(t, err)
		assert.Equal(t, model.OutcomeFallback, results[0].Outcome)
		assert.Contains(t, writer.docs["MR_42.md"], synthesizer.ProvenanceNote)
	})

	t.Run("nil analyzer goes straight to fallback", func(t *testing.T) {
		resolver := &fakeResolver{apiWorking: true, results: map[string]model.AccessibilityResult{
			ref.CacheKey(): reachable(apiMeta("Refactor user service")),
		}}
		writer := newFakeWriter()
		p := testPipeline(t, resolver, &fakeAPI{entries: javaDiff()}, nil, writer)

		results, err := p.Run(context.Background(), []model.Ref{ref})
		require.NoError(t, err)
		assert.Equal(t, model.OutcomeFallback, results[0].Outcome)
	})

	t.Run("inaccessible target lands in the failed bucket", func(t *testing.T) {
		missing := model.Ref{Host: "gitlab.example.com", Project: "group/app", IID: 99}
		resolver := &fakeResolver{apiWorking: true, results: map[string]model.AccessibilityResult{
			ref.CacheKey():     reachable(apiMeta("Refactor user service")),
			missing.CacheKey(): {FailureReason: "not found"},
		}}
		writer := newFakeWriter()
		p := testPipeline(t, resolver, &fakeAPI{entries: javaDiff()}, nil, writer)

		results, err := p.Run(context.Background(), []model.Ref{ref, missing})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, model.OutcomeFallback, results[0].Outcome)
		assert.Equal(t, model.OutcomeInaccessible, results[1].Outcome)
		assert.Equal(t, "not found", results[1].FailureReason)
		assert.NotContains(t, writer.docs, "MR_99.md")
	})

	t.Run("repeated target is resolved once", func(t *testing.T) {
		resolver := &fakeResolver{apiWorking: true, results: map[string]model.AccessibilityResult{
			ref.CacheKey(): reachable(apiMeta("Refactor user service")),
		}}
		writer := newFakeWriter()
		p := testPipeline(t, resolver, &fakeAPI{entries: javaDiff()}, nil, writer)

		results, err := p.Run(context.Background(), []model.Ref{ref, ref})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, 1, resolver.resolveCalls)
	})

	t.Run("probe failure is fatal", func(t *testing.T) {
		resolver := &fakeResolver{probeErr: model.ErrNoViableChannel}
		writer := newFakeWriter()
		p := testPipeline(t, resolver, &fakeAPI{}, nil, writer)

		_, err := p.Run(context.Background(), []model.Ref{ref})
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrNoViableChannel)
		assert.Nil(t, writer.summary)
	})

	t.Run("diff fetch failure degrades instead of failing", func(t *testing.T) {
		resolver := &fakeResolver{apiWorking: true, results: map[string]model.AccessibilityResult{
			ref.CacheKey(): reachable(apiMeta("Refactor user service")),
		}}
		writer := newFakeWriter()
		p := testPipeline(t, resolver, &fakeAPI{err: fmt.Errorf("status 500")}, nil, writer)

		results, err := p.Run(context.Background(), []model.Ref{ref})
		require.NoError(t, err)
		assert.Equal(t, model.OutcomeFallback, results[0].Outcome)
		assert.Contains(t, writer.docs["MR_42.md"], "- **Files changed:** 0")
	})

	t.Run("cancelled context stops the run", func(t *testing.T) {
		resolver := &fakeResolver{apiWorking: true, results: map[string]model.AccessibilityResult{
			ref.CacheKey(): reachable(apiMeta("Refactor user service")),
		}}
		writer := newFakeWriter()
		p := testPipeline(t, resolver, &fakeAPI{entries: javaDiff()}, nil, writer)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Run(ctx, []model.Ref{ref})
		require.Error(t, err)
	})
}

func TestPipeline_CommitEnrichment(t *testing.T) {
	ref := model.Ref{Host: "gitlab.example.com", Project: "group/app", IID: 42}
	resolver := &fakeResolver{apiWorking: true, results: map[string]model.AccessibilityResult{
		ref.CacheKey(): reachable(apiMeta("Refactor user service")),
	}}
	writer := newFakeWriter()
	p := testPipeline(t, resolver, &fakeAPI{entries: javaDiff()}, nil, writer)

	_, err := p.Run(context.Background(), []model.Ref{ref})
	require.NoError(t, err)

	doc := writer.docs["MR_42.md"]
	assert.Contains(t, doc, "- **Commits:** 2")
	assert.Contains(t, doc, "- first commit")
}
