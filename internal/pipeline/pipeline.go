// Package pipeline runs the batch documentation flow: resolve accessibility,
// classify changes, enrich via the analysis channel when possible, fall back
// deterministically otherwise, and persist documents plus a run summary.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/festy23/mrdocgen/internal/classifier"
	"github.com/festy23/mrdocgen/internal/config"
	"github.com/festy23/mrdocgen/internal/mergerequest/model"
	"github.com/festy23/mrdocgen/internal/synthesizer"
)

// EnrichedNote closes documents whose body came from the external analysis
// channel.
const EnrichedNote = "*This document was generated with external analysis assistance.*"

// maxCommitTitles bounds the commit titles carried into metadata.
const maxCommitTitles = 5

// Resolver answers whether and how a merge request is readable.
type Resolver interface {
	Probe(ctx context.Context) error
	Resolve(ctx context.Context, ref model.Ref) model.AccessibilityResult
	APIWorking() bool
	UIAvailable() bool
}

// ChangesAPI fetches diffs and commit history for reachable merge requests.
type ChangesAPI interface {
	GetChanges(ctx context.Context, ref model.Ref) ([]model.DiffEntry, error)
	GetCommits(ctx context.Context, ref model.Ref, maxTitles int) (int, []string, error)
}

// Analyzer produces an enriched documentation body. Any failure is reported
// as model.ErrEnrichmentUnavailable by the implementation.
type Analyzer interface {
	Analyze(ctx context.Context, meta *model.Metadata, changes []model.FileChange) (model.AnalysisResult, error)
}

// DocumentWriter persists documents and the run summary.
type DocumentWriter interface {
	WriteDocument(ref model.Ref, content string) (string, error)
	WriteSummary(results []model.RunResult) (string, error)
}

// Deps bundles the pipeline collaborators. Analyzer may be nil when the
// analysis channel is disabled or unavailable.
type Deps struct {
	Resolver    Resolver
	API         ChangesAPI
	Classifier  *classifier.Classifier
	Analyzer    Analyzer
	Synthesizer *synthesizer.Synthesizer
	Writer      DocumentWriter
	Logger      *zap.SugaredLogger
}

// Pipeline processes merge request targets sequentially and in order.
type Pipeline struct {
	deps    Deps
	cfg     config.PipelineConfig
	cache   *lru.Cache[string, *model.Metadata]
	limiter *rate.Limiter
}

// New creates a pipeline. Pacing applies between targets; the first target
// runs immediately.
func New(deps Deps, cfg config.PipelineConfig) (*Pipeline, error) {
	cache, err := lru.New[string, *model.Metadata](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create metadata cache: %w", err)
	}
	return &Pipeline{
		deps:    deps,
		cfg:     cfg,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Every(cfg.Pacing), 1),
	}, nil
}

// Run processes every target in order and writes the run summary. It fails
// fast only when no channel at all is usable; per-target faults become
// outcome buckets.
func (p *Pipeline) Run(ctx context.Context, refs []model.Ref) ([]model.RunResult, error) {
	if err := p.deps.Resolver.Probe(ctx); err != nil {
		return nil, fmt.Errorf("accessibility probe: %w", err)
	}

	results := make([]model.RunResult, 0, len(refs))
	for _, ref := range refs {
		if err := p.limiter.Wait(ctx); err != nil {
			return results, err
		}
		results = append(results, p.processOne(ctx, ref))
	}

	if _, err := p.deps.Writer.WriteSummary(results); err != nil {
		return results, fmt.Errorf("write run summary: %w", err)
	}
	return results, nil
}

func (p *Pipeline) processOne(ctx context.Context, ref model.Ref) model.RunResult {
	log := p.deps.Logger.With("mr", ref.CacheKey())
	log.Infow("processing merge request")

	meta, reachable, reason := p.resolveMetadata(ctx, ref)
	if !reachable {
		log.Warnw("merge request not accessible", "reason", reason)
		return model.RunResult{Ref: ref, Outcome: model.OutcomeInaccessible, FailureReason: reason}
	}

	changes := p.fetchChanges(ctx, ref, meta, log)

	content, outcome := p.compose(ctx, meta, changes, log)

	path, err := p.deps.Writer.WriteDocument(ref, content)
	if err != nil {
		log.Errorw("failed to write document", "error", err)
		return model.RunResult{Ref: ref, Outcome: model.OutcomeInaccessible,
			FailureReason: fmt.Sprintf("write failed: %v", err)}
	}

	log.Infow("merge request documented", "outcome", outcome, "path", path)
	return model.RunResult{Ref: ref, Outcome: outcome, DocumentPath: path}
}

// resolveMetadata consults the cache before the accessibility resolver, so a
// target repeated within one run is resolved once.
func (p *Pipeline) resolveMetadata(ctx context.Context, ref model.Ref) (*model.Metadata, bool, string) {
	if meta, ok := p.cache.Get(ref.CacheKey()); ok {
		return meta, true, ""
	}

	result := p.deps.Resolver.Resolve(ctx, ref)
	if !result.Reachable() || result.Metadata == nil {
		reason := result.FailureReason
		if reason == "" {
			reason = "no channel available"
		}
		return nil, false, reason
	}

	p.cache.Add(ref.CacheKey(), result.Metadata)
	return result.Metadata, true, ""
}

// fetchChanges pulls diffs and commit history over the API when it is up.
// Failures here degrade the document, they do not fail the target.
func (p *Pipeline) fetchChanges(ctx context.Context, ref model.Ref, meta *model.Metadata, log *zap.SugaredLogger) []model.FileChange {
	if !p.deps.Resolver.APIWorking() || meta.Source != model.SourceAPI {
		return nil
	}

	entries, err := p.deps.API.GetChanges(ctx, ref)
	if err != nil {
		log.Warnw("could not fetch changes, documenting without diffs", "error", err)
		return nil
	}

	if meta.CommitCount == 0 {
		count, titles, err := p.deps.API.GetCommits(ctx, ref, maxCommitTitles)
		if err != nil {
			log.Debugw("could not fetch commits", "error", err)
		} else {
			meta.CommitCount = count
			meta.CommitTitles = titles
		}
	}

	return p.deps.Classifier.Classify(entries)
}

// compose picks the document body: enriched when the analysis channel
// delivers, deterministic fallback otherwise. Analysis rides the browser
// session, so a down UI channel skips it entirely.
func (p *Pipeline) compose(ctx context.Context, meta *model.Metadata, changes []model.FileChange, log *zap.SugaredLogger) (string, model.Outcome) {
	if p.deps.Analyzer != nil && p.deps.Resolver.UIAvailable() {
		result, err := p.deps.Analyzer.Analyze(ctx, meta, changes)
		if err == nil {
			return renderEnriched(meta, result.Text), model.OutcomeDocumented
		}
		log.Warnw("analysis unavailable, using fallback synthesis", "error", err)
	}

	return p.deps.Synthesizer.Synthesize(meta, changes), model.OutcomeFallback
}

func renderEnriched(meta *model.Metadata, body string) string {
	var b strings.Builder
	title := meta.Title
	if title == "" {
		title = "Merge Request"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n\n---\n")
	b.WriteString(EnrichedNote)
	b.WriteString("\n")
	return b.String()
}
