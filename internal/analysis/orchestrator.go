// Package analysis drives the external natural-language analysis surface.
// The channel is non-programmatic and unreliable: every interaction is
// heuristic, bounded, and converted to a typed outcome.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/festy23/mrdocgen/internal/browser"
	"github.com/festy23/mrdocgen/internal/config"
	"github.com/festy23/mrdocgen/internal/mergerequest/model"
)

// State is the orchestrator's per-invocation position.
type State string

const (
	StateIdle             State = "idle"
	StateNavigated        State = "navigated"
	StateInputLocated     State = "input-located"
	StateSubmitted        State = "submitted"
	StatePolling          State = "polling"
	StateComplete         State = "complete"
	StateTimedOut         State = "timed-out"
	StateExtracted        State = "extracted"
	StateExtractionFailed State = "extraction-failed"
)

// WebDriver key codepoints.
const (
	keyEnter   = "\uE007"
	keyControl = "\uE009"
)

// PageState is a snapshot of the analysis surface used for completion
// detection. The channel emits no explicit done signal.
type PageState struct {
	LoadingVisible bool
	ResponseText   string
}

// ResponseComplete is the completion predicate: no loading indicators and
// some response-shaped content present.
func ResponseComplete(s PageState) bool {
	return !s.LoadingVisible && strings.TrimSpace(s.ResponseText) != ""
}

// Orchestrator submits one prompt per merge request and extracts the reply.
type Orchestrator struct {
	session browser.Session
	tables  browser.StrategyTables
	cfg     config.AnalysisConfig
	locate  time.Duration
	logger  *zap.SugaredLogger

	state State
}

// NewOrchestrator creates an orchestrator over the shared browser session.
func NewOrchestrator(
	session browser.Session,
	tables browser.StrategyTables,
	cfg config.AnalysisConfig,
	locateTimeout time.Duration,
	logger *zap.SugaredLogger,
) *Orchestrator {
	return &Orchestrator{
		session: session,
		tables:  tables,
		cfg:     cfg,
		locate:  locateTimeout,
		logger:  logger,
		state:   StateIdle,
	}
}

// State returns the state reached by the last invocation.
func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) transition(s State) {
	o.logger.Debugw("analysis state", "from", o.state, "to", s)
	o.state = s
}

// Analyze runs the full prompt/poll/extract cycle. Every fault is normalized
// to ErrEnrichmentUnavailable; a raw channel error never reaches the caller.
func (o *Orchestrator) Analyze(ctx context.Context, meta *model.Metadata, changes []model.FileChange) (model.AnalysisResult, error) {
	o.state = StateIdle
	prompt := BuildPrompt(meta, changes, o.cfg)

	text, err := o.run(ctx, prompt)
	if err != nil {
		if o.state != StateExtractionFailed {
			o.transition(StateExtractionFailed)
		}
		o.logger.Warnw("analysis channel failed, falling back", "error", err)
		return model.AnalysisResult{}, fmt.Errorf("%w: %s", model.ErrEnrichmentUnavailable, err)
	}

	o.transition(StateExtracted)
	return model.AnalysisResult{Text: text, Provenance: model.ProvenanceExternal}, nil
}

func (o *Orchestrator) run(ctx context.Context, prompt string) (string, error) {
	if err := o.navigate(ctx); err != nil {
		return "", err
	}

	input, err := o.locateInput(ctx)
	if err != nil {
		return "", err
	}

	if err := o.submit(ctx, input, prompt); err != nil {
		return "", err
	}

	o.awaitCompletion(ctx)

	return o.extractResponse(ctx)
}

func (o *Orchestrator) navigate(ctx context.Context) error {
	current, err := o.session.CurrentURL(ctx)
	if err != nil || !strings.HasPrefix(current, o.cfg.ServiceURL) {
		if err := o.session.Navigate(ctx, o.cfg.ServiceURL); err != nil {
			return fmt.Errorf("navigate to analysis surface: %w", err)
		}
		o.sleep(ctx, o.cfg.SettleDelay)
	}
	o.transition(StateNavigated)
	return nil
}

func (o *Orchestrator) locateInput(ctx context.Context) (browser.Element, error) {
	el, loc, err := browser.FirstMatch(ctx, o.session, o.tables.AnalysisInput, o.locate)
	if err != nil {
		return "", fmt.Errorf("locate input area: %w", err)
	}
	o.logger.Debugw("input area located", "strategy", loc.Name)
	o.transition(StateInputLocated)
	return el, nil
}

// submit clears prior content and types the prompt in paced chunks. The
// channel cannot reliably accept the full text atomically.
func (o *Orchestrator) submit(ctx context.Context, input browser.Element, prompt string) error {
	if err := o.session.Click(ctx, input); err != nil {
		return fmt.Errorf("focus input: %w", err)
	}
	if err := o.session.Clear(ctx, input); err != nil {
		o.logger.Debugw("clear failed, typing over existing content", "error", err)
	}

	for start := 0; start < len(prompt); {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := chunkEnd(prompt, start, o.cfg.ChunkSize)
		if err := o.session.Type(ctx, input, prompt[start:end]); err != nil {
			return fmt.Errorf("type prompt chunk: %w", err)
		}
		start = end
		o.sleep(ctx, o.cfg.ChunkDelay)
	}

	if err := o.triggerSubmit(ctx, input); err != nil {
		return err
	}
	o.transition(StateSubmitted)
	o.sleep(ctx, o.cfg.SettleDelay)
	return nil
}

// chunkEnd returns the end offset of the chunk starting at start, never
// splitting a multibyte rune. The wire protocol JSON-encodes each chunk, so a
// torn rune would reach the surface as U+FFFD.
func chunkEnd(s string, start, size int) int {
	end := start + size
	if end >= len(s) {
		return len(s)
	}
	for end > start && !utf8.RuneStart(s[end]) {
		end--
	}
	if end == start {
		// A single rune longer than the chunk size; send it whole.
		_, width := utf8.DecodeRuneInString(s[start:])
		return start + width
	}
	return end
}

// triggerSubmit walks the ordered submission strategies until one goes
// through. Only one is expected to apply per surface version.
func (o *Orchestrator) triggerSubmit(ctx context.Context, input browser.Element) error {
	if err := o.session.Type(ctx, input, keyEnter); err == nil {
		return nil
	}

	if el, loc, err := browser.FirstMatch(ctx, o.session, o.tables.AnalysisSubmit, o.locate); err == nil {
		if err := o.session.Click(ctx, el); err == nil {
			o.logger.Debugw("submitted via control", "strategy", loc.Name)
			return nil
		}
	}

	if err := o.session.Type(ctx, input, keyControl+keyEnter); err != nil {
		return fmt.Errorf("all submission strategies failed: %w", err)
	}
	return nil
}

// awaitCompletion polls until the completion predicate holds or the bounded
// wait is exhausted. A timeout is soft: extraction is still attempted.
func (o *Orchestrator) awaitCompletion(ctx context.Context) {
	o.transition(StatePolling)
	deadline := time.Now().Add(o.cfg.MaxWait)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			o.transition(StateTimedOut)
			return
		}
		if ResponseComplete(o.snapshot(ctx)) {
			o.transition(StateComplete)
			return
		}
		o.sleep(ctx, o.cfg.PollInterval)
	}
	o.logger.Warnw("analysis response did not complete in time", "max_wait", o.cfg.MaxWait)
	o.transition(StateTimedOut)
}

// snapshot reads the current page state for the completion predicate.
func (o *Orchestrator) snapshot(ctx context.Context) PageState {
	var state PageState
	if loading, err := browser.AnyPresent(ctx, o.session, o.tables.LoadingMarkers); err == nil {
		state.LoadingVisible = loading
	}
	state.ResponseText = o.lastResponseText(ctx)
	return state
}

// lastResponseText returns the text of the most recent response element, if
// any strategy resolves one.
func (o *Orchestrator) lastResponseText(ctx context.Context) string {
	for _, loc := range o.tables.AnalysisResponse {
		els, err := o.session.LocateAll(ctx, loc)
		if err != nil || len(els) == 0 {
			continue
		}
		text, err := o.session.ReadText(ctx, els[len(els)-1])
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}

// extractResponse tries the structural strategies first, then scans the page
// for section-heading keywords. A candidate below the substantiveness
// threshold is discarded, never returned.
func (o *Orchestrator) extractResponse(ctx context.Context) (string, error) {
	if text := strings.TrimSpace(o.lastResponseText(ctx)); len(text) >= o.cfg.MinResponseChars {
		return text, nil
	}

	if text := strings.TrimSpace(o.scanPageText(ctx)); len(text) >= o.cfg.MinResponseChars {
		o.logger.Debugw("response recovered via page text scan")
		return text, nil
	}

	o.transition(StateExtractionFailed)
	return "", fmt.Errorf("no substantive response extracted")
}

// scanPageText returns the visible text from the first section-heading
// keyword onward.
func (o *Orchestrator) scanPageText(ctx context.Context) string {
	page, err := o.session.PageText(ctx)
	if err != nil {
		return ""
	}

	lines := strings.Split(page, "\n")
	for i, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "summary") ||
			strings.Contains(lower, "technical changes") ||
			strings.Contains(lower, "impact analysis") {
			return strings.Join(lines[i:], "\n")
		}
	}
	return ""
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
