// Package accessibility decides whether and how each merge request can be
// read, given two independently unreliable channels: the structured API and
// the UI-scraping path.
package accessibility

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/festy23/mrdocgen/internal/browser"
	"github.com/festy23/mrdocgen/internal/config"
	"github.com/festy23/mrdocgen/internal/mergerequest/model"
)

// ChannelState is the run-scoped capability state of one access channel.
type ChannelState string

const (
	StateUnverified    ChannelState = "unverified"
	StateOK            ChannelState = "ok"
	StateFailed        ChannelState = "failed"
	StateLoginRequired ChannelState = "login-required"
)

// APIClient is the structured source-control channel.
type APIClient interface {
	VerifyCredential(ctx context.Context) error
	GetMergeRequest(ctx context.Context, ref model.Ref) (*model.Metadata, error)
}

// Prompter is the interactive confirmation port for human-in-the-loop login.
// ConfirmLogin blocks until the operator reports the sign-in attempt done or
// gives up.
type Prompter interface {
	ConfirmLogin(attempt, maxAttempts int) bool
}

// Resolver probes both channels once per run and resolves per-request
// reachability with sticky capability degradation.
type Resolver struct {
	api      APIClient
	session  browser.Session
	tables   browser.StrategyTables
	prompter Prompter
	logger   *zap.SugaredLogger
	cfg      config.BrowserConfig
	baseURL  string

	apiState ChannelState
	uiState  ChannelState
}

// New creates a resolver. session may be nil when no UI channel exists.
func New(
	api APIClient,
	session browser.Session,
	tables browser.StrategyTables,
	prompter Prompter,
	cfg config.BrowserConfig,
	gitlabBaseURL string,
	logger *zap.SugaredLogger,
) *Resolver {
	return &Resolver{
		api:      api,
		session:  session,
		tables:   tables,
		prompter: prompter,
		logger:   logger,
		cfg:      cfg,
		baseURL:  strings.TrimRight(gitlabBaseURL, "/"),
		apiState: StateUnverified,
		uiState:  StateUnverified,
	}
}

// APIWorking reports whether the API channel is currently believed usable.
func (r *Resolver) APIWorking() bool { return r.apiState == StateOK }

// UIAvailable reports whether the UI channel is currently believed usable.
func (r *Resolver) UIAvailable() bool { return r.uiState == StateOK }

// Probe verifies both channels once before the batch. It fails only when no
// viable channel exists at all; a single degraded channel is tolerated.
func (r *Resolver) Probe(ctx context.Context) error {
	if err := r.api.VerifyCredential(ctx); err != nil {
		r.apiState = StateFailed
		r.logger.Warnw("api channel unavailable", "error", err)
	} else {
		r.apiState = StateOK
	}

	if r.session != nil {
		r.probeUI(ctx)
	} else {
		r.uiState = StateFailed
	}

	if r.apiState != StateOK && r.uiState != StateOK {
		return fmt.Errorf("api and ui probes both failed: %w", model.ErrNoViableChannel)
	}

	r.logger.Infow("channel probes complete", "api", r.apiState, "ui", r.uiState)
	return nil
}

// probeUI checks the browser session against the GitLab front end, walking
// the login-required loop when needed.
func (r *Resolver) probeUI(ctx context.Context) {
	if err := r.session.Navigate(ctx, r.baseURL); err != nil {
		r.logger.Warnw("ui probe navigation failed", "error", err)
		r.uiState = StateFailed
		return
	}
	r.settle(ctx)

	signedIn, err := r.signedIn(ctx)
	if err != nil {
		r.logger.Warnw("ui probe failed", "error", err)
		r.uiState = StateFailed
		return
	}
	if signedIn {
		r.uiState = StateOK
		return
	}

	r.uiState = StateLoginRequired
	if err := r.interactiveLogin(ctx); err != nil {
		r.logger.Warnw("interactive login failed", "error", err)
		r.uiState = StateFailed
	}
}

// interactiveLogin asks the operator to complete sign-in out of band, bounded
// by the configured retry count.
func (r *Resolver) interactiveLogin(ctx context.Context) error {
	for attempt := 1; attempt <= r.cfg.LoginRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.prompter.ConfirmLogin(attempt, r.cfg.LoginRetries) {
			return model.ErrLoginNotCompleted
		}

		if err := r.session.Navigate(ctx, r.baseURL); err != nil {
			return err
		}
		r.settle(ctx)

		signedIn, err := r.signedIn(ctx)
		if err != nil {
			return err
		}
		if signedIn {
			r.logger.Infow("interactive login completed", "attempt", attempt)
			r.uiState = StateOK
			return nil
		}
		r.logger.Warnw("session still unauthenticated", "attempt", attempt, "max", r.cfg.LoginRetries)
	}
	return model.ErrLoginNotCompleted
}

// signedIn reports whether the browser session is authenticated against the
// front end. A redirect to the sign-in page is the telltale.
func (r *Resolver) signedIn(ctx context.Context) (bool, error) {
	current, err := r.session.CurrentURL(ctx)
	if err != nil {
		return false, err
	}
	return !strings.Contains(current, "/users/sign_in"), nil
}

// Resolve determines reachability for one merge request. It never fails for
// a single unreachable MR; unreachability is a result, not an error.
func (r *Resolver) Resolve(ctx context.Context, ref model.Ref) model.AccessibilityResult {
	var result model.AccessibilityResult

	if r.apiState == StateOK {
		meta, err := r.api.GetMergeRequest(ctx, ref)
		switch {
		case err == nil:
			result.APIReachable = true
			result.Metadata = meta
		case errors.Is(err, model.ErrCapabilityFailure):
			// Credential-level failure: stop probing the API per request.
			r.apiState = StateFailed
			result.FailureReason = "api credential rejected"
			r.logger.Warnw("api channel degraded for the rest of the run", "ref", ref, "error", err)
		case errors.Is(err, model.ErrForbidden):
			result.FailureReason = "forbidden"
			r.logger.Infow("merge request forbidden via api", "ref", ref)
		case errors.Is(err, model.ErrNotFound):
			result.FailureReason = "not found"
			r.logger.Infow("merge request not found via api", "ref", ref)
		default:
			result.FailureReason = "api error"
			r.logger.Warnw("api request failed", "ref", ref, "error", err)
		}
	}

	if !result.APIReachable && r.uiState == StateOK {
		r.resolveViaUI(ctx, ref, &result)
	}

	if !result.Reachable() {
		result.Metadata = nil
		if result.FailureReason == "" {
			result.FailureReason = "no channel available"
		}
	}
	return result
}

// resolveViaUI navigates to the merge request page and classifies the
// rendered content with ordered heuristics.
func (r *Resolver) resolveViaUI(ctx context.Context, ref model.Ref, result *model.AccessibilityResult) {
	if err := r.session.Navigate(ctx, r.webURL(ref)); err != nil {
		r.logger.Warnw("ui navigation failed", "ref", ref, "error", err)
		if result.FailureReason == "" {
			result.FailureReason = "ui navigation failed"
		}
		return
	}
	r.settle(ctx)

	// Explicit error markers win over everything.
	if found, err := browser.AnyPresent(ctx, r.session, r.tables.MRErrorMarkers); err == nil && found {
		result.FailureReason = "error page shown"
		return
	}

	if found, err := browser.AnyPresent(ctx, r.session, r.tables.MRContentMarkers); err == nil && found {
		result.UIReachable = true
	} else if text, err := r.session.PageText(ctx); err == nil &&
		strings.Contains(strings.ToLower(text), "merge request") {
		result.UIReachable = true
	}

	if !result.UIReachable {
		if result.FailureReason == "" {
			result.FailureReason = "content not identifiable"
		}
		return
	}

	if result.Metadata == nil {
		result.Metadata = r.metadataFromUI(ctx, ref)
	}
}

// metadataFromUI reconstructs minimal metadata from the rendered page.
func (r *Resolver) metadataFromUI(ctx context.Context, ref model.Ref) *model.Metadata {
	meta := &model.Metadata{
		WebURL: r.webURL(ref),
		Source: model.SourceUIFallback,
	}

	el, loc, err := browser.FirstMatch(ctx, r.session, r.tables.MRTitle, r.cfg.LocateTimeout)
	if err != nil {
		r.logger.Warnw("could not extract title from ui", "ref", ref, "error", err)
		return meta
	}
	title, err := r.session.ReadText(ctx, el)
	if err != nil || strings.TrimSpace(title) == "" {
		return meta
	}
	meta.Title = strings.TrimSpace(title)
	r.logger.Infow("title extracted from ui", "ref", ref, "strategy", loc.Name)
	return meta
}

// webURL builds the merge request web page address for a ref.
func (r *Resolver) webURL(ref model.Ref) string {
	scheme := "https"
	host := ref.Host
	if u, err := url.Parse(r.baseURL); err == nil {
		if u.Scheme != "" {
			scheme = u.Scheme
		}
		if host == "" {
			host = u.Host
		}
	}
	return fmt.Sprintf("%s://%s/%s/-/merge_requests/%d", scheme, host, ref.Project, ref.IID)
}

// settle waits for the page to render after navigation.
func (r *Resolver) settle(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(r.cfg.PageLoadDelay):
	}
}
