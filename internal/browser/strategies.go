package browser

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StrategyTables holds every ordered locator list the pipeline uses. The
// built-in defaults reflect observed surface structure; a YAML file can
// override any table when the remote surface drifts.
type StrategyTables struct {
	// Analysis surface.
	AnalysisInput    []Locator `yaml:"analysis_input"`
	AnalysisSubmit   []Locator `yaml:"analysis_submit"`
	AnalysisResponse []Locator `yaml:"analysis_response"`
	LoadingMarkers   []Locator `yaml:"loading_markers"`

	// Merge request page.
	MRErrorMarkers   []Locator `yaml:"mr_error_markers"`
	MRContentMarkers []Locator `yaml:"mr_content_markers"`
	MRTitle          []Locator `yaml:"mr_title"`
}

// DefaultStrategyTables returns the built-in strategy tables.
func DefaultStrategyTables() StrategyTables {
	return StrategyTables{
		AnalysisInput: []Locator{
			{Name: "input-area", Using: "xpath", Value: "//div[@data-test-id='input-area']"},
			{Name: "contenteditable", Using: "xpath", Value: "//div[@contenteditable='true']"},
			{Name: "textarea", Using: "xpath", Value: "//textarea"},
			{Name: "textbox-role", Using: "xpath", Value: "//div[@role='textbox']"},
			{Name: "message-label", Using: "xpath", Value: "//div[contains(@aria-label, 'Message')]"},
			{Name: "prompt-placeholder", Using: "xpath", Value: "//div[contains(@placeholder, 'Enter a prompt')]"},
		},
		AnalysisSubmit: []Locator{
			{Name: "send-button", Using: "xpath", Value: "//button[@data-test-id='send-button']"},
			{Name: "send-aria", Using: "xpath", Value: "//button[contains(@aria-label, 'Send')]"},
			{Name: "send-title", Using: "xpath", Value: "//button[contains(@title, 'Send')]"},
			{Name: "send-text", Using: "xpath", Value: "//button[contains(text(), 'Send')]"},
			{Name: "submit-type", Using: "xpath", Value: "//button[@type='submit']"},
		},
		AnalysisResponse: []Locator{
			{Name: "response", Using: "xpath", Value: "//div[@data-test-id='response']"},
			{Name: "response-content", Using: "xpath", Value: "//div[contains(@class, 'response-content')]"},
			{Name: "message-content", Using: "xpath", Value: "//div[contains(@class, 'message-content')]"},
			{Name: "model-response", Using: "xpath", Value: "//div[contains(@class, 'model-response')]"},
			{Name: "conversation-turn", Using: "xpath", Value: "//div[contains(@class, 'conversation-turn')][last()]"},
		},
		LoadingMarkers: []Locator{
			{Name: "loading-class", Using: "xpath", Value: "//div[contains(@class, 'loading')]"},
			{Name: "generating-class", Using: "xpath", Value: "//div[contains(@class, 'generating')]"},
			{Name: "loading-test-id", Using: "xpath", Value: "//div[@data-test-id='loading']"},
			{Name: "spinner-class", Using: "xpath", Value: "//div[contains(@class, 'spinner')]"},
		},
		MRErrorMarkers: []Locator{
			{Name: "access-denied", Using: "css selector", Value: ".access-denied"},
			{Name: "not-found", Using: "css selector", Value: ".not-found"},
			{Name: "error-message", Using: "css selector", Value: ".error-message"},
			{Name: "permission-denied", Using: "css selector", Value: ".permission-denied"},
			{Name: "page-404", Using: "css selector", Value: ".page-404"},
			{Name: "error-content", Using: "css selector", Value: ".error-content"},
		},
		MRContentMarkers: []Locator{
			{Name: "merge-request", Using: "css selector", Value: ".merge-request"},
			{Name: "mr-widget", Using: "css selector", Value: ".mr-widget"},
			{Name: "mr-state-widget", Using: "css selector", Value: ".mr-state-widget"},
			{Name: "issuable-meta", Using: "css selector", Value: ".issuable-meta"},
			{Name: "mr-details", Using: "css selector", Value: ".merge-request-details"},
			{Name: "mr-tabs", Using: "css selector", Value: ".mr-tabs"},
		},
		MRTitle: []Locator{
			{Name: "issue-title", Using: "css selector", Value: ".issue-title"},
			{Name: "mr-title", Using: "css selector", Value: ".merge-request-title"},
			{Name: "h1-title", Using: "css selector", Value: "h1.title"},
			{Name: "generic-title", Using: "css selector", Value: ".title"},
			{Name: "issuable-header", Using: "css selector", Value: ".issuable-header-text h1"},
		},
	}
}

// LoadStrategyTables returns the defaults, with any non-empty table from the
// YAML override file replacing its built-in counterpart. An empty path means
// defaults only.
func LoadStrategyTables(path string) (StrategyTables, error) {
	tables := DefaultStrategyTables()
	if path == "" {
		return tables, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tables, fmt.Errorf("read strategy file: %w", err)
	}

	var overrides StrategyTables
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return tables, fmt.Errorf("parse strategy file: %w", err)
	}

	tables.merge(overrides)
	return tables, nil
}

func (t *StrategyTables) merge(o StrategyTables) {
	if len(o.AnalysisInput) > 0 {
		t.AnalysisInput = o.AnalysisInput
	}
	if len(o.AnalysisSubmit) > 0 {
		t.AnalysisSubmit = o.AnalysisSubmit
	}
	if len(o.AnalysisResponse) > 0 {
		t.AnalysisResponse = o.AnalysisResponse
	}
	if len(o.LoadingMarkers) > 0 {
		t.LoadingMarkers = o.LoadingMarkers
	}
	if len(o.MRErrorMarkers) > 0 {
		t.MRErrorMarkers = o.MRErrorMarkers
	}
	if len(o.MRContentMarkers) > 0 {
		t.MRContentMarkers = o.MRContentMarkers
	}
	if len(o.MRTitle) > 0 {
		t.MRTitle = o.MRTitle
	}
}
