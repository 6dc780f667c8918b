package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// W3C WebDriver element identifier key.
const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// Remote is a W3C WebDriver client implementing Session against a
// chromedriver-style remote end.
type Remote struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewRemote opens a WebDriver session at remoteURL.
func NewRemote(ctx context.Context, remoteURL string, logger *zap.SugaredLogger) (*Remote, error) {
	r := &Remote{
		baseURL:    remoteURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}

	payload := map[string]any{
		"capabilities": map[string]any{
			"alwaysMatch": map[string]any{
				"browserName": "chrome",
				"goog:chromeOptions": map[string]any{
					"args": []string{"--no-sandbox", "--disable-dev-shm-usage", "--ignore-certificate-errors"},
				},
			},
		},
	}

	var resp struct {
		Value struct {
			SessionID string `json:"sessionId"`
		} `json:"value"`
	}
	if err := r.do(ctx, http.MethodPost, "/session", payload, &resp); err != nil {
		return nil, fmt.Errorf("open webdriver session: %w", err)
	}
	if resp.Value.SessionID == "" {
		return nil, fmt.Errorf("open webdriver session: empty session id")
	}
	r.sessionID = resp.Value.SessionID
	logger.Infow("webdriver session opened", "session_id", r.sessionID)
	return r, nil
}

func (r *Remote) sessionPath(suffix string) string {
	return fmt.Sprintf("/session/%s%s", r.sessionID, suffix)
}

// Navigate loads url in the remote browser.
func (r *Remote) Navigate(ctx context.Context, url string) error {
	return r.do(ctx, http.MethodPost, r.sessionPath("/url"), map[string]string{"url": url}, nil)
}

// CurrentURL returns the remote browser's current URL.
func (r *Remote) CurrentURL(ctx context.Context) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	if err := r.do(ctx, http.MethodGet, r.sessionPath("/url"), nil, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

// Locate resolves a single element, returning ErrElementNotFound when the
// strategy matches nothing.
func (r *Remote) Locate(ctx context.Context, loc Locator) (Element, error) {
	var resp struct {
		Value map[string]string `json:"value"`
	}
	payload := map[string]string{"using": loc.Using, "value": loc.Value}
	if err := r.do(ctx, http.MethodPost, r.sessionPath("/element"), payload, &resp); err != nil {
		return "", err
	}
	id, ok := resp.Value[elementKey]
	if !ok || id == "" {
		return "", ErrElementNotFound
	}
	return Element(id), nil
}

// LocateAll resolves every element the strategy matches. An empty result is
// not an error.
func (r *Remote) LocateAll(ctx context.Context, loc Locator) ([]Element, error) {
	var resp struct {
		Value []map[string]string `json:"value"`
	}
	payload := map[string]string{"using": loc.Using, "value": loc.Value}
	if err := r.do(ctx, http.MethodPost, r.sessionPath("/elements"), payload, &resp); err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(resp.Value))
	for _, entry := range resp.Value {
		if id := entry[elementKey]; id != "" {
			elements = append(elements, Element(id))
		}
	}
	return elements, nil
}

// Click clicks an element.
func (r *Remote) Click(ctx context.Context, el Element) error {
	return r.do(ctx, http.MethodPost, r.sessionPath("/element/"+string(el)+"/click"), map[string]string{}, nil)
}

// Clear clears an editable element.
func (r *Remote) Clear(ctx context.Context, el Element) error {
	return r.do(ctx, http.MethodPost, r.sessionPath("/element/"+string(el)+"/clear"), map[string]string{}, nil)
}

// Type sends text to an element.
func (r *Remote) Type(ctx context.Context, el Element, text string) error {
	payload := map[string]string{"text": text}
	return r.do(ctx, http.MethodPost, r.sessionPath("/element/"+string(el)+"/value"), payload, nil)
}

// ReadText returns an element's rendered text.
func (r *Remote) ReadText(ctx context.Context, el Element) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	if err := r.do(ctx, http.MethodGet, r.sessionPath("/element/"+string(el)+"/text"), nil, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

// PageText returns the visible text of the whole page body.
func (r *Remote) PageText(ctx context.Context) (string, error) {
	body, err := r.Locate(ctx, Locator{Name: "body", Using: "css selector", Value: "body"})
	if err != nil {
		return "", err
	}
	return r.ReadText(ctx, body)
}

// Close ends the WebDriver session.
func (r *Remote) Close(ctx context.Context) error {
	err := r.do(ctx, http.MethodDelete, r.sessionPath(""), nil, nil)
	if err != nil {
		return fmt.Errorf("close webdriver session: %w", err)
	}
	r.logger.Infow("webdriver session closed", "session_id", r.sessionID)
	return nil
}

type wireError struct {
	Value struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	} `json:"value"`
}

func (r *Remote) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode webdriver payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build webdriver request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webdriver request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read webdriver response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var werr wireError
		if json.Unmarshal(data, &werr) == nil && werr.Value.Error == "no such element" {
			return ErrElementNotFound
		}
		return fmt.Errorf("webdriver %s %s: status %d: %s", method, path, resp.StatusCode, werr.Value.Message)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode webdriver response: %w", err)
		}
	}
	return nil
}
