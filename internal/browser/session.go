// Package browser abstracts the UI-automation channel. The remote surface
// guarantees no structured contract, so all interaction is heuristic and every
// lookup goes through ordered locator strategies.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrElementNotFound is returned when a locator resolves to nothing.
var ErrElementNotFound = errors.New("element not found")

// Element is an opaque handle to one located element.
type Element string

// Locator is one named lookup strategy. Using follows the WebDriver location
// strategy names ("css selector", "xpath").
type Locator struct {
	Name  string `yaml:"name"`
	Using string `yaml:"using"`
	Value string `yaml:"value"`
}

// Session is the single shared UI-automation channel. Implementations are not
// safe for concurrent use; the pipeline drives one caller at a time.
type Session interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Locate(ctx context.Context, loc Locator) (Element, error)
	LocateAll(ctx context.Context, loc Locator) ([]Element, error)
	Click(ctx context.Context, el Element) error
	Clear(ctx context.Context, el Element) error
	Type(ctx context.Context, el Element, text string) error
	ReadText(ctx context.Context, el Element) (string, error)
	PageText(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// FirstMatch tries locators in order and returns the first element that
// resolves within perStrategyTimeout. The ordering is the resilience
// mechanism: no single strategy is assumed stable.
func FirstMatch(ctx context.Context, sess Session, locators []Locator, perStrategyTimeout time.Duration) (Element, Locator, error) {
	const pollEvery = 200 * time.Millisecond

	for _, loc := range locators {
		deadline := time.Now().Add(perStrategyTimeout)
		for {
			if err := ctx.Err(); err != nil {
				return "", Locator{}, err
			}
			el, err := sess.Locate(ctx, loc)
			if err == nil {
				return el, loc, nil
			}
			if !errors.Is(err, ErrElementNotFound) {
				return "", Locator{}, err
			}
			if time.Now().After(deadline) {
				break
			}
			select {
			case <-ctx.Done():
				return "", Locator{}, ctx.Err()
			case <-time.After(pollEvery):
			}
		}
	}
	return "", Locator{}, ErrElementNotFound
}

// AnyPresent reports whether at least one locator currently resolves. Used
// for marker checks where a single pass is enough.
func AnyPresent(ctx context.Context, sess Session, locators []Locator) (bool, error) {
	for _, loc := range locators {
		els, err := sess.LocateAll(ctx, loc)
		if err != nil {
			return false, err
		}
		if len(els) > 0 {
			return true, nil
		}
	}
	return false, nil
}
