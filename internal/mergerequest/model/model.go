// Package model defines the core entities of the documentation pipeline.
package model

import (
	"fmt"
	"time"
)

// Ref identifies one merge request. Immutable, used as lookup and cache key.
type Ref struct {
	Host    string
	Project string
	IID     int
}

// CacheKey returns a stable string identity for caching and logging.
func (r Ref) CacheKey() string {
	return fmt.Sprintf("%s/%s!%d", r.Host, r.Project, r.IID)
}

func (r Ref) String() string {
	return r.CacheKey()
}

// MetadataSource records where merge request metadata came from.
type MetadataSource string

const (
	SourceAPI        MetadataSource = "api"
	SourceUIFallback MetadataSource = "ui-fallback"
)

// Metadata holds canonical merge request metadata. In degraded mode only the
// title may be populated, with Source set to SourceUIFallback.
type Metadata struct {
	Title        string
	Description  string
	Author       string
	SourceBranch string
	TargetBranch string
	State        string
	WebURL       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Source       MetadataSource

	CommitCount  int
	CommitTitles []string
}

// DiffEntry is one raw file diff as reported by the source-control API. The
// flags are informative but not guaranteed mutually exclusive.
type DiffEntry struct {
	OldPath     string
	NewPath     string
	Diff        string
	NewFile     bool
	DeletedFile bool
	RenamedFile bool
}

// ChangeKind classifies how a file changed.
type ChangeKind string

const (
	KindAdded    ChangeKind = "added"
	KindModified ChangeKind = "modified"
	KindDeleted  ChangeKind = "deleted"
	KindRenamed  ChangeKind = "renamed"
)

// FileType is a coarse language/content classification derived from the path.
type FileType string

const (
	FileTypeBackend       FileType = "backend-language"
	FileTypeFrontend      FileType = "frontend-language"
	FileTypeConfiguration FileType = "configuration"
	FileTypeDocumentation FileType = "documentation"
	FileTypeOther         FileType = "other"
)

// Category is the coarse reporting bucket a change lands in.
type Category string

const (
	CategoryTest          Category = "test"
	CategoryConfiguration Category = "configuration"
	CategoryDocumentation Category = "documentation"
	CategoryFrontend      Category = "frontend"
	CategoryBackend       Category = "backend"
	CategoryOther         Category = "other"
)

// FileChange is one classified file diff. Derived once, never mutated.
type FileChange struct {
	OldPath    string
	NewPath    string
	Kind       ChangeKind
	Diff       string
	Additions  int
	Deletions  int
	FileType   FileType
	Frameworks []string
	Category   Category

	// Binary marks entries whose diff body is absent or unusable. They are
	// excluded from prompt content but still counted in statistics.
	Binary bool
}

// Path returns the effective path of the change.
func (c FileChange) Path() string {
	if c.NewPath != "" {
		return c.NewPath
	}
	return c.OldPath
}

// TotalLines returns additions plus deletions.
func (c FileChange) TotalLines() int {
	return c.Additions + c.Deletions
}

// AccessibilityResult reports whether and how one merge request is readable.
// Invariant: Reachable() is true iff at least one channel succeeded; when both
// fail, Metadata is nil and FailureReason is set.
type AccessibilityResult struct {
	APIReachable  bool
	UIReachable   bool
	Metadata      *Metadata
	FailureReason string
}

// Reachable reports whether at least one channel can read the merge request.
func (r AccessibilityResult) Reachable() bool {
	return r.APIReachable || r.UIReachable
}

// AnalysisProvenance records where the analysis text came from.
type AnalysisProvenance string

const (
	ProvenanceExternal AnalysisProvenance = "external"
	ProvenanceFallback AnalysisProvenance = "fallback"
)

// AnalysisResult is the documentation body for one merge request. External
// results are only ever constructed above the substantiveness threshold.
type AnalysisResult struct {
	Text       string
	Provenance AnalysisProvenance
}

// Length returns the text length in bytes.
func (a AnalysisResult) Length() int {
	return len(a.Text)
}

// Outcome is the per-merge-request bucket shown in the run summary.
type Outcome string

const (
	OutcomeDocumented   Outcome = "documented"
	OutcomeFallback     Outcome = "documented via fallback"
	OutcomeInaccessible Outcome = "failed - not accessible"
)

// RunResult records the final outcome for one processed merge request.
type RunResult struct {
	Ref           Ref
	Outcome       Outcome
	FailureReason string
	DocumentPath  string
}
