// Package synthesizer produces the deterministic fallback document. It is a
// pure formatting layer: no I/O, no clock, no randomness, so identical inputs
// always yield byte-identical output.
package synthesizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/festy23/mrdocgen/internal/mergerequest/model"
)

// ProvenanceNote closes every fallback document. The run summary relies on
// it to distinguish fallback output from enriched output.
const ProvenanceNote = "*External analysis was unavailable for this merge request; " +
	"this document was generated deterministically from merge request data.*"

// Impact thresholds on the total line delta.
const (
	highImpactLines   = 1000
	mediumImpactLines = 500
	broadImpactFiles  = 20
)

var categoryOrder = []model.Category{
	model.CategoryBackend,
	model.CategoryFrontend,
	model.CategoryConfiguration,
	model.CategoryTest,
	model.CategoryDocumentation,
	model.CategoryOther,
}

// Synthesizer renders fallback documentation from metadata and classified
// changes alone.
type Synthesizer struct {
	// perBucketCap bounds the file listing of each category bucket.
	perBucketCap int
}

// New creates a synthesizer with the given per-bucket file listing cap.
func New(perBucketCap int) *Synthesizer {
	if perBucketCap <= 0 {
		perBucketCap = 10
	}
	return &Synthesizer{perBucketCap: perBucketCap}
}

// Synthesize renders the full fallback document.
func (s *Synthesizer) Synthesize(meta *model.Metadata, changes []model.FileChange) string {
	var b strings.Builder

	title := meta.Title
	if title == "" {
		title = "Merge Request"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	s.writeSummary(&b, meta)
	s.writeStatistics(&b, meta, changes)
	s.writeChanges(&b, changes)
	s.writeCommits(&b, meta)
	s.writeImpact(&b, changes)

	b.WriteString("---\n")
	b.WriteString(ProvenanceNote)
	b.WriteString("\n")
	return b.String()
}

func (s *Synthesizer) writeSummary(b *strings.Builder, meta *model.Metadata) {
	b.WriteString("## Summary\n\n")
	if meta.Author != "" {
		fmt.Fprintf(b, "- **Author:** %s\n", meta.Author)
	}
	if meta.SourceBranch != "" || meta.TargetBranch != "" {
		fmt.Fprintf(b, "- **Branches:** `%s` -> `%s`\n", meta.SourceBranch, meta.TargetBranch)
	}
	if meta.State != "" {
		fmt.Fprintf(b, "- **State:** %s\n", meta.State)
	}
	if !meta.CreatedAt.IsZero() {
		fmt.Fprintf(b, "- **Created:** %s\n", meta.CreatedAt.Format("2006-01-02"))
	}
	if !meta.UpdatedAt.IsZero() {
		fmt.Fprintf(b, "- **Updated:** %s\n", meta.UpdatedAt.Format("2006-01-02"))
	}
	if meta.WebURL != "" {
		fmt.Fprintf(b, "- **URL:** %s\n", meta.WebURL)
	}
	if meta.Source == model.SourceUIFallback {
		b.WriteString("- **Metadata source:** reconstructed from the web page (API unavailable)\n")
	}
	if desc := strings.TrimSpace(meta.Description); desc != "" {
		fmt.Fprintf(b, "\n%s\n", desc)
	}
	b.WriteString("\n")
}

func (s *Synthesizer) writeStatistics(b *strings.Builder, meta *model.Metadata, changes []model.FileChange) {
	var additions, deletions int
	for _, change := range changes {
		additions += change.Additions
		deletions += change.Deletions
	}

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(b, "- **Files changed:** %d\n", len(changes))
	fmt.Fprintf(b, "- **Lines added:** %d\n", additions)
	fmt.Fprintf(b, "- **Lines removed:** %d\n", deletions)
	if meta.CommitCount > 0 {
		fmt.Fprintf(b, "- **Commits:** %d\n", meta.CommitCount)
	}
	b.WriteString("\n")
}

func (s *Synthesizer) writeChanges(b *strings.Builder, changes []model.FileChange) {
	if len(changes) == 0 {
		return
	}
	b.WriteString("## Changes\n")

	grouped := make(map[model.Category][]model.FileChange)
	for _, change := range changes {
		grouped[change.Category] = append(grouped[change.Category], change)
	}

	for _, category := range categoryOrder {
		bucket, ok := grouped[category]
		if !ok {
			continue
		}
		fmt.Fprintf(b, "\n### %s (%d)\n\n", titleCase(string(category)), len(bucket))

		listed := bucket
		if len(listed) > s.perBucketCap {
			listed = listed[:s.perBucketCap]
		}
		for _, change := range listed {
			fmt.Fprintf(b, "- `%s` (%s, +%d/-%d)", change.Path(), change.Kind, change.Additions, change.Deletions)
			if len(change.Frameworks) > 0 {
				fws := append([]string(nil), change.Frameworks...)
				sort.Strings(fws)
				fmt.Fprintf(b, " [%s]", strings.Join(fws, ", "))
			}
			b.WriteString("\n")
		}
		if remainder := len(bucket) - len(listed); remainder > 0 {
			fmt.Fprintf(b, "- ...and %d more\n", remainder)
		}
	}
	b.WriteString("\n")
}

func (s *Synthesizer) writeCommits(b *strings.Builder, meta *model.Metadata) {
	if len(meta.CommitTitles) == 0 {
		return
	}
	b.WriteString("## Commit History\n\n")
	for _, title := range meta.CommitTitles {
		fmt.Fprintf(b, "- %s\n", title)
	}
	b.WriteString("\n")
}

func (s *Synthesizer) writeImpact(b *strings.Builder, changes []model.FileChange) {
	var total int
	for _, change := range changes {
		total += change.TotalLines()
	}

	b.WriteString("## Impact Assessment\n\n")
	fmt.Fprintf(b, "- **%s**\n", ImpactLevel(total))
	if len(changes) > broadImpactFiles {
		fmt.Fprintf(b, "- **Broad impact**: changes span %d files\n", len(changes))
	}

	var hasFrontend, hasBackend bool
	for _, change := range changes {
		switch change.Category {
		case model.CategoryFrontend:
			hasFrontend = true
		case model.CategoryBackend:
			hasBackend = true
		}
	}
	switch {
	case hasFrontend && hasBackend:
		b.WriteString("- **Full stack**: both frontend and backend are affected\n")
	case hasFrontend:
		b.WriteString("- **Frontend**: user-facing code is affected\n")
	case hasBackend:
		b.WriteString("- **Backend**: server-side code is affected\n")
	}
	b.WriteString("\n")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ImpactLevel maps a total line delta to the impact wording.
func ImpactLevel(totalLines int) string {
	switch {
	case totalLines > highImpactLines:
		return "High impact: large changeset with 1000+ line changes"
	case totalLines > mediumImpactLines:
		return "Medium impact: moderate changeset with 500+ line changes"
	default:
		return "Low impact: small changeset"
	}
}
