package analysis

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/festy23/mrdocgen/internal/config"
	"github.com/festy23/mrdocgen/internal/mergerequest/model"
)

// TruncationMarker is appended whenever a diff is cut to fit its budget.
// Truncation must be visible, never silent.
const TruncationMarker = "\n... [diff truncated]"

// categoryOrder fixes the bucket ordering in prompts and reports.
var categoryOrder = []model.Category{
	model.CategoryBackend,
	model.CategoryFrontend,
	model.CategoryConfiguration,
	model.CategoryTest,
	model.CategoryDocumentation,
	model.CategoryOther,
}

// BuildPrompt renders the analysis request sent to the external channel.
// Deterministic for a given input: same metadata and changes, same prompt.
func BuildPrompt(meta *model.Metadata, changes []model.FileChange, cfg config.AnalysisConfig) string {
	var b strings.Builder

	b.WriteString("Please analyze the following merge request and produce technical documentation ")
	b.WriteString("with these sections: Summary, Technical Changes, Impact Analysis.\n\n")

	b.WriteString("## Merge Request\n")
	fmt.Fprintf(&b, "- Title: %s\n", meta.Title)
	if meta.Author != "" {
		fmt.Fprintf(&b, "- Author: %s\n", meta.Author)
	}
	if meta.SourceBranch != "" || meta.TargetBranch != "" {
		fmt.Fprintf(&b, "- Branches: %s -> %s\n", meta.SourceBranch, meta.TargetBranch)
	}
	if desc := strings.TrimSpace(meta.Description); desc != "" {
		fmt.Fprintf(&b, "- Description: %s\n", desc)
	}

	if len(meta.CommitTitles) > 0 {
		b.WriteString("\n## Commits\n")
		for _, title := range meta.CommitTitles {
			fmt.Fprintf(&b, "- %s\n", title)
		}
	}

	b.WriteString("\n## Changes by category\n")
	b.WriteString(categorySummary(changes))

	b.WriteString("\n## Largest diffs\n")
	for _, change := range largestDiffs(changes, cfg.MaxDiffsInPrompt) {
		fmt.Fprintf(&b, "\n### %s (%s, +%d/-%d)\n", change.Path(), change.Kind, change.Additions, change.Deletions)
		b.WriteString("```\n")
		b.WriteString(TruncateDiff(change.Diff, cfg.DiffCharBudget))
		b.WriteString("\n```\n")
	}

	return b.String()
}

// categorySummary groups changes by bucket with per-bucket line counts and
// the union of detected frameworks.
func categorySummary(changes []model.FileChange) string {
	type bucket struct {
		files      int
		additions  int
		deletions  int
		frameworks map[string]bool
	}
	buckets := make(map[model.Category]*bucket)
	for _, change := range changes {
		entry, ok := buckets[change.Category]
		if !ok {
			entry = &bucket{frameworks: make(map[string]bool)}
			buckets[change.Category] = entry
		}
		entry.files++
		entry.additions += change.Additions
		entry.deletions += change.Deletions
		for _, fw := range change.Frameworks {
			entry.frameworks[fw] = true
		}
	}

	var b strings.Builder
	for _, category := range categoryOrder {
		entry, ok := buckets[category]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %d file(s), +%d/-%d", category, entry.files, entry.additions, entry.deletions)
		if len(entry.frameworks) > 0 {
			names := make([]string, 0, len(entry.frameworks))
			for name := range entry.frameworks {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Fprintf(&b, " [%s]", strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// largestDiffs returns up to max changes, largest by total line volume first.
// Binary entries carry no usable diff body and are skipped.
func largestDiffs(changes []model.FileChange, max int) []model.FileChange {
	withDiff := make([]model.FileChange, 0, len(changes))
	for _, change := range changes {
		if !change.Binary {
			withDiff = append(withDiff, change)
		}
	}
	sort.SliceStable(withDiff, func(i, j int) bool {
		return withDiff[i].TotalLines() > withDiff[j].TotalLines()
	})
	if len(withDiff) > max {
		withDiff = withDiff[:max]
	}
	return withDiff
}

// TruncateDiff cuts a diff to at most budget bytes, appending a visible
// marker when anything was dropped. The cut never lands inside a multibyte
// rune.
func TruncateDiff(diff string, budget int) string {
	if len(diff) <= budget {
		return diff
	}
	cut := budget
	for cut > 0 && !utf8.RuneStart(diff[cut]) {
		cut--
	}
	return diff[:cut] + TruncationMarker
}
