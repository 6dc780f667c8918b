// Package output persists generated documents and the run summary report.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/festy23/mrdocgen/internal/mergerequest/model"
)

// SummaryFileName is the run index written next to the per-MR documents.
const SummaryFileName = "README.md"

var unsafeFileChars = regexp.MustCompile(`[<>:"/\\|?*\s]+`)

// Writer stores documents under a single output directory.
type Writer struct {
	dir    string
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewWriter creates a writer rooted at dir. The directory is created on the
// first write.
func NewWriter(dir string, logger *zap.SugaredLogger) *Writer {
	return &Writer{dir: dir, logger: logger, now: time.Now}
}

// DocumentFileName returns the per-MR file name, with path separators and
// other unsafe characters collapsed to underscores.
func DocumentFileName(ref model.Ref) string {
	project := unsafeFileChars.ReplaceAllString(ref.Project, "_")
	return fmt.Sprintf("MR_%d_%s.md", ref.IID, project)
}

// WriteDocument persists one document and returns its path.
func (w *Writer) WriteDocument(ref model.Ref, content string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(w.dir, DocumentFileName(ref))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}

	w.logger.Infow("document written", "mr", ref.CacheKey(), "path", path)
	return path, nil
}

// WriteSummary renders and persists the run index. Results keep input order.
func (w *Writer) WriteSummary(results []model.RunResult) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(w.dir, SummaryFileName)
	if err := os.WriteFile(path, []byte(w.renderSummary(results)), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	w.logger.Infow("run summary written", "path", path, "merge_requests", len(results))
	return path, nil
}

func (w *Writer) renderSummary(results []model.RunResult) string {
	var documented, fallback, failed int
	for _, result := range results {
		switch result.Outcome {
		case model.OutcomeDocumented:
			documented++
		case model.OutcomeFallback:
			fallback++
		default:
			failed++
		}
	}

	var b strings.Builder
	b.WriteString("# Documentation Run Summary\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", w.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- **Merge requests processed:** %d\n", len(results))
	fmt.Fprintf(&b, "- **Documented:** %d\n", documented)
	fmt.Fprintf(&b, "- **Documented via fallback:** %d\n", fallback)
	fmt.Fprintf(&b, "- **Failed:** %d\n", failed)

	if len(results) == 0 {
		return b.String()
	}

	b.WriteString("\n## Merge Requests\n\n")
	b.WriteString("| MR | Outcome | Document | Notes |\n")
	b.WriteString("|----|---------|----------|-------|\n")
	for _, result := range results {
		doc := "-"
		if result.DocumentPath != "" {
			name := filepath.Base(result.DocumentPath)
			doc = fmt.Sprintf("[%s](./%s)", name, name)
		}
		notes := result.FailureReason
		if notes == "" {
			notes = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", result.Ref.CacheKey(), result.Outcome, doc, notes)
	}

	return b.String()
}
