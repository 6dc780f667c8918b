package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/festy23/mrdocgen/internal/mergerequest/model"
)

func TestDocumentFileName(t *testing.T) {
	tests := []struct {
		name     string
		ref      model.Ref
		expected string
	}{
		{
			name:     "nested project path",
			ref:      model.Ref{Project: "group/sub/app", IID: 42},
			expected: "MR_42_group_sub_app.md",
		},
		{
			name:     "unsafe characters collapsed",
			ref:      model.Ref{Project: `my proj:"x"`, IID: 7},
			expected: "MR_7_my_proj_x_.md",
		},
		{
			name:     "plain project",
			ref:      model.Ref{Project: "backend-api", IID: 1},
			expected: "MR_1_backend-api.md",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DocumentFileName(tt.ref))
		})
	}
}

func TestWriter_WriteDocument(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "docs")
	w := NewWriter(dir, zap.NewNop().Sugar())

	ref := model.Ref{Host: "gitlab.example.com", Project: "group/app", IID: 42}
	path, err := w.WriteDocument(ref, "# Doc body\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "MR_42_group_app.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Doc body\n", string(content))
}

func TestWriter_WriteSummary(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, zap.NewNop().Sugar())
	w.now = func() time.Time { return time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC) }

	results := []model.RunResult{
		{
			Ref:          model.Ref{Host: "gitlab.example.com", Project: "group/app", IID: 42},
			Outcome:      model.OutcomeDocumented,
			DocumentPath: filepath.Join(dir, "MR_42_group_app.md"),
		},
		{
			Ref:          model.Ref{Host: "gitlab.example.com", Project: "group/app", IID: 43},
			Outcome:      model.OutcomeFallback,
			DocumentPath: filepath.Join(dir, "MR_43_group_app.md"),
		},
		{
			Ref:           model.Ref{Host: "gitlab.example.com", Project: "group/app", IID: 44},
			Outcome:       model.OutcomeInaccessible,
			FailureReason: "not found",
		},
	}

	path, err := w.WriteSummary(results)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SummaryFileName), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	summary := string(content)

	assert.Contains(t, summary, "**Generated:** 2025-03-05 12:00:00")
	assert.Contains(t, summary, "- **Merge requests processed:** 3")
	assert.Contains(t, summary, "- **Documented:** 1")
	assert.Contains(t, summary, "- **Documented via fallback:** 1")
	assert.Contains(t, summary, "- **Failed:** 1")
	assert.Contains(t, summary, "| gitlab.example.com/group/app!42 | documented | [MR_42_group_app.md](./MR_42_group_app.md) | - |")
	assert.Contains(t, summary, "| gitlab.example.com/group/app!44 | failed - not accessible | - | not found |")
}

func TestWriter_WriteSummary_Empty(t *testing.T) {
	w := NewWriter(t.TempDir(), zap.NewNop().Sugar())

	path, err := w.WriteSummary(nil)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "## Merge Requests")
}
