// Package classifier turns raw file diffs into classified FileChange entities.
// Everything here is pure: no network, no I/O, deterministic for a given input.
package classifier

import (
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/festy23/mrdocgen/internal/mergerequest/model"
)

// FrameworkDetector recognizes one framework from path segments and
// diff-content patterns. A file may match any number of detectors.
type FrameworkDetector struct {
	Name            string
	PathIndicators  []string
	ContentPatterns []*regexp.Regexp
}

// Matches reports whether the detector fires for the given path and diff.
func (d FrameworkDetector) Matches(filePath, diff string) bool {
	for _, indicator := range d.PathIndicators {
		if strings.Contains(filePath, indicator) {
			return true
		}
	}
	for _, pattern := range d.ContentPatterns {
		if pattern.MatchString(diff) {
			return true
		}
	}
	return false
}

// DefaultFrameworkDetectors returns the built-in detector set.
func DefaultFrameworkDetectors() []FrameworkDetector {
	return []FrameworkDetector{
		{
			Name: "Spring Boot",
			PathIndicators: []string{
				"/controller/", "/service/", "/repository/", "/config/",
				"/entity/", "/dto/", "/model/", "Application.java",
			},
			ContentPatterns: compilePatterns([]string{
				`@SpringBootApplication`,
				`@RestController`,
				`@Controller`,
				`@Service`,
				`@Repository`,
				`@Component`,
				`@Configuration`,
				`@Entity`,
				`@RequestMapping`,
				`@GetMapping`,
				`@PostMapping`,
				`@PutMapping`,
				`@DeleteMapping`,
				`@Autowired`,
				`org\.springframework`,
				`spring-boot`,
			}),
		},
		{
			Name: "React",
			PathIndicators: []string{
				"/components/", "/pages/", "/hooks/", "/context/",
			},
			ContentPatterns: compilePatterns([]string{
				`import.*React`,
				`from\s+['"]react['"]`,
				`useState`,
				`useEffect`,
				`useContext`,
				`useReducer`,
				`React\.Component`,
				`ReactDOM`,
				`JSX\.Element`,
			}),
		},
	}
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// DefaultExtensionTypes maps file extensions to coarse file types.
func DefaultExtensionTypes() map[string]model.FileType {
	return map[string]model.FileType{
		".java":       model.FileTypeBackend,
		".kt":         model.FileTypeBackend,
		".go":         model.FileTypeBackend,
		".py":         model.FileTypeBackend,
		".rb":         model.FileTypeBackend,
		".cs":         model.FileTypeBackend,
		".js":         model.FileTypeFrontend,
		".jsx":        model.FileTypeFrontend,
		".ts":         model.FileTypeFrontend,
		".tsx":        model.FileTypeFrontend,
		".html":       model.FileTypeFrontend,
		".css":        model.FileTypeFrontend,
		".scss":       model.FileTypeFrontend,
		".sass":       model.FileTypeFrontend,
		".vue":        model.FileTypeFrontend,
		".json":       model.FileTypeConfiguration,
		".yml":        model.FileTypeConfiguration,
		".yaml":       model.FileTypeConfiguration,
		".xml":        model.FileTypeConfiguration,
		".toml":       model.FileTypeConfiguration,
		".ini":        model.FileTypeConfiguration,
		".properties": model.FileTypeConfiguration,
		".md":         model.FileTypeDocumentation,
		".rst":        model.FileTypeDocumentation,
		".adoc":       model.FileTypeDocumentation,
		".txt":        model.FileTypeDocumentation,
	}
}

// Classifier classifies raw diff entries. Safe for reuse across merge requests.
type Classifier struct {
	logger         *zap.SugaredLogger
	extensionTypes map[string]model.FileType
	detectors      []FrameworkDetector
}

// New creates a classifier with the default extension map and detector set.
func New(logger *zap.SugaredLogger) *Classifier {
	return &Classifier{
		logger:         logger,
		extensionTypes: DefaultExtensionTypes(),
		detectors:      DefaultFrameworkDetectors(),
	}
}

// Classify converts entries into FileChange values, preserving input order.
// No entry is ever skipped.
func (c *Classifier) Classify(entries []model.DiffEntry) []model.FileChange {
	changes := make([]model.FileChange, 0, len(entries))
	for _, entry := range entries {
		changes = append(changes, c.classifyOne(entry))
	}
	return changes
}

func (c *Classifier) classifyOne(entry model.DiffEntry) model.FileChange {
	change := model.FileChange{
		OldPath: entry.OldPath,
		NewPath: entry.NewPath,
		Kind:    ChangeKind(entry),
		Diff:    entry.Diff,
		Binary:  entry.Diff == "",
	}

	change.Additions, change.Deletions = CountLines(entry.Diff)
	change.FileType = c.DetectFileType(change.Path())
	change.Frameworks = c.DetectFrameworks(change.Path(), entry.Diff)
	change.Category = Categorize(change.Path(), change.FileType)

	if c.logger != nil {
		c.logger.Debugw("classified file change",
			"path", change.Path(),
			"kind", change.Kind,
			"category", change.Category,
			"frameworks", change.Frameworks,
		)
	}
	return change
}

// ChangeKind resolves the change kind from the entry flags. The flags can
// overlap in source data, so resolution follows a fixed priority:
// added > deleted > renamed > modified.
func ChangeKind(entry model.DiffEntry) model.ChangeKind {
	switch {
	case entry.NewFile:
		return model.KindAdded
	case entry.DeletedFile:
		return model.KindDeleted
	case entry.RenamedFile:
		return model.KindRenamed
	default:
		return model.KindModified
	}
}

// CountLines counts added and deleted lines in a unified diff. The +++/---
// file-header lines are not counted. An empty diff yields (0, 0).
func CountLines(diff string) (additions, deletions int) {
	if diff == "" {
		return 0, 0
	}
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "-"):
			deletions++
		}
	}
	return additions, deletions
}

// DetectFileType resolves the coarse file type from the path extension.
// Unknown extensions map to FileTypeOther.
func (c *Classifier) DetectFileType(filePath string) model.FileType {
	ext := strings.ToLower(path.Ext(filePath))
	if t, ok := c.extensionTypes[ext]; ok {
		return t
	}
	return model.FileTypeOther
}

// DetectFrameworks runs every detector and returns the set of matches.
func (c *Classifier) DetectFrameworks(filePath, diff string) []string {
	var matched []string
	for _, d := range c.detectors {
		if d.Matches(filePath, diff) {
			matched = append(matched, d.Name)
		}
	}
	return matched
}

// Categorize assigns the single coarse reporting bucket. The priority chain
// is fixed; the first matching rule wins.
func Categorize(filePath string, fileType model.FileType) model.Category {
	lower := strings.ToLower(filePath)

	for _, marker := range []string{"test", "spec", "__tests__"} {
		if strings.Contains(lower, marker) {
			return model.CategoryTest
		}
	}
	if fileType == model.FileTypeConfiguration {
		return model.CategoryConfiguration
	}
	for _, marker := range []string{"config", "properties", ".yml", ".yaml"} {
		if strings.Contains(lower, marker) {
			return model.CategoryConfiguration
		}
	}
	if fileType == model.FileTypeDocumentation {
		return model.CategoryDocumentation
	}
	for _, marker := range []string{"readme", "docs/", ".md"} {
		if strings.Contains(lower, marker) {
			return model.CategoryDocumentation
		}
	}
	switch fileType {
	case model.FileTypeFrontend:
		return model.CategoryFrontend
	case model.FileTypeBackend:
		return model.CategoryBackend
	default:
		return model.CategoryOther
	}
}
