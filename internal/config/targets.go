package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/festy23/mrdocgen/internal/mergerequest/model"
)

// TargetEntry is one merge request in the targets file. Either a full web URL
// or an explicit project/iid pair.
type TargetEntry struct {
	URL     string `yaml:"url,omitempty"`
	Project string `yaml:"project,omitempty"`
	IID     int    `yaml:"iid,omitempty"`
}

// TargetsFile is the YAML document listing merge requests to process.
type TargetsFile struct {
	Targets []TargetEntry `yaml:"targets"`
}

var mrURLPattern = regexp.MustCompile(`^https?://([^/]+)/(.+?)/-/merge_requests/(\d+)`)

// ParseMergeRequestURL derives a Ref from a merge request web URL of the form
// https://host/group/project/-/merge_requests/N.
func ParseMergeRequestURL(raw string) (model.Ref, error) {
	m := mrURLPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return model.Ref{}, fmt.Errorf("not a merge request URL: %s", raw)
	}
	iid, err := strconv.Atoi(m[3])
	if err != nil {
		return model.Ref{}, fmt.Errorf("invalid merge request iid in URL %s: %w", raw, err)
	}
	return model.Ref{Host: m[1], Project: m[2], IID: iid}, nil
}

// LoadTargets reads the targets file and resolves every entry into a Ref.
// Entries without a URL inherit defaultHost (the configured GitLab host).
func LoadTargets(path, defaultHost string) ([]model.Ref, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	return ParseTargets(data, defaultHost)
}

// ParseTargets resolves raw YAML target data into Refs, preserving order.
// defaultHost may be a bare host or a full base URL.
func ParseTargets(data []byte, defaultHost string) ([]model.Ref, error) {
	defaultHost = hostOnly(defaultHost)

	var file TargetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse targets file: %w", err)
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("targets file lists no merge requests")
	}

	refs := make([]model.Ref, 0, len(file.Targets))
	for i, entry := range file.Targets {
		switch {
		case entry.URL != "":
			ref, err := ParseMergeRequestURL(entry.URL)
			if err != nil {
				return nil, fmt.Errorf("target %d: %w", i+1, err)
			}
			refs = append(refs, ref)
		case entry.Project != "" && entry.IID > 0:
			refs = append(refs, model.Ref{Host: defaultHost, Project: entry.Project, IID: entry.IID})
		default:
			return nil, fmt.Errorf("target %d: needs either url or project+iid", i+1)
		}
	}
	return refs, nil
}

func hostOnly(raw string) string {
	if !strings.Contains(raw, "://") {
		return strings.TrimSuffix(raw, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}
