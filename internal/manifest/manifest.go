// Package manifest defines the path rules that drive reconciliation: which
// directories the protocol manages, which files belong to the user, and which
// template paths never reach installed projects.
//
// Rules ship embedded as default.yaml; a project can override individual keys
// with a .gitcore.yaml at its root. Overrides are strict: unknown keys are
// rejected rather than silently ignored.
package manifest

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/iberi22/gitcore/internal/vfs"
)

//go:embed default.yaml
var defaultManifest []byte

// OverrideFile is the per-project rules override, relative to the project root.
const OverrideFile = ".gitcore.yaml"

// Manifest holds the raw path rules before compilation.
type Manifest struct {
	VersionMarker string `yaml:"version_marker"`

	ConfigDir       string `yaml:"config_dir"`
	LegacyConfigDir string `yaml:"legacy_config_dir"`

	ArchitectureFile string `yaml:"architecture_file"`
	ContextLog       string `yaml:"context_log"`

	WorkflowDir       string   `yaml:"workflow_dir"`
	ReservedWorkflows []string `yaml:"reserved_workflows"`

	ManagedDirs    []string `yaml:"managed_dirs"`
	ProtocolFiles  []string `yaml:"protocol_files"`
	PreservedFiles []string `yaml:"preserved_files"`
	UserOwned      []string `yaml:"user_owned"`
	UpstreamOnly   []string `yaml:"upstream_only"`

	DocsDir string `yaml:"docs_dir"`
}

// Default returns the embedded rule set.
func Default() (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(defaultManifest, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse embedded defaults: %w", err)
	}
	m.normalize()
	return &m, nil
}

// Load returns the defaults merged with the project's override, if one exists.
// Keys present in the override replace the corresponding default; list keys
// replace the whole list.
func Load(fsys vfs.FS, projectRoot string) (*Manifest, error) {
	m, err := Default()
	if err != nil {
		return nil, err
	}

	data, err := fsys.ReadFile(filepath.Join(projectRoot, OverrideFile))
	if errors.Is(err, iofs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", OverrideFile, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("manifest: parse %s: %w", OverrideFile, err)
	}
	m.normalize()
	return m, nil
}

// normalize rewrites every path field into canonical slash form so that rule
// matching and snapshot paths compare byte-for-byte.
func (m *Manifest) normalize() {
	clean := func(p string) string {
		if p == "" {
			return ""
		}
		return vfs.Canonical(p)
	}
	cleanAll := func(ps []string) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, clean(p))
		}
		return out
	}

	m.VersionMarker = clean(m.VersionMarker)
	m.ConfigDir = clean(m.ConfigDir)
	m.LegacyConfigDir = clean(m.LegacyConfigDir)
	m.ArchitectureFile = clean(m.ArchitectureFile)
	m.ContextLog = clean(m.ContextLog)
	m.WorkflowDir = clean(m.WorkflowDir)
	m.DocsDir = clean(m.DocsDir)
	m.ReservedWorkflows = cleanAll(m.ReservedWorkflows)
	m.ManagedDirs = cleanAll(m.ManagedDirs)
	m.ProtocolFiles = cleanAll(m.ProtocolFiles)
	m.PreservedFiles = cleanAll(m.PreservedFiles)
	m.UserOwned = cleanAll(m.UserOwned)
	m.UpstreamOnly = cleanAll(m.UpstreamOnly)
}
