package manifest

import (
	"fmt"
	"path"
	"strings"

	"github.com/iberi22/gitcore/internal/vfs"
)

// Validation error codes (E100-E199)
const (
	// Field-level errors (E101-E109)
	ErrFieldEmpty     = "E101" // required field is empty
	ErrPathInvalid    = "E102" // path is absolute, escaping, or not clean
	ErrDuplicateEntry = "E103" // duplicate path within a list

	// Cross-field errors (E110-E119)
	ErrArchOutsideConfig = "E110" // architecture_file must live under config_dir
	ErrLogOutsideConfig  = "E111" // context_log must live under config_dir
	ErrReservedUserOwned = "E112" // reserved workflow cannot also be user-owned
	ErrUpstreamUnmanaged = "E113" // upstream_only path outside every managed dir
	ErrLegacyManaged     = "E114" // legacy_config_dir must not itself be managed
	ErrMarkerNotProtocol = "E115" // version_marker missing from protocol_files
	ErrWorkflowUnmanaged = "E116" // workflow_dir must be a managed dir
)

// ValidationError represents a rules validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a manifest against structural rules.
// Returns all errors found (does not fail-fast).
func Validate(m *Manifest) []ValidationError {
	var errs []ValidationError

	required := []struct {
		field string
		value string
	}{
		{"version_marker", m.VersionMarker},
		{"config_dir", m.ConfigDir},
		{"architecture_file", m.ArchitectureFile},
		{"context_log", m.ContextLog},
		{"workflow_dir", m.WorkflowDir},
		{"docs_dir", m.DocsDir},
	}
	for _, r := range required {
		// E101: required scalar must be set
		if r.value == "" {
			errs = append(errs, ValidationError{
				Field:   r.field,
				Message: "value is required and must be non-empty",
				Code:    ErrFieldEmpty,
			})
		}
	}

	scalars := []struct {
		field string
		value string
	}{
		{"version_marker", m.VersionMarker},
		{"config_dir", m.ConfigDir},
		{"legacy_config_dir", m.LegacyConfigDir},
		{"architecture_file", m.ArchitectureFile},
		{"context_log", m.ContextLog},
		{"workflow_dir", m.WorkflowDir},
		{"docs_dir", m.DocsDir},
	}
	for _, s := range scalars {
		if s.value == "" {
			continue
		}
		// E102: paths are project-relative and clean
		if err := checkPath(s.value); err != "" {
			errs = append(errs, ValidationError{Field: s.field, Message: err, Code: ErrPathInvalid})
		}
	}

	lists := []struct {
		field  string
		values []string
	}{
		{"reserved_workflows", m.ReservedWorkflows},
		{"managed_dirs", m.ManagedDirs},
		{"protocol_files", m.ProtocolFiles},
		{"preserved_files", m.PreservedFiles},
		{"user_owned", m.UserOwned},
		{"upstream_only", m.UpstreamOnly},
	}
	for _, l := range lists {
		seen := make(map[string]bool)
		for i, v := range l.values {
			field := fmt.Sprintf("%s[%d]", l.field, i)
			if err := checkPath(v); err != "" {
				errs = append(errs, ValidationError{Field: field, Message: err, Code: ErrPathInvalid})
				continue
			}
			// E103: duplicate entries hide intent
			if seen[v] {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("duplicate entry: %q", v),
					Code:    ErrDuplicateEntry,
				})
			}
			seen[v] = true
		}
	}

	// Cross-field rules only make sense once the fields themselves parse.
	if len(errs) > 0 {
		return errs
	}

	// E110/E111: the user-owned config artifacts live inside the config dir
	if !vfs.Under(m.ArchitectureFile, m.ConfigDir) {
		errs = append(errs, ValidationError{
			Field:   "architecture_file",
			Message: fmt.Sprintf("%q must live under config_dir %q", m.ArchitectureFile, m.ConfigDir),
			Code:    ErrArchOutsideConfig,
		})
	}
	if !vfs.Under(m.ContextLog, m.ConfigDir) {
		errs = append(errs, ValidationError{
			Field:   "context_log",
			Message: fmt.Sprintf("%q must live under config_dir %q", m.ContextLog, m.ConfigDir),
			Code:    ErrLogOutsideConfig,
		})
	}

	// E112: a reserved workflow is protocol-owned, never user-owned
	reserved := make(map[string]bool, len(m.ReservedWorkflows))
	for _, w := range m.ReservedWorkflows {
		reserved[w] = true
	}
	for i, p := range m.UserOwned {
		if vfs.Under(p, m.WorkflowDir) && reserved[path.Base(p)] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("user_owned[%d]", i),
				Message: fmt.Sprintf("%q is a reserved workflow and cannot be user-owned", p),
				Code:    ErrReservedUserOwned,
			})
		}
	}

	// E113: exclusions are scoped to managed content
	for i, p := range m.UpstreamOnly {
		if !underAny(p, m.ManagedDirs) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("upstream_only[%d]", i),
				Message: fmt.Sprintf("%q is not under any managed dir", p),
				Code:    ErrUpstreamUnmanaged,
			})
		}
	}

	// E114: the legacy dir is never deleted, so it must not be managed
	if m.LegacyConfigDir != "" {
		for _, d := range m.ManagedDirs {
			if m.LegacyConfigDir == d {
				errs = append(errs, ValidationError{
					Field:   "legacy_config_dir",
					Message: fmt.Sprintf("%q cannot appear in managed_dirs", m.LegacyConfigDir),
					Code:    ErrLegacyManaged,
				})
			}
		}
	}

	// E115: the marker must be rewritten on every run
	marker := false
	for _, f := range m.ProtocolFiles {
		if f == m.VersionMarker {
			marker = true
		}
	}
	if !marker {
		errs = append(errs, ValidationError{
			Field:   "version_marker",
			Message: fmt.Sprintf("%q must be listed in protocol_files", m.VersionMarker),
			Code:    ErrMarkerNotProtocol,
		})
	}

	// E116: custom workflow capture assumes the dir is managed
	if !underAny(m.WorkflowDir, m.ManagedDirs) {
		errs = append(errs, ValidationError{
			Field:   "workflow_dir",
			Message: fmt.Sprintf("%q must be (or sit under) a managed dir", m.WorkflowDir),
			Code:    ErrWorkflowUnmanaged,
		})
	}

	return errs
}

func checkPath(p string) string {
	switch {
	case p == "":
		return "path must be non-empty"
	case strings.HasPrefix(p, "/"):
		return fmt.Sprintf("path %q must be project-relative", p)
	case p == "." || p == ".." || strings.HasPrefix(p, "../"):
		return fmt.Sprintf("path %q escapes the project root", p)
	case p != vfs.Canonical(p):
		return fmt.Sprintf("path %q is not in canonical form", p)
	}
	return ""
}

func underAny(p string, dirs []string) bool {
	for _, d := range dirs {
		if vfs.Under(p, d) {
			return true
		}
	}
	return false
}
