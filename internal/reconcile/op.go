package reconcile

// Action identifies what an operation does to the project tree.
type Action string

const (
	// ActionCopy writes a template file into the project.
	ActionCopy Action = "copy"
	// ActionSkip records a template file deliberately left alone.
	ActionSkip Action = "skip"
	// ActionDeleteDir removes a managed directory before wholesale copy.
	ActionDeleteDir Action = "delete-dir"
	// ActionExclude records a template path withheld from the project.
	ActionExclude Action = "exclude"
	// ActionMigrate copies a file out of the legacy config dir into the
	// current one. The legacy dir itself is never touched.
	ActionMigrate Action = "migrate"
	// ActionMkdir creates a managed directory the template ships empty.
	ActionMkdir Action = "mkdir"
	// ActionMove relocates a project file (docs reorganization).
	ActionMove Action = "move"
	// ActionRestore puts a backed-up user artifact back after an upgrade.
	// Restore ops never appear in plans; they are reported by the backup set.
	ActionRestore Action = "restore"
)

// Op is a single planned change, expressed in canonical project-relative
// paths. Ops are values: building a plan allocates them once and nothing
// mutates them afterwards.
type Op struct {
	Action Action `json:"action"`
	Path   string `json:"path"`
	From   string `json:"from,omitempty"`   // template path for copy, project path for migrate/move
	Digest string `json:"digest,omitempty"` // content digest of the bytes being written
	Reason string `json:"reason,omitempty"`
}

func (o Op) canonicalMap() map[string]any {
	m := map[string]any{
		"action": string(o.Action),
		"path":   o.Path,
	}
	if o.From != "" {
		m["from"] = o.From
	}
	if o.Digest != "" {
		m["digest"] = o.Digest
	}
	if o.Reason != "" {
		m["reason"] = o.Reason
	}
	return m
}
