package version

import (
	"context"
	"strings"

	"github.com/iberi22/gitcore/internal/execx"
)

// RemoteMarkerPath is the gh api endpoint serving the upstream marker raw.
const RemoteMarkerPath = "repos/iberi22/Git-Core-Protocol/contents/.gitcore-version"

// Remote fetches the upstream protocol version through gh. Failures are
// informational by contract: the sentinel Unknown comes back, never an error.
func Remote(ctx context.Context, runner execx.Runner) string {
	args := []string{"api", RemoteMarkerPath, "-H", "Accept: application/vnd.github.raw"}
	res, err := runner.Run(ctx, "gh", args, execx.RunOpts{})
	if err != nil || res.ExitCode != 0 {
		return Unknown
	}
	v := strings.TrimSpace(res.Stdout)
	if v == "" {
		return Unknown
	}
	return v
}
