package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	domainerrors "bazelcp/internal/core/errors"
	"bazelcp/internal/engine/label"
	"bazelcp/internal/shared/execx"
)

// Target is a rule found in a package together with its kind.
type Target struct {
	Label label.Label
	Rule  string
	Kind  Kind
}

// QueryTargetLister lists the rules of a package with "bazel query".
type QueryTargetLister struct {
	exec           execx.Executor
	executable     string
	workspaceRoot  string
	startupOptions []string
}

func NewQueryTargetLister(exec execx.Executor, executable, workspaceRoot string, startupOptions []string) *QueryTargetLister {
	if executable == "" {
		executable = "bazel"
	}
	return &QueryTargetLister{
		exec:           exec,
		executable:     executable,
		workspaceRoot:  workspaceRoot,
		startupOptions: startupOptions,
	}
}

// ListTargets returns rules matching pattern (for example //a:* or //a/...).
func (q *QueryTargetLister) ListTargets(ctx context.Context, pattern label.Label) ([]Target, error) {
	expr := fmt.Sprintf("kind(rule, %s)", pattern)
	args := append([]string{}, q.startupOptions...)
	args = append(args, "query", expr, "--output=label_kind", "--keep_going")
	out, err := q.exec.Run(ctx, execx.Command{Program: q.executable, Args: args, Dir: q.workspaceRoot})
	if err != nil {
		// Exit code 3 with --keep_going still prints the partial result.
		ee, ok := execx.AsExitError(err)
		if !ok || ee.ExitCode != 3 {
			return nil, domainerrors.AddContext(err, domainerrors.CtxLabel, pattern.String())
		}
		slog.Warn("bazel query partially failed", "pattern", pattern.String())
		out = ee.Output
	}
	return ParseLabelKind(out.Stdout)
}

// ParseLabelKind parses "--output=label_kind" lines: "<rule> rule <label>".
func ParseLabelKind(stdout []byte) ([]Target, error) {
	var targets []Target
	for _, line := range execx.Lines(stdout) {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[len(fields)-2] != "rule" {
			continue
		}
		l, err := label.Parse(fields[len(fields)-1])
		if err != nil {
			return nil, err
		}
		targets = append(targets, Target{Label: l, Rule: fields[0], Kind: ParseKind(fields[0])})
	}
	return targets, nil
}
