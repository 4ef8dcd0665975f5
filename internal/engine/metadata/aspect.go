package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	domainerrors "bazelcp/internal/core/errors"
	"bazelcp/internal/engine/label"
	"bazelcp/internal/shared/execx"
	"bazelcp/internal/shared/observability"
)

// LastGoodStore keeps the most recent successful records per label so a
// broken build still yields metadata.
type LastGoodStore interface {
	LoadLastGood(ctx context.Context, l label.Label) ([]*Record, bool, error)
	SaveLastGood(ctx context.Context, l label.Label, records []*Record) error
}

type AspectOptions struct {
	Executable     string
	WorkspaceRoot  string
	StartupOptions []string
	// AspectRepository is the directory holding the aspect .bzl file; it is
	// mounted with --override_repository.
	AspectRepository string
	AspectRepoName   string
	AspectLabel      string
	OutputGroups     []string
	BatchSize        int
}

// AspectExtractor runs "bazel build" with the metadata aspect and parses the
// per-target JSON it leaves behind.
type AspectExtractor struct {
	exec     execx.Executor
	opts     AspectOptions
	lastGood LastGoodStore
	readFile func(string) ([]byte, error)

	mu      sync.Mutex
	current map[label.Label][]*Record
}

func NewAspectExtractor(exec execx.Executor, opts AspectOptions, lastGood LastGoodStore) *AspectExtractor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 25
	}
	if opts.Executable == "" {
		opts.Executable = "bazel"
	}
	if opts.AspectRepoName == "" {
		opts.AspectRepoName = "bazeljavasdk_aspect"
	}
	if opts.AspectLabel == "" {
		opts.AspectLabel = "//:bzljavasdk_aspect.bzl%bzljavasdk_aspect"
	}
	return &AspectExtractor{
		exec:     exec,
		opts:     opts,
		lastGood: lastGood,
		readFile: os.ReadFile,
		current:  make(map[label.Label][]*Record),
	}
}

func (a *AspectExtractor) Extract(ctx context.Context, labels []label.Label, purpose string) (map[label.Label][]*Record, error) {
	ctx, span := observability.Tracer.Start(ctx, "metadata.Extract")
	var spanErr error
	defer func() { observability.EndSpan(span, spanErr) }()

	result := make(map[label.Label][]*Record, len(labels))
	var misses []label.Label
	a.mu.Lock()
	for _, l := range labels {
		if recs, ok := a.current[l]; ok {
			result[l] = recs
			observability.MetadataRecordsTotal.WithLabelValues("cached").Add(float64(len(recs)))
			continue
		}
		misses = append(misses, l)
	}
	a.mu.Unlock()

	if len(misses) > 0 {
		slog.Debug("extracting target metadata", "purpose", purpose, "labels", len(misses), "cached", len(labels)-len(misses))
	}

	for start := 0; start < len(misses); start += a.opts.BatchSize {
		if err := domainerrors.FromContext(ctx, "metadata extraction"); err != nil {
			spanErr = err
			return nil, err
		}
		end := min(start+a.opts.BatchSize, len(misses))
		batch := misses[start:end]
		fresh, err := a.extractBatch(ctx, batch)
		if err != nil {
			spanErr = err
			return nil, err
		}
		for _, l := range batch {
			recs, ok := fresh[l]
			if !ok {
				recs, ok = a.fallback(ctx, l)
			}
			if !ok {
				slog.Warn("no metadata produced for target", "label", l.String(), "purpose", purpose)
				continue
			}
			result[l] = recs
		}
	}
	return result, nil
}

func (a *AspectExtractor) extractBatch(ctx context.Context, batch []label.Label) (map[label.Label][]*Record, error) {
	start := time.Now()
	defer func() { observability.MetadataExtractionDuration.Observe(time.Since(start).Seconds()) }()

	out, err := a.exec.Run(ctx, a.buildCommand(batch))
	if err != nil {
		// -k keeps going past broken targets; salvage what was written.
		ee, ok := execx.AsExitError(err)
		if !ok || len(ee.Output.Stderr) == 0 {
			return nil, err
		}
		slog.Warn("aspect build reported failures, using partial output", "exit_code", ee.ExitCode, "labels", len(batch))
		out = ee.Output
	}

	records, err := a.loadAspectFiles(out)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		slog.Warn("aspect build produced no metadata files", "labels", len(batch))
		return map[label.Label][]*Record{}, nil
	}

	grouped := Group(batch, records)
	a.mu.Lock()
	for l, recs := range grouped {
		a.current[l] = recs
	}
	a.mu.Unlock()
	if a.lastGood != nil {
		for l, recs := range grouped {
			if err := a.lastGood.SaveLastGood(ctx, l, recs); err != nil {
				slog.Warn("failed to persist last good metadata", "label", l.String(), "error", err)
			}
		}
	}
	for _, recs := range grouped {
		observability.MetadataRecordsTotal.WithLabelValues("fresh").Add(float64(len(recs)))
	}
	return grouped, nil
}

func (a *AspectExtractor) fallback(ctx context.Context, l label.Label) ([]*Record, bool) {
	if a.lastGood == nil {
		return nil, false
	}
	recs, ok, err := a.lastGood.LoadLastGood(ctx, l)
	if err != nil {
		slog.Warn("failed to load last good metadata", "label", l.String(), "error", err)
		return nil, false
	}
	if ok {
		slog.Info("using last good metadata", "label", l.String(), "records", len(recs))
		observability.MetadataRecordsTotal.WithLabelValues("last_good").Add(float64(len(recs)))
	}
	return recs, ok
}

func (a *AspectExtractor) buildCommand(batch []label.Label) execx.Command {
	args := append([]string{}, a.opts.StartupOptions...)
	args = append(args, "build")
	if a.opts.AspectRepository != "" {
		args = append(args, fmt.Sprintf("--override_repository=%s=%s", a.opts.AspectRepoName, a.opts.AspectRepository))
	}
	args = append(args,
		fmt.Sprintf("--aspects=@%s%s", a.opts.AspectRepoName, a.opts.AspectLabel),
		"-k",
		"--output_groups="+strings.Join(a.opts.OutputGroups, ","),
		"--nobuild_event_binary_file_path_conversion",
		"--noexperimental_run_validations",
		"--experimental_show_artifacts",
		"--curses=no",
		"--progress_in_terminal_title=no",
		"--",
	)
	args = append(args, label.Strings(batch)...)
	return execx.Command{Program: a.opts.Executable, Args: args, Dir: a.opts.WorkspaceRoot}
}

// loadAspectFiles reads every ">>>path" artifact line ending in the aspect suffix.
func (a *AspectExtractor) loadAspectFiles(out execx.Output) ([]*Record, error) {
	var records []*Record
	seen := make(map[string]bool)
	for _, line := range append(execx.Lines(out.Stderr), execx.Lines(out.Stdout)...) {
		path := strings.TrimSpace(strings.TrimPrefix(line, ">>>"))
		if !strings.HasSuffix(path, AspectFileSuffix) || seen[path] {
			continue
		}
		seen[path] = true
		if !filepath.IsAbs(path) && a.opts.WorkspaceRoot != "" {
			path = filepath.Join(a.opts.WorkspaceRoot, path)
		}
		data, err := a.readFile(path)
		if err != nil {
			return nil, domainerrors.AddContext(
				domainerrors.Wrap(err, domainerrors.CodeMetadataUnavailable, "cannot read aspect output"),
				domainerrors.CtxPath, path,
			)
		}
		rec, err := ParseAspectRecord(data)
		if err != nil {
			return nil, domainerrors.AddContext(err, domainerrors.CtxPath, path)
		}
		records = append(records, rec)
	}
	return records, nil
}

// FlushPackage drops cached records for every requested label in pkg, and
// for any wildcard over it.
func (a *AspectExtractor) FlushPackage(pkg label.Label) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for l := range a.current {
		if l.InPackage(pkg) || (!l.IsConcrete() && l.Covers(label.New(pkg.Package(), "x"))) {
			delete(a.current, l)
		}
	}
}

func (a *AspectExtractor) FlushAll() {
	a.mu.Lock()
	a.current = make(map[label.Label][]*Record)
	a.mu.Unlock()
}

// Group assigns records to requested labels. A concrete label gets the
// closure of its own record; a wildcard gets the union of closures of
// every record it covers.
func Group(requested []label.Label, records []*Record) map[label.Label][]*Record {
	byLabel := make(map[label.Label]*Record, len(records))
	for _, r := range records {
		byLabel[r.label] = r
	}

	out := make(map[label.Label][]*Record, len(requested))
	for _, req := range requested {
		if req.IsConcrete() {
			if root, ok := byLabel[req]; ok {
				out[req] = Closure(root, byLabel)
			}
			continue
		}
		var merged []*Record
		seen := make(map[label.Label]bool)
		for _, r := range records {
			if !req.Covers(r.label) {
				continue
			}
			for _, rec := range Closure(r, byLabel) {
				if !seen[rec.label] {
					seen[rec.label] = true
					merged = append(merged, rec)
				}
			}
		}
		if len(merged) > 0 {
			out[req] = merged
		}
	}
	return out
}
