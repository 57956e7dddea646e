package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/moby/patternmatcher/ignorefile"
	"github.com/sirupsen/logrus"

	"github.com/melih/dirg/internal/core/domain"
)

var log = logrus.WithField("component", "builder")

var remotePrefixes = []string{"http://", "https://", "git://", "ssh://", "git@"}

type cloneFunc func(ctx context.Context, dir string, opts *git.CloneOptions) error

// Resolver turns build paths into local build contexts. It implements
// ports.BuildContextResolver.
type Resolver struct {
	// BaseDir anchors relative build paths, the working directory when empty.
	BaseDir string
	clone   cloneFunc
}

func NewResolver(baseDir string) *Resolver {
	return &Resolver{BaseDir: baseDir, clone: plainClone}
}

func plainClone(ctx context.Context, dir string, opts *git.CloneOptions) error {
	_, err := git.PlainCloneContext(ctx, dir, false, opts)
	return err
}

// IsRemote reports whether the build path names a git repository.
func IsRemote(buildPath string) bool {
	for _, prefix := range remotePrefixes {
		if strings.HasPrefix(buildPath, prefix) {
			return true
		}
	}
	url, _ := splitRef(buildPath)
	return strings.HasSuffix(url, ".git")
}

// splitRef separates an optional "#branch" suffix from a repository URL.
func splitRef(buildPath string) (string, string) {
	if i := strings.LastIndex(buildPath, "#"); i >= 0 {
		return buildPath[:i], buildPath[i+1:]
	}
	return buildPath, ""
}

// Resolve clones remote repositories into a temporary directory and checks
// local directories. The returned context carries the .dockerignore patterns.
func (r *Resolver) Resolve(ctx context.Context, buildPath string) (domain.BuildContext, error) {
	if IsRemote(buildPath) {
		return r.cloneRepository(ctx, buildPath)
	}

	dir := buildPath
	if !filepath.IsAbs(dir) && r.BaseDir != "" {
		dir = filepath.Join(r.BaseDir, dir)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return domain.BuildContext{}, fmt.Errorf("failed to resolve build path %s: %w", buildPath, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return domain.BuildContext{}, fmt.Errorf("failed to read build path %s: %w", buildPath, err)
	}
	if !info.IsDir() {
		return domain.BuildContext{}, fmt.Errorf("build path %s is not a directory", buildPath)
	}

	excludes, err := readIgnoreFile(dir)
	if err != nil {
		return domain.BuildContext{}, err
	}
	return domain.BuildContext{Dir: dir, Excludes: excludes, Cleanup: func() {}}, nil
}

func (r *Resolver) cloneRepository(ctx context.Context, buildPath string) (domain.BuildContext, error) {
	url, ref := splitRef(buildPath)

	// Create temporary directory
	tmpDir, err := os.MkdirTemp("", "dirg-build-*")
	if err != nil {
		return domain.BuildContext{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			log.WithError(err).WithField("dir", tmpDir).Warn("Failed to remove build directory")
		}
	}

	progress := log.WriterLevel(logrus.DebugLevel)
	defer progress.Close()

	opts := &git.CloneOptions{
		URL:      url,
		Progress: progress,
		Depth:    1, // Shallow clone for speed
	}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
		opts.SingleBranch = true
	}

	log.WithFields(logrus.Fields{"url": url, "dir": tmpDir}).Debug("Cloning build repository")
	if err := r.clone(ctx, tmpDir, opts); err != nil {
		cleanup()
		return domain.BuildContext{}, fmt.Errorf("failed to clone repo %s: %w", url, err)
	}

	excludes, err := readIgnoreFile(tmpDir)
	if err != nil {
		cleanup()
		return domain.BuildContext{}, err
	}
	return domain.BuildContext{Dir: tmpDir, Excludes: excludes, Cleanup: cleanup}, nil
}

func readIgnoreFile(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, ".dockerignore"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open .dockerignore: %w", err)
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read .dockerignore: %w", err)
	}
	return patterns, nil
}
