package ports

import (
	"context"

	"github.com/melih/dirg/internal/core/domain"
)

// BuildContextResolver prepares the build context of a container.
type BuildContextResolver interface {
	// Resolve turns a build path, either a local directory or a git repository
	// URL, into a local directory. Remote repositories are cloned first.
	Resolve(ctx context.Context, buildPath string) (domain.BuildContext, error)
}
