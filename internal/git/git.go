// Package git reads release tags and commit history from the repository
// that contains the monorepo.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/mod/semver"
)

// Commit is one commit since the last release.
type Commit struct {
	Hash    string
	Message string

	// Files changed by the commit relative to its first parent, as
	// absolute paths.
	Files []string
}

// Client is the subset of git the version resolver needs.
type Client interface {
	ListTags(ctx context.Context) ([]string, error)

	// Log returns the commits reachable from HEAD but not from sinceTag,
	// newest first. An empty sinceTag returns the whole history.
	Log(ctx context.Context, sinceTag string) ([]Commit, error)
}

// Repository implements Client on top of go-git.
type Repository struct {
	repo *gogit.Repository
	root string
}

// Verify Repository implements Client.
var _ Client = (*Repository)(nil)

// Open opens the repository containing dir, searching parent directories
// for the .git directory.
func Open(dir string) (*Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("repository at %s has no worktree: %w", dir, err)
	}
	return &Repository{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root is the worktree directory.
func (r *Repository) Root() string {
	return r.root
}

// ListTags returns the short names of all tags, sorted.
func (r *Repository) ListTags(ctx context.Context) ([]string, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer iter.Close()

	var tags []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tags = append(tags, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	sort.Strings(tags)
	return tags, nil
}

// Log implements Client.
func (r *Repository) Log(ctx context.Context, sinceTag string) ([]Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	excluded := map[plumbing.Hash]bool{}
	if sinceTag != "" {
		boundary, err := r.tagCommit(sinceTag)
		if err != nil {
			return nil, err
		}
		if err := r.walk(ctx, boundary.Hash, func(c *object.Commit) error {
			excluded[c.Hash] = true
			return nil
		}); err != nil {
			return nil, err
		}
	}

	var commits []Commit
	err = r.walk(ctx, head.Hash(), func(c *object.Commit) error {
		if excluded[c.Hash] {
			return nil
		}
		files, err := r.changedFiles(ctx, c)
		if err != nil {
			return fmt.Errorf("failed to diff commit %s: %w", c.Hash, err)
		}
		commits = append(commits, Commit{Hash: c.Hash.String(), Message: c.Message, Files: files})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commits, nil
}

func (r *Repository) walk(ctx context.Context, from plumbing.Hash, fn func(*object.Commit) error) error {
	iter, err := r.repo.Log(&gogit.LogOptions{From: from})
	if err != nil {
		return fmt.Errorf("failed to read log from %s: %w", from, err)
	}
	defer iter.Close()
	return iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(c)
	})
}

// tagCommit peels annotated tags down to the commit they point at.
func (r *Repository) tagCommit(name string) (*object.Commit, error) {
	ref, err := r.repo.Tag(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tag %s: %w", name, err)
	}
	tag, err := r.repo.TagObject(ref.Hash())
	switch {
	case err == nil:
		c, err := tag.Commit()
		if err != nil {
			return nil, fmt.Errorf("tag %s does not point at a commit: %w", name, err)
		}
		return c, nil
	case errors.Is(err, plumbing.ErrObjectNotFound):
		c, err := r.repo.CommitObject(ref.Hash())
		if err != nil {
			return nil, fmt.Errorf("tag %s does not point at a commit: %w", name, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("failed to read tag %s: %w", name, err)
	}
}

func (r *Repository) changedFiles(ctx context.Context, c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTreeContext(ctx, parentTree, tree)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var files []string
	for _, ch := range changes {
		for _, name := range []string{ch.From.Name, ch.To.Name} {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			files = append(files, filepath.Join(r.root, filepath.FromSlash(name)))
		}
	}
	sort.Strings(files)
	return files, nil
}

// LatestReleaseTag returns the tag with the highest semantic version, or
// "" when no tag is a version. Tags may omit the leading "v" but must be
// complete: "v2" and "v1.2" are not versions.
func LatestReleaseTag(tags []string) string {
	var best, bestCanon string
	for _, tag := range tags {
		canon := tag
		if !strings.HasPrefix(canon, "v") {
			canon = "v" + canon
		}
		canon, _, _ = strings.Cut(canon, "+")
		if semver.Canonical(canon) != canon {
			continue
		}
		if best == "" || semver.Compare(canon, bestCanon) > 0 {
			best, bestCanon = tag, canon
		}
	}
	return best
}
