package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/compozy/changelog/internal/domain"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

const (
	defaultUserName  = "github-actions[bot]"
	defaultUserEmail = "github-actions[bot]@users.noreply.github.com"
	remoteName       = "origin"
)

// gitRepository is the go-git implementation of GitExtendedRepository.
type gitRepository struct {
	repo      *git.Repository
	tagPrefix string
}

// NewGitExtendedRepository opens the repository containing path with all
// release operations available. tagPrefix is stripped from tag names before
// they are read as versions.
func NewGitExtendedRepository(path, tagPrefix string) (GitExtendedRepository, error) {
	r, err := openGitRepository(path, tagPrefix)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func openGitRepository(path, tagPrefix string) (*gitRepository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}
	return &gitRepository{repo: repo, tagPrefix: tagPrefix}, nil
}

// LatestTag returns the tag with the highest semantic version.
func (r *gitRepository) LatestTag(ctx context.Context) (string, error) {
	// Refresh tags from origin when there is one; local tags are enough otherwise.
	if remote, err := r.repo.Remote(remoteName); err == nil {
		//nolint:errcheck // best effort, the local tags are still usable
		_ = remote.FetchContext(ctx, &git.FetchOptions{
			RefSpecs: []config.RefSpec{"+refs/tags/*:refs/tags/*"},
			Auth:     r.getAuth(),
		})
	}
	tags, err := r.ListTags(ctx)
	if err != nil {
		return "", err
	}
	var (
		latestTag string
		latest    *domain.Version
	)
	for _, tag := range tags {
		v, err := r.tagVersion(tag)
		if err != nil {
			continue
		}
		if latest == nil || v.Compare(latest) > 0 {
			latest = v
			latestTag = tag
		}
	}
	return latestTag, nil
}

func (r *gitRepository) tagVersion(tag string) (*domain.Version, error) {
	if r.tagPrefix != "" && !strings.HasPrefix(tag, r.tagPrefix) {
		return nil, fmt.Errorf("tag %s does not use prefix %s", tag, r.tagPrefix)
	}
	return domain.NewStrictVersion(strings.TrimPrefix(tag, r.tagPrefix))
}

// ListTags returns the short names of all tags.
func (r *gitRepository) ListTags(_ context.Context) ([]string, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	tags := []string{}
	if err := iter.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().Short())
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return tags, nil
}

// resolveTagCommit resolves a lightweight or annotated tag to its commit.
func (r *gitRepository) resolveTagCommit(tagRef *plumbing.Reference) (plumbing.Hash, error) {
	if commit, err := r.repo.CommitObject(tagRef.Hash()); err == nil {
		return commit.Hash, nil
	}
	if tagObj, err := r.repo.TagObject(tagRef.Hash()); err == nil {
		if commit, err := r.repo.CommitObject(tagObj.Target); err == nil {
			return commit.Hash, nil
		}
	}
	return plumbing.Hash{}, fmt.Errorf("failed to resolve commit for tag %s", tagRef.Name().Short())
}

func (r *gitRepository) tagCommit(tag string) (plumbing.Hash, error) {
	tagRef, err := r.repo.Tag(tag)
	if err != nil {
		return plumbing.Hash{}, fmt.Errorf("failed to get tag %s: %w", tag, err)
	}
	return r.resolveTagCommit(tagRef)
}

// walkSince visits commits from HEAD until stop, which is excluded. A zero
// stop walks the whole history.
func (r *gitRepository) walkSince(stop plumbing.Hash, fn func(*object.Commit)) error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}
	commits, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return fmt.Errorf("failed to get commits: %w", err)
	}
	err = commits.ForEach(func(c *object.Commit) error {
		if !stop.IsZero() && c.Hash == stop {
			return storer.ErrStop
		}
		fn(c)
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return fmt.Errorf("failed to iterate commits: %w", err)
	}
	return nil
}

// CommitsSinceTag returns the number of commits since the given tag.
func (r *gitRepository) CommitsSinceTag(_ context.Context, tag string) (int, error) {
	stop, err := r.tagCommit(tag)
	if err != nil {
		return 0, err
	}
	count := 0
	if err := r.walkSince(stop, func(*object.Commit) { count++ }); err != nil {
		return 0, err
	}
	return count, nil
}

// CommitMessagesSince returns commit messages newer than tag.
func (r *gitRepository) CommitMessagesSince(_ context.Context, tag string) ([]string, error) {
	var stop plumbing.Hash
	if tag != "" {
		var err error
		if stop, err = r.tagCommit(tag); err != nil {
			return nil, err
		}
	}
	var messages []string
	if err := r.walkSince(stop, func(c *object.Commit) {
		messages = append(messages, c.Message)
	}); err != nil {
		return nil, err
	}
	return messages, nil
}

// TagExists checks if a tag exists.
func (r *gitRepository) TagExists(_ context.Context, tag string) (bool, error) {
	_, err := r.repo.Tag(tag)
	if errors.Is(err, git.ErrTagNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check tag %s: %w", tag, err)
	}
	return true, nil
}

// CreateBranch creates a branch at HEAD.
func (r *gitRepository) CreateBranch(_ context.Context, name string) error {
	branchRef := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Reference(branchRef, false); err == nil {
		return fmt.Errorf("branch %s already exists", name)
	}
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}
	return r.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, head.Hash()))
}

// CreateTag creates an annotated tag at HEAD.
func (r *gitRepository) CreateTag(_ context.Context, tag, msg string) error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}
	if _, err := r.repo.CreateTag(tag, head.Hash(), &git.CreateTagOptions{
		Message: msg,
		Tagger:  r.signature(),
	}); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", tag, err)
	}
	return nil
}

// DeleteTag deletes a local tag.
func (r *gitRepository) DeleteTag(_ context.Context, tag string) error {
	if err := r.repo.DeleteTag(tag); err != nil {
		return fmt.Errorf("failed to delete tag %s: %w", tag, err)
	}
	return nil
}

// signature uses the configured git user, falling back to the Actions bot.
func (r *gitRepository) signature() *object.Signature {
	sig := &object.Signature{Name: defaultUserName, Email: defaultUserEmail, When: time.Now()}
	if cfg, err := r.repo.Config(); err == nil && cfg.User.Name != "" {
		sig.Name = cfg.User.Name
		if cfg.User.Email != "" {
			sig.Email = cfg.User.Email
		}
	}
	return sig
}

// getAuth returns token authentication for GitHub remotes, or nil.
func (r *gitRepository) getAuth() *http.BasicAuth {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		token = os.Getenv("CHANGELOG_GITHUB_TOKEN")
	}
	if token == "" {
		return nil
	}
	return &http.BasicAuth{
		Username: "x-access-token",
		Password: token,
	}
}

func (r *gitRepository) push(ctx context.Context, refSpec string, force bool) error {
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(refSpec)},
		Auth:       r.getAuth(),
		Force:      force,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

// PushTag pushes a tag to origin.
func (r *gitRepository) PushTag(ctx context.Context, tag string) error {
	if err := r.push(ctx, fmt.Sprintf("refs/tags/%s:refs/tags/%s", tag, tag), false); err != nil {
		return fmt.Errorf("failed to push tag %s: %w", tag, err)
	}
	return nil
}

// DeleteRemoteTag deletes a tag from origin.
func (r *gitRepository) DeleteRemoteTag(ctx context.Context, tag string) error {
	if err := r.push(ctx, ":refs/tags/"+tag, false); err != nil {
		return fmt.Errorf("failed to delete remote tag %s: %w", tag, err)
	}
	return nil
}

// PushBranch pushes a branch to origin.
func (r *gitRepository) PushBranch(ctx context.Context, name string) error {
	if err := r.push(ctx, fmt.Sprintf("refs/heads/%s:refs/heads/%s", name, name), false); err != nil {
		return fmt.Errorf("failed to push branch %s: %w", name, err)
	}
	return nil
}

// PushBranchForce pushes a branch to origin with force.
func (r *gitRepository) PushBranchForce(ctx context.Context, name string) error {
	if err := r.push(ctx, fmt.Sprintf("refs/heads/%s:refs/heads/%s", name, name), true); err != nil {
		return fmt.Errorf("failed to force push branch %s: %w", name, err)
	}
	return nil
}

// DeleteRemoteBranch deletes a branch from origin.
func (r *gitRepository) DeleteRemoteBranch(ctx context.Context, name string) error {
	if err := r.push(ctx, ":refs/heads/"+name, false); err != nil {
		return fmt.Errorf("failed to delete remote branch %s: %w", name, err)
	}
	return nil
}

// CheckoutBranch switches to the specified branch.
func (r *gitRepository) CheckoutBranch(_ context.Context, name string) error {
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := w.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Keep:   true,
	}); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", name, err)
	}
	return nil
}

// ConfigureUser sets the repository-local git user.
func (r *gitRepository) ConfigureUser(_ context.Context, name, email string) error {
	cfg, err := r.repo.Config()
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	cfg.User.Name = name
	cfg.User.Email = email
	return r.repo.Storer.SetConfig(cfg)
}

// AddFiles stages files matching the pattern. A pattern matching nothing is
// not an error.
func (r *gitRepository) AddFiles(_ context.Context, pattern string) error {
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := w.AddGlob(pattern); err != nil && !errors.Is(err, git.ErrGlobNoMatches) {
		return fmt.Errorf("failed to add files with pattern %s: %w", pattern, err)
	}
	return nil
}

// Commit records the staged changes.
func (r *gitRepository) Commit(_ context.Context, message string) error {
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Commit(message, &git.CommitOptions{Author: r.signature()}); err != nil {
		return fmt.Errorf("failed to create commit: %w", err)
	}
	return nil
}

// GetCurrentBranch returns the name of the current branch.
func (r *gitRepository) GetCurrentBranch(_ context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Name().Short(), nil
}

// DeleteBranch deletes a local branch.
func (r *gitRepository) DeleteBranch(_ context.Context, name string) error {
	if err := r.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(name)); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", name, err)
	}
	return nil
}

// RestoreFile writes the HEAD version of path back to the worktree.
func (r *gitRepository) RestoreFile(_ context.Context, path string) error {
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return fmt.Errorf("failed to get HEAD commit: %w", err)
	}
	file, err := commit.File(path)
	if err != nil {
		return fmt.Errorf("failed to get file %s from HEAD: %w", path, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return fmt.Errorf("failed to get file contents: %w", err)
	}
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	f, err := w.Filesystem.Create(path)
	if err != nil {
		return fmt.Errorf("failed to restore file %s: %w", path, err)
	}
	if _, err := io.WriteString(f, contents); err != nil {
		f.Close()
		return fmt.Errorf("failed to restore file %s: %w", path, err)
	}
	return f.Close()
}

// ResetHard performs a hard reset to the specified revision.
func (r *gitRepository) ResetHard(_ context.Context, ref string) error {
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return fmt.Errorf("failed to resolve revision %s: %w", ref, err)
	}
	if err := w.Reset(&git.ResetOptions{Commit: *hash, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", ref, err)
	}
	return nil
}

// GetHeadCommit returns the SHA of HEAD.
func (r *gitRepository) GetHeadCommit(_ context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// ListLocalBranches returns all local branch names.
func (r *gitRepository) ListLocalBranches(_ context.Context) ([]string, error) {
	iter, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	var branches []string
	if err := iter.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, ref.Name().Short())
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to iterate branches: %w", err)
	}
	return branches, nil
}

// ListRemoteBranches returns the branches of origin as "origin/<name>".
func (r *gitRepository) ListRemoteBranches(ctx context.Context) ([]string, error) {
	remote, err := r.repo.Remote(remoteName)
	if err != nil {
		return nil, fmt.Errorf("failed to get remote: %w", err)
	}
	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: r.getAuth()})
	if err != nil {
		return nil, fmt.Errorf("failed to list remote refs: %w", err)
	}
	var branches []string
	for _, ref := range refs {
		if ref.Name().IsBranch() {
			branches = append(branches, remoteName+"/"+ref.Name().Short())
		}
	}
	return branches, nil
}

// GetFileStatus reports whether path has uncommitted changes.
func (r *gitRepository) GetFileStatus(_ context.Context, path string) (string, error) {
	w, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get status: %w", err)
	}
	// status.File would report untracked for paths missing from the map.
	fileStatus, ok := status[filepath.ToSlash(path)]
	if !ok || (fileStatus.Worktree == git.Unmodified && fileStatus.Staging == git.Unmodified) {
		return "clean", nil
	}
	return "modified", nil
}
