package git

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *gogit.Repository
	when time.Time
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	return &testRepo{t: t, dir: dir, repo: repo, when: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *testRepo) signature() *object.Signature {
	r.when = r.when.Add(time.Minute)
	return &object.Signature{Name: "Test", Email: "test@example.com", When: r.when}
}

func (r *testRepo) commit(message string, files map[string]string) plumbing.Hash {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatal(err)
	}
	for name, content := range files {
		path := filepath.Join(r.dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			r.t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			r.t.Fatal(err)
		}
		if _, err := wt.Add(name); err != nil {
			r.t.Fatalf("Add(%s): %v", name, err)
		}
	}
	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: r.signature()})
	if err != nil {
		r.t.Fatalf("Commit: %v", err)
	}
	return hash
}

func (r *testRepo) tag(name string, hash plumbing.Hash, annotated bool) {
	r.t.Helper()
	var opts *gogit.CreateTagOptions
	if annotated {
		opts = &gogit.CreateTagOptions{Tagger: r.signature(), Message: "release " + name}
	}
	if _, err := r.repo.CreateTag(name, hash, opts); err != nil {
		r.t.Fatalf("CreateTag(%s): %v", name, err)
	}
}

func messages(commits []Commit) []string {
	out := make([]string, len(commits))
	for i, c := range commits {
		out[i] = strings.TrimSpace(c.Message)
	}
	return out
}

func TestRepository_Log(t *testing.T) {
	tr := newTestRepo(t)
	first := tr.commit("chore: init", map[string]string{"package.json": "{}", "src/a/package.json": "{}"})
	tr.tag("0.9.0", first, false)
	tr.tag("v1.0.0", first, true)
	tr.commit("feat: add x", map[string]string{"src/a/x.js": "x"})
	tr.commit("fix: add y", map[string]string{"src/b/y.js": "y"})

	repo, err := Open(filepath.Join(tr.dir, "src"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx := context.Background()

	t.Run("since annotated tag", func(t *testing.T) {
		commits, err := repo.Log(ctx, "v1.0.0")
		if err != nil {
			t.Fatal(err)
		}
		if got, want := messages(commits), []string{"fix: add y", "feat: add x"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("messages = %v, want %v", got, want)
		}
		if want := []string{filepath.Join(tr.dir, "src", "b", "y.js")}; !reflect.DeepEqual(commits[0].Files, want) {
			t.Errorf("files = %v, want %v", commits[0].Files, want)
		}
	})

	t.Run("since lightweight tag", func(t *testing.T) {
		commits, err := repo.Log(ctx, "0.9.0")
		if err != nil {
			t.Fatal(err)
		}
		if len(commits) != 2 {
			t.Errorf("expected 2 commits, got %d", len(commits))
		}
	})

	t.Run("whole history", func(t *testing.T) {
		commits, err := repo.Log(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(commits) != 3 {
			t.Fatalf("expected 3 commits, got %d", len(commits))
		}
		want := []string{filepath.Join(tr.dir, "package.json"), filepath.Join(tr.dir, "src", "a", "package.json")}
		if !reflect.DeepEqual(commits[2].Files, want) {
			t.Errorf("root commit files = %v, want %v", commits[2].Files, want)
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		if _, err := repo.Log(ctx, "v9.9.9"); err == nil {
			t.Error("expected error for unknown tag")
		}
	})

	t.Run("tags", func(t *testing.T) {
		tags, err := repo.ListTags(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if want := []string{"0.9.0", "v1.0.0"}; !reflect.DeepEqual(tags, want) {
			t.Errorf("tags = %v, want %v", tags, want)
		}
	})
}

func TestRepository_EmptyRepository(t *testing.T) {
	tr := newTestRepo(t)
	repo, err := Open(tr.dir)
	if err != nil {
		t.Fatal(err)
	}
	commits, err := repo.Log(context.Background(), "")
	if err != nil || len(commits) != 0 {
		t.Errorf("Log() = %v, %v; want no commits", commits, err)
	}
}

func TestOpen_NotARepository(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("expected error outside a repository")
	}
}

func TestLatestReleaseTag(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
	}{
		{"none", nil, ""},
		{"no versions", []string{"latest", "stable"}, ""},
		{"mixed prefixes", []string{"v1.2.0", "1.10.0", "v1.9.3"}, "1.10.0"},
		{"release beats prerelease", []string{"v2.0.0-rc.1", "v1.9.9", "v2.0.0"}, "v2.0.0"},
		{"ignores garbage", []string{"v1.0.0", "release-2"}, "v1.0.0"},
		{"ignores shorthand", []string{"v1.5.0", "v2", "1.9", "nightly"}, "v1.5.0"},
		{"build metadata", []string{"v1.0.0", "v1.1.0+build.7"}, "v1.1.0+build.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LatestReleaseTag(tt.tags); got != tt.want {
				t.Errorf("LatestReleaseTag(%v) = %q, want %q", tt.tags, got, tt.want)
			}
		})
	}
}
