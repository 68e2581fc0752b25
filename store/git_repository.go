package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/sirupsen/logrus"
)

// GitRepository is a read-only Repository for a config document kept in a
// git repository. The first refresh clones the repository into an in-memory
// filesystem; later refreshes pull.
type GitRepository struct {
	sync.RWMutex                     // RWMutex to synchronize access to rawData during refresh
	Name          string             // Name of the configuration source
	URL           *url.URL           // URL of the git repository
	Path          string             // Path of the config document within the repository
	Branch        string             // Branch to check out; empty means the default branch
	Auth          *githttp.BasicAuth // Optional credentials for clone and pull
	gitRepository *git.Repository    // In-memory clone
	fs            billy.Filesystem   // Filesystem holding the clone's worktree
	rawData       []byte             // Raw bytes of the config document
}

// GetName returns the name of the configuration source.
func (g *GitRepository) GetName() string {
	return g.Name
}

// GetRawData returns the raw bytes of the config document.
func (g *GitRepository) GetRawData() []byte {
	g.RLock()
	defer g.RUnlock()
	return g.rawData
}

// Refresh clones or pulls the repository, then re-reads the config document
// from the worktree. A document missing from the repository is ErrNotExist.
func (g *GitRepository) Refresh() error {
	g.Lock()
	defer g.Unlock()

	if g.fs == nil {
		g.fs = memfs.New()
		logrus.Debugf("cloning %s into memory", g.URL.String())
		r, err := git.CloneContext(context.Background(), memory.NewStorage(), g.fs, &git.CloneOptions{
			URL:  g.URL.String(),
			Auth: g.Auth,
		})
		if err != nil {
			g.fs = nil
			return fmt.Errorf("cloning %s: %w", g.URL, err)
		}
		g.gitRepository = r

		if g.Branch != "" {
			w, err := r.Worktree()
			if err != nil {
				return err
			}
			err = r.Fetch(&git.FetchOptions{
				RefSpecs: []gitconfig.RefSpec{"refs/*:refs/*", "HEAD:refs/heads/HEAD"},
			})
			if err != nil && err != git.NoErrAlreadyUpToDate {
				return err
			}
			err = w.Checkout(&git.CheckoutOptions{
				Branch: plumbing.NewBranchReferenceName(g.Branch),
				Force:  true,
			})
			if err != nil {
				return err
			}
		}
	} else {
		w, err := g.gitRepository.Worktree()
		if err != nil {
			return err
		}
		logrus.Debug("pulling")

		pullOptions := &git.PullOptions{Auth: g.Auth}
		if g.Branch != "" {
			pullOptions = &git.PullOptions{
				ReferenceName: plumbing.NewBranchReferenceName(g.Branch),
				Force:         true,
				SingleBranch:  true,
				Auth:          g.Auth,
			}
		}

		err = w.PullContext(context.Background(), pullOptions)
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return err
		}
	}

	file, err := g.fs.Open(g.Path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", g.Path, ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", g.Path, err)
	}
	defer func(file billy.File) {
		if err := file.Close(); err != nil {
			logrus.WithError(err).Debug("error closing file")
		}
	}(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", g.Path, err)
	}

	g.rawData = data
	return nil
}

// Store is unsupported; pushing config changes back through git is out of
// scope for this backend.
func (g *GitRepository) Store(data []byte) error {
	return fmt.Errorf("%s: %w", g.URL, ErrReadOnly)
}
