// Package provision prepares the files a control-plane daemon needs on disk
// before it can be started, like its primary configuration file or a random
// seed file. Missing files are created from a packaged template or a
// generator function; existing files only get their mode and ownership
// re-asserted.
package provision

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"github.com/arloliu/go-wpactl/logger"
)

const defaultFileMode os.FileMode = 0o660

// FileSpec describes one file a daemon needs before it can start.
type FileSpec struct {
	// Path is the file the daemon expects.
	Path string

	// TemplatePath, when set, is copied to Path if Path does not exist.
	// It takes precedence over Generate.
	TemplatePath string

	// Generate, when set, produces the initial content of Path.
	Generate func() ([]byte, error)

	// Mode is applied to Path whether it existed or was just created.
	// Zero means 0660.
	Mode os.FileMode

	// Owner and Group change the file ownership when positive. Zero or
	// negative values leave the respective id unchanged.
	Owner int
	Group int

	// Required marks files whose provisioning failure must abort the
	// daemon start instead of being tolerated.
	Required bool
}

// EnsureFile makes sure the file described by spec exists with the requested
// mode and ownership.
//
// An existing file keeps its content; only mode and ownership are
// re-asserted. A missing file is created from TemplatePath or Generate, and
// a half-written file is removed again when creation fails partway.
func EnsureFile(ctx context.Context, spec FileSpec, log logger.Logger) error {
	if spec.Path == "" {
		return errors.New("file spec has no path")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if log == nil {
		log = logger.GetLogger()
	}

	mode := spec.Mode
	if mode == 0 {
		mode = defaultFileMode
	}

	if _, err := os.Stat(spec.Path); err == nil {
		if err := os.Chmod(spec.Path, mode); err != nil {
			return fmt.Errorf("chmod %s: %w", spec.Path, err)
		}

		return applyOwnership(spec)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", spec.Path, err)
	}

	content, err := initialContent(spec)
	if err != nil {
		return err
	}

	if err := os.WriteFile(spec.Path, content, mode); err != nil {
		return fmt.Errorf("write %s: %w", spec.Path, err)
	}

	// WriteFile's mode is subject to the umask, re-assert it.
	if err := os.Chmod(spec.Path, mode); err != nil {
		_ = os.Remove(spec.Path)
		return fmt.Errorf("chmod %s: %w", spec.Path, err)
	}

	if err := applyOwnership(spec); err != nil {
		_ = os.Remove(spec.Path)
		return err
	}

	log.Info("provisioned file", "path", spec.Path)

	return nil
}

func initialContent(spec FileSpec) ([]byte, error) {
	switch {
	case spec.TemplatePath != "":
		data, err := os.ReadFile(spec.TemplatePath)
		if err != nil {
			return nil, fmt.Errorf("read template for %s: %w", spec.Path, err)
		}

		return data, nil

	case spec.Generate != nil:
		data, err := spec.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", spec.Path, err)
		}

		return data, nil

	default:
		return nil, fmt.Errorf("file spec %s has neither template nor generator", spec.Path)
	}
}

func applyOwnership(spec FileSpec) error {
	if spec.Owner <= 0 && spec.Group <= 0 {
		return nil
	}

	owner, group := spec.Owner, spec.Group
	if owner <= 0 {
		owner = -1
	}
	if group <= 0 {
		group = -1
	}

	if err := os.Chown(spec.Path, owner, group); err != nil {
		return fmt.Errorf("chown %s: %w", spec.Path, err)
	}

	return nil
}

// Provisioner prepares everything a daemon needs on disk before it starts.
type Provisioner interface {
	// Provision ensures all managed resources exist, creating missing ones.
	Provision(ctx context.Context) error
}

// Files is a Provisioner that ensures a fixed list of file specs.
//
// A failing Required spec aborts provisioning with its error. A failing
// optional spec is logged at Warn and skipped, so a daemon can come up
// without its secondary files.
type Files struct {
	specs  []FileSpec
	logger logger.Logger
}

var _ Provisioner = (*Files)(nil)

// NewFiles creates a Files provisioner over the given specs.
func NewFiles(specs []FileSpec, l logger.Logger) *Files {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Files{specs: specs, logger: l}
}

// Provision ensures every file spec in order.
func (f *Files) Provision(ctx context.Context) error {
	for _, spec := range f.specs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := EnsureFile(ctx, spec, f.logger); err != nil {
			if spec.Required {
				return err
			}
			f.logger.Warn("optional file not provisioned", "path", spec.Path, "error", err)
		}
	}

	return nil
}

const seedSize = 21

// SeedSpec describes a random-seed file for daemons that mix disk entropy
// into their RNG at startup. The seed is drawn from crypto/rand when the
// file is first created.
func SeedSpec(path string) FileSpec {
	return FileSpec{
		Path: path,
		Generate: func() ([]byte, error) {
			seed := make([]byte, seedSize)
			if _, err := rand.Read(seed); err != nil {
				return nil, err
			}

			return seed, nil
		},
		Mode: 0o600,
	}
}
