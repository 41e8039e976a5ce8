package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/domain"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"github.com/spf13/afero"
)

// ManifestRepository stores compose files in a directory tree rooted at the
// data dir: one subdirectory per NAS system plus "local" for uploads.
type ManifestRepository struct {
	fs     afero.Fs
	root   string
	logger *logger.Logger
}

var _ ports.ManifestRepository = (*ManifestRepository)(nil)

// NewManifestRepository roots the repository at dataDir on the host
// filesystem.
func NewManifestRepository(dataDir string, log *logger.Logger) (*ManifestRepository, error) {
	root, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("manifests: resolve data dir: %w", err)
	}
	return NewManifestRepositoryFs(afero.NewOsFs(), root, log), nil
}

// NewManifestRepositoryFs roots the repository at an absolute path on fs.
func NewManifestRepositoryFs(fs afero.Fs, root string, log *logger.Logger) *ManifestRepository {
	return &ManifestRepository{fs: fs, root: filepath.Clean(root), logger: log}
}

// EnsureDirs creates the data dir, the local dir and one dir per system.
func (r *ManifestRepository) EnsureDirs(systems []string) error {
	for _, system := range append([]string{domain.SystemLocal}, systems...) {
		dir := r.SystemDir(system)
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("manifests: create %s: %w", dir, err)
		}
	}
	r.logger.Infow("manifest_dirs_ready", "root", r.root, "systems", len(systems))
	return nil
}

func (r *ManifestRepository) Root() string { return r.root }

func (r *ManifestRepository) SystemDir(system string) string {
	return filepath.Join(r.root, system)
}

func (r *ManifestRepository) Normalize(path string) (string, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", false
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.root, path)
	}
	path = filepath.Clean(path)

	if !within(r.root, path) {
		return "", false
	}
	// On the host filesystem a symlink under the root may point elsewhere.
	if _, onDisk := r.fs.(*afero.OsFs); onDisk && !within(evalExisting(r.root), evalExisting(path)) {
		return "", false
	}
	return path, true
}

// within reports whether path lies strictly below root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// evalExisting resolves symlinks in the longest existing prefix of path and
// appends the parts that do not exist yet.
func evalExisting(path string) string {
	rest := ""
	for p := path; ; {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			return filepath.Join(resolved, rest)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return path
		}
		rest = filepath.Join(filepath.Base(p), rest)
		p = parent
	}
}

func (r *ManifestRepository) Exists(path string) bool {
	resolved, ok := r.Normalize(path)
	if !ok {
		return false
	}
	info, err := r.fs.Stat(resolved)
	return err == nil && !info.IsDir()
}

// List walks the tree for .yml and .yaml files, newest first.
func (r *ManifestRepository) List() ([]domain.Manifest, error) {
	manifests := []domain.Manifest{}
	err := afero.Walk(r.fs, r.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			r.logger.Warnw("manifest_list_entry_failed", "path", path, "error", err)
			return nil
		}
		if info.IsDir() || !isManifestName(info.Name()) {
			return nil
		}
		manifests = append(manifests, domain.Manifest{
			FileName:   info.Name(),
			FilePath:   path,
			SystemName: r.systemOf(path),
			Size:       info.Size(),
			ModTime:    info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("manifests: walk %s: %w", r.root, err)
	}

	sort.SliceStable(manifests, func(i, j int) bool {
		return manifests[i].ModTime.After(manifests[j].ModTime)
	})
	return manifests, nil
}

func (r *ManifestRepository) systemOf(path string) string {
	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		return domain.SystemLocal
	}
	dir := filepath.Dir(rel)
	if dir == "." || strings.HasPrefix(rel, domain.SystemLocal+string(filepath.Separator)) {
		return domain.SystemLocal
	}
	return filepath.Base(dir)
}

func (r *ManifestRepository) Read(path string) ([]byte, error) {
	resolved, ok := r.Normalize(path)
	if !ok {
		return nil, fmt.Errorf("manifests: %s: %w", path, os.ErrPermission)
	}
	return afero.ReadFile(r.fs, resolved)
}

// Write creates missing parent directories.
func (r *ManifestRepository) Write(path string, content []byte) error {
	resolved, ok := r.Normalize(path)
	if !ok {
		return fmt.Errorf("manifests: %s: %w", path, os.ErrPermission)
	}
	if err := r.fs.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return err
	}
	if err := afero.WriteFile(r.fs, resolved, content, 0o644); err != nil {
		r.logger.Errorw("manifest_write_failed", "file_path", resolved, "error", err)
		return err
	}
	r.logger.Infow("manifest_write_ok", "file_path", resolved, "size", len(content))
	return nil
}

func (r *ManifestRepository) Delete(path string) error {
	resolved, ok := r.Normalize(path)
	if !ok {
		return fmt.Errorf("manifests: %s: %w", path, os.ErrPermission)
	}
	info, err := r.fs.Stat(resolved)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("manifests: %s is a directory: %w", resolved, os.ErrInvalid)
	}
	if err := r.fs.Remove(resolved); err != nil {
		r.logger.Errorw("manifest_delete_failed", "file_path", resolved, "error", err)
		return err
	}
	r.logger.Infow("manifest_delete_ok", "file_path", resolved)
	return nil
}

func isManifestName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yml" || ext == ".yaml"
}
