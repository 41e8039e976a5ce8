package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/domain"
	"github.com/composedeck/backend/internal/infrastructure/logger"
	"gopkg.in/yaml.v3"
)

var systemDisplayNames = map[string]string{
	"fnOS":      "fnOS",
	"QNAP":      "QNAP",
	"Synology":  "Synology DSM",
	"TrueNAS":   "TrueNAS",
	"UgreenNew": "UGREEN UGOS Pro",
	"Ugreen":    "UGREEN (legacy)",
	"ZSpace":    "ZSpace",
	"ZimaOS":    "ZimaOS",
}

type ManifestService struct {
	repo    ports.ManifestRepository
	systems []string
	logger  *logger.Logger
}

func NewManifestService(repo ports.ManifestRepository, systems []string, log *logger.Logger) *ManifestService {
	return &ManifestService{repo: repo, systems: systems, logger: log}
}

func (s *ManifestService) List(ctx context.Context) ([]domain.Manifest, error) {
	return s.repo.List()
}

// Read returns the file and whether it parses as YAML. A parse failure is
// reported in the result, not as an error.
func (s *ManifestService) Read(ctx context.Context, path string) (*domain.ManifestContent, error) {
	resolved, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.Read(resolved)
	if err != nil {
		return nil, s.mapFsError(resolved, err)
	}

	content := &domain.ManifestContent{FilePath: resolved, Content: string(b), Parsed: true}
	if err := validateCompose(b); err != nil {
		content.Parsed = false
		content.ParseError = err.Error()
	}
	return content, nil
}

// Save writes content after checking it is a YAML mapping.
func (s *ManifestService) Save(ctx context.Context, path, content string) error {
	resolved, err := s.resolve(path)
	if err != nil {
		return err
	}
	if !isComposeFileName(resolved) {
		return fmt.Errorf("%w: %s", ErrManifestInvalidName, filepath.Base(resolved))
	}
	if err := validateCompose([]byte(content)); err != nil {
		s.logger.Warnw("manifest_save_invalid", "file_path", resolved, "error", err)
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := s.repo.Write(resolved, []byte(content)); err != nil {
		return s.mapFsError(resolved, err)
	}
	s.logger.Infow("manifest_save_ok", "file_path", resolved)
	return nil
}

func (s *ManifestService) Delete(ctx context.Context, path string) error {
	resolved, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(resolved); err != nil {
		return s.mapFsError(resolved, err)
	}
	s.logger.Infow("manifest_delete_ok", "file_path", resolved)
	return nil
}

func (s *ManifestService) SystemTypes() []domain.SystemType {
	types := make([]domain.SystemType, 0, len(s.systems))
	for _, key := range s.systems {
		name, ok := systemDisplayNames[key]
		if !ok {
			name = key
		}
		types = append(types, domain.SystemType{Key: key, Name: name})
	}
	return types
}

func (s *ManifestService) resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", ErrManifestNotFound)
	}
	resolved, ok := s.repo.Normalize(path)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrManifestOutsideRoot, path)
	}
	return resolved, nil
}

func (s *ManifestService) mapFsError(path string, err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrManifestNotFound, path)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %s", ErrManifestOutsideRoot, path)
	default:
		s.logger.Errorw("manifest_io_failed", "file_path", path, "error", err)
		return err
	}
}

func validateCompose(b []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc == nil {
		return errors.New("document is empty")
	}
	return nil
}

func isComposeFileName(path string) bool {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	return (ext == ".yml" || ext == ".yaml") && len(base) > len(ext)
}
