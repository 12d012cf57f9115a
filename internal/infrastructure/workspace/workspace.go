// Package workspace owns the per-user storage areas backing the conversion
// pipeline: upload holds source documents, temp holds per-run page rasters,
// result holds finished Markdown artifacts. Processing status is derived by
// comparing the base names present in upload against result.
package workspace

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/avoronin/docmd/internal/core/domain"
)

const (
	uploadArea = "upload"
	tempArea   = "temp"
	resultArea = "result"
)

type Manager struct {
	root string
}

func New(root string) (*Manager, error) {
	if root == "" {
		root = "./data/uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "create workspace root", err)
	}
	return &Manager{root: root}, nil
}

func (m *Manager) userDir(userID string) string {
	return filepath.Join(m.root, userID)
}

func (m *Manager) areaDir(userID, area string) string {
	return filepath.Join(m.root, userID, area)
}

// EnsureAreas creates the three storage areas for the user. MkdirAll is a
// single create-if-absent operation, so concurrent first submissions for
// the same user cannot race into an error.
func (m *Manager) EnsureAreas(userID string) error {
	for _, area := range []string{uploadArea, tempArea, resultArea} {
		if err := os.MkdirAll(m.areaDir(userID, area), 0o755); err != nil {
			return domain.WrapError(domain.ErrStorage, "create workspace area", err)
		}
	}
	return nil
}

// SaveUpload stores a source document. A document sharing a base name with
// an existing upload replaces it: the old source and its result artifact
// are removed first, so a stale "complete" status is never reported for
// content that has since changed.
func (m *Manager) SaveUpload(userID, fileName string, body io.Reader) (string, error) {
	if err := m.EnsureAreas(userID); err != nil {
		return "", err
	}

	base := baseName(fileName)
	if err := m.removeMatching(m.areaDir(userID, uploadArea), base); err != nil {
		return "", err
	}
	if err := m.removeMatching(m.areaDir(userID, resultArea), base); err != nil {
		return "", err
	}

	path := m.UploadPath(userID, fileName)
	f, err := os.Create(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrStorage, "create upload file", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", domain.WrapError(domain.ErrStorage, "write upload file", err)
	}
	return path, nil
}

func (m *Manager) UploadPath(userID, fileName string) string {
	return filepath.Join(m.areaDir(userID, uploadArea), filepath.Base(fileName))
}

func (m *Manager) TempPath(userID, fileName string) string {
	return filepath.Join(m.areaDir(userID, tempArea), filepath.Base(fileName))
}

// Status compares the base names in upload against result. A missing
// workspace (or missing upload/result area) is NotStarted; any uploaded
// document without a result is InProgress; otherwise Complete. An existing
// workspace with an empty upload area is vacuously Complete.
func (m *Manager) Status(userID string) (domain.StatusCode, map[string]bool, error) {
	uploads, err := listBaseNames(m.areaDir(userID, uploadArea))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.StatusNotStarted, nil, nil
		}
		return domain.StatusNotStarted, nil, domain.WrapError(domain.ErrStorage, "list upload area", err)
	}
	results, err := listBaseNames(m.areaDir(userID, resultArea))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.StatusNotStarted, nil, nil
		}
		return domain.StatusNotStarted, nil, domain.WrapError(domain.ErrStorage, "list result area", err)
	}

	done := make(map[string]struct{}, len(results))
	for _, r := range results {
		done[r] = struct{}{}
	}

	documents := make(map[string]bool, len(uploads))
	code := domain.StatusComplete
	for _, u := range uploads {
		_, ok := done[u]
		documents[u] = ok
		if !ok {
			code = domain.StatusInProgress
		}
	}
	return code, documents, nil
}

func (m *Manager) WriteResult(userID, baseName, markdown string) error {
	if err := m.EnsureAreas(userID); err != nil {
		return err
	}
	path := filepath.Join(m.areaDir(userID, resultArea), baseName+".md")
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return domain.WrapError(domain.ErrStorage, "write result artifact", err)
	}
	return nil
}

func (m *Manager) ReadResult(userID, baseName string) (string, error) {
	path := filepath.Join(m.areaDir(userID, resultArea), baseName+".md")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.WrapError(domain.ErrNotFound, "read result artifact", err)
		}
		return "", domain.WrapError(domain.ErrStorage, "read result artifact", err)
	}
	return string(raw), nil
}

// PurgeTemp removes every file in the user's temp area. Runs after each
// conversion, success or failure, so stale rasters never leak into the
// next run.
func (m *Manager) PurgeTemp(userID string) error {
	dir := m.areaDir(userID, tempArea)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return domain.WrapError(domain.ErrStorage, "list temp area", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return domain.WrapError(domain.ErrStorage, "remove temp file", err)
		}
	}
	return nil
}

func (m *Manager) PurgeUser(userID string) error {
	if err := os.RemoveAll(m.userDir(userID)); err != nil {
		return domain.WrapError(domain.ErrStorage, "purge workspace", err)
	}
	return nil
}

// removeMatching deletes every file in dir whose extension-stripped name
// equals base.
func (m *Manager) removeMatching(dir, base string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return domain.WrapError(domain.ErrStorage, "list area", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if baseName(entry.Name()) == base {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				return domain.WrapError(domain.ErrStorage, "remove stale file", err)
			}
		}
	}
	return nil
}

func listBaseNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		out = append(out, baseName(entry.Name()))
	}
	return out, nil
}

func baseName(fileName string) string {
	name := filepath.Base(fileName)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
