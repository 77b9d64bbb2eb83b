// Package userdata implements per-user file storage on the local filesystem.
// Every enrolled identity owns a directory subtree under the configured base
// directory; folders are one level deep and files live inside folders.
package userdata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a folder or file does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidName is returned for names that could escape the user's subtree.
var ErrInvalidName = errors.New("invalid name")

// Store manages per-user folders and files under a base directory.
type Store struct {
	baseDir string
}

// FolderInfo describes one folder in a user's subtree.
type FolderInfo struct {
	Name      string    `json:"name"`
	FileCount int       `json:"file_count"`
	CreatedAt time.Time `json:"created_at"`
}

// FileInfo describes one stored file.
type FileInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// NewStore creates a store rooted at baseDir, creating it if needed.
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// ValidateName rejects names that are empty, hidden, contain path
// separators, or resolve outside their parent. Every identity, folder and
// file name passes through here before touching the filesystem.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) > 255 {
		return fmt.Errorf("%w: too long", ErrInvalidName)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if name != filepath.Base(filepath.Clean(name)) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// userDir returns the directory for an identity, validating it first.
func (s *Store) userDir(identity string) (string, error) {
	if err := ValidateName(identity); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, identity), nil
}

// folderDir returns the directory for a folder, validating both names.
func (s *Store) folderDir(identity, folder string) (string, error) {
	dir, err := s.userDir(identity)
	if err != nil {
		return "", err
	}
	if err := ValidateName(folder); err != nil {
		return "", err
	}
	return filepath.Join(dir, folder), nil
}

// CreateFolder creates a folder for the identity. Creating a folder that
// already exists is not an error.
func (s *Store) CreateFolder(identity, folder string) error {
	dir, err := s.folderDir(identity, folder)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

// ListFolders returns the identity's folders sorted by name. An identity
// that never stored anything has no directory yet; that is an empty list,
// not an error.
func (s *Store) ListFolders(identity string) ([]FolderInfo, error) {
	dir, err := s.userDir(identity)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []FolderInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user directory: %w", err)
	}

	folders := make([]FolderInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat folder %s: %w", e.Name(), err)
		}
		count, err := s.countFiles(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		folders = append(folders, FolderInfo{
			Name:      e.Name(),
			FileCount: count,
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

func (s *Store) countFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read folder: %w", err)
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}
	return count, nil
}

// DeleteFolder removes a folder and everything in it.
func (s *Store) DeleteFolder(identity, folder string) error {
	dir, err := s.folderDir(identity, folder)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("folder %q: %w", folder, ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	return nil
}

// ListFiles returns the files in a folder sorted by name.
func (s *Store) ListFiles(identity, folder string) ([]FileInfo, error) {
	dir, err := s.folderDir(identity, folder)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("folder %q: %w", folder, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat file %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name:       e.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// SaveFile streams content into the folder under the given name. The write
// goes to a uniquely named temp file first and moves into place with a
// rename, so a concurrent download never sees a half-written file.
func (s *Store) SaveFile(identity, folder, name string, content io.Reader) (*FileInfo, error) {
	dir, err := s.folderDir(identity, folder)
	if err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("folder %q: %w", folder, ErrNotFound)
	}

	tmpPath := filepath.Join(dir, ".upload-"+uuid.NewString())
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	size, err := io.Copy(tmp, content)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("write file: %w", err)
	}

	finalPath := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("move file into place: %w", err)
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat saved file: %w", err)
	}
	return &FileInfo{Name: name, Size: size, ModifiedAt: info.ModTime()}, nil
}

// OpenFile opens a stored file for reading. The caller closes it.
func (s *Store) OpenFile(identity, folder, name string) (*os.File, *FileInfo, error) {
	dir, err := s.folderDir(identity, folder)
	if err != nil {
		return nil, nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, nil, err
	}

	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("file %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat file: %w", err)
	}
	return f, &FileInfo{Name: name, Size: info.Size(), ModifiedAt: info.ModTime()}, nil
}

// DeleteFile removes one file from a folder.
func (s *Store) DeleteFile(identity, folder, name string) error {
	dir, err := s.folderDir(identity, folder)
	if err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}

	err = os.Remove(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// DeleteAll removes the identity's whole subtree. Used when a user account
// is deleted.
func (s *Store) DeleteAll(identity string) error {
	dir, err := s.userDir(identity)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete user data: %w", err)
	}
	return nil
}
