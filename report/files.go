package report

// This file contains the per-test artifact layout used by report data,
// XML results and raw logs.

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileType describes one kind of per-test artifact.
type FileType struct {
	Dir       string
	Extension string
}

var (
	FileTypeTest       = FileType{Dir: "tests", Extension: "xml"}
	FileTypeRawLog     = FileType{Dir: "logcat", Extension: "log"}
	FileTypeTable      = FileType{Dir: "tables", Extension: "json"}
	FileTypeText       = FileType{Dir: "text", Extension: "txt"}
	FileTypeHTML       = FileType{Dir: "html", Extension: "html"}
	FileTypeScreenshot = FileType{Dir: "screenshot", Extension: "png"}
	FileTypeAnimation  = FileType{Dir: "animation", Extension: "gif"}
	FileTypeVideo      = FileType{Dir: "video", Extension: "mp4"}
	FileTypeCoverage   = FileType{Dir: "coverage", Extension: "ec"}
	FileTypeProfile    = FileType{Dir: "profiles", Extension: "pb.gz"}
)

// FileManager maps artifacts of one test case on one device to paths below
// the run output directory.
type FileManager struct {
	root   string
	pool   string
	serial string
	name   string
}

// NewFileManager creates a file manager for a single test case.
func NewFileManager(root, pool, serial, className, testName string) *FileManager {
	return &FileManager{
		root:   root,
		pool:   safeName(pool),
		serial: safeName(serial),
		name:   safeName(className + "#" + testName),
	}
}

// RelativePath returns the artifact path relative to the output root.
func (m *FileManager) RelativePath(fileType FileType, suffix string) string {
	return filepath.Join(fileType.Dir, m.pool, m.serial, m.name+safeName(suffix)+"."+fileType.Extension)
}

// Path returns the absolute (root joined) artifact path.
func (m *FileManager) Path(fileType FileType, suffix string) string {
	return filepath.Join(m.root, m.RelativePath(fileType, suffix))
}

// Create makes sure the parent directory exists and returns the artifact path.
func (m *FileManager) Create(fileType FileType, suffix string) (string, error) {
	path := m.Path(fileType, suffix)
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return "", err
	}
	return path, nil
}

// EnsureDir creates dir and its parents if needed.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return nil
}

// File returns a handle to an artifact of this test case.
func (m *FileManager) File(fileType FileType, suffix string) *TestCaseFile {
	return &TestCaseFile{manager: m, Type: fileType, Suffix: suffix}
}

// TestCaseFile is a lazily accessed artifact of a test case. Reading it
// after the run's output directory was removed fails.
type TestCaseFile struct {
	manager *FileManager
	Type    FileType
	Suffix  string
}

func (f *TestCaseFile) RelativePath() string {
	return f.manager.RelativePath(f.Type, f.Suffix)
}

func (f *TestCaseFile) Path() string {
	return f.manager.Path(f.Type, f.Suffix)
}

// Create prepares the artifact location for writing and returns its path.
func (f *TestCaseFile) Create() (string, error) {
	return f.manager.Create(f.Type, f.Suffix)
}

// ReadText reads the artifact as UTF-8 text.
func (f *TestCaseFile) ReadText() (string, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", f.RelativePath(), err)
	}
	return string(data), nil
}

// safeName keeps names readable while making them usable as a single path
// element. Names that had to be rewritten get a hash of the original
// appended so distinct test names never collide.
func safeName(name string) string {
	var sb strings.Builder
	changed := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-', r == '#':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
			changed = true
		}
	}
	if !changed && name != "." && name != ".." {
		return name
	}
	hashBytes := sha256.Sum256([]byte(name))
	hash := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(hashBytes[:]))
	return sb.String() + "-" + hash[:10]
}
