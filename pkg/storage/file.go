package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/takutakahashi/authclient/pkg/utils"
)

// credentialFileMode keeps the token file readable by its owner only
const credentialFileMode = 0600

// fileContents is the on-disk layout of FileStorage
type fileContents struct {
	Profiles map[string]Record `json:"profiles"`
}

// FileStorage keeps every profile in a single JSON file.
// The file is rewritten atomically on each change.
type FileStorage struct {
	filePath string
	mu       sync.Mutex
}

// NewFileStorage creates a file storage instance rooted at filePath
func NewFileStorage(filePath string) (*FileStorage, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}
	return &FileStorage{filePath: filePath}, nil
}

// Path returns the credential file path
func (fs *FileStorage) Path() string {
	return fs.filePath
}

// read must be called with the mutex held. A missing or corrupt file reads as empty.
func (fs *FileStorage) read() (*fileContents, error) {
	contents := &fileContents{}
	ok, err := utils.ReadJSONFileOrDefault(fs.filePath, contents)
	if err != nil {
		return nil, err
	}
	if !ok {
		logrus.WithField("path", fs.filePath).Debug("credential file missing or unreadable, starting empty")
	}
	if contents.Profiles == nil {
		contents.Profiles = make(map[string]Record)
	}
	return contents, nil
}

func (fs *FileStorage) write(contents *fileContents) error {
	if err := utils.WriteJSONFile(fs.filePath, contents, credentialFileMode); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

// Save stores the record and syncs the file
func (fs *FileStorage) Save(ctx context.Context, profile string, record *Record) error {
	if err := validate(profile, record); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	contents, err := fs.read()
	if err != nil {
		return err
	}
	contents.Profiles[profile] = *record
	return fs.write(contents)
}

// Load retrieves the record for profile
func (fs *FileStorage) Load(ctx context.Context, profile string) (*Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	contents, err := fs.read()
	if err != nil {
		return nil, err
	}
	record, exists := contents.Profiles[profile]
	if !exists {
		return nil, ErrNotFound
	}
	return &record, nil
}

// Delete removes the record for profile and syncs the file
func (fs *FileStorage) Delete(ctx context.Context, profile string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	contents, err := fs.read()
	if err != nil {
		return err
	}
	if _, exists := contents.Profiles[profile]; !exists {
		return nil
	}
	delete(contents.Profiles, profile)
	return fs.write(contents)
}

// Profiles lists the stored profiles in sorted order
func (fs *FileStorage) Profiles(ctx context.Context) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	contents, err := fs.read()
	if err != nil {
		return nil, err
	}
	profiles := make([]string, 0, len(contents.Profiles))
	for profile := range contents.Profiles {
		profiles = append(profiles, profile)
	}
	sort.Strings(profiles)
	return profiles, nil
}

// Close is a no-op; every change is already on disk
func (fs *FileStorage) Close() error {
	return nil
}
