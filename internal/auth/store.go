// internal/auth/store.go
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name entries are stored under
	KeyringService = "auto-scraper"
	// FallbackDir holds credential files when no keyring is reachable
	FallbackDir = ".auto-scraper/credentials"

	manifestKey = "_manifest"
)

// ErrNotStored is returned when a marketplace has no stored entry
var ErrNotStored = errors.New("no stored credentials")

// Credentials is an identity and secret pair for one marketplace
type Credentials struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

// Valid reports whether both halves are set
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.Identity) != "" && c.Secret != ""
}

// Store persists credentials in the OS keyring, or in 0600 files under dir
// when dir is set.
type Store struct {
	dir string
}

// NewStore picks keyring storage when it is usable and files otherwise.
// CI and Codespaces environments always use files.
func NewStore() (*Store, error) {
	if os.Getenv("CODESPACES") == "" && os.Getenv("CI") == "" && keyringUsable() {
		return &Store{}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return NewFileStore(filepath.Join(home, FallbackDir)), nil
}

// NewFileStore stores credentials as files under dir
func NewFileStore(dir string) *Store {
	return &Store{dir: dir}
}

func keyringUsable() bool {
	const probe = "_probe_"
	if err := keyring.Set(KeyringService, probe, "1"); err != nil {
		return false
	}
	keyring.Delete(KeyringService, probe)
	return true
}

// Backend names the storage in use
func (s *Store) Backend() string {
	if s.dir != "" {
		return "file:" + s.dir
	}
	return "keyring"
}

// Save stores c for marketplace, replacing any previous entry
func (s *Store) Save(marketplace string, c Credentials) error {
	if marketplace == "" {
		return fmt.Errorf("marketplace name cannot be empty")
	}
	if !c.Valid() {
		return fmt.Errorf("identity and secret are both required")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0700); err != nil {
			return fmt.Errorf("failed to create credentials directory: %w", err)
		}
		if err := os.WriteFile(s.path(marketplace), data, 0600); err != nil {
			return fmt.Errorf("failed to save credentials file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(KeyringService, marketplace, string(data)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return s.updateManifest(marketplace, true)
}

// Load returns the stored credentials, or ErrNotStored
func (s *Store) Load(marketplace string) (Credentials, error) {
	var c Credentials
	var data []byte

	if s.dir != "" {
		b, err := os.ReadFile(s.path(marketplace))
		if os.IsNotExist(err) {
			return c, ErrNotStored
		}
		if err != nil {
			return c, fmt.Errorf("failed to read credentials file: %w", err)
		}
		data = b
	} else {
		v, err := keyring.Get(KeyringService, marketplace)
		if errors.Is(err, keyring.ErrNotFound) {
			return c, ErrNotStored
		}
		if err != nil {
			return c, fmt.Errorf("failed to load from keyring: %w", err)
		}
		data = []byte(v)
	}

	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to deserialize credentials: %w", err)
	}
	return c, nil
}

// Delete removes the entry for marketplace. Deleting a missing entry is
// not an error.
func (s *Store) Delete(marketplace string) error {
	if s.dir != "" {
		if err := os.Remove(s.path(marketplace)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete credentials file: %w", err)
		}
		return nil
	}

	if err := keyring.Delete(KeyringService, marketplace); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return s.updateManifest(marketplace, false)
}

// List returns the marketplaces with stored credentials, sorted
func (s *Store) List() ([]string, error) {
	var names []string

	if s.dir != "" {
		entries, err := os.ReadDir(s.dir)
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
				names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
			}
		}
	} else {
		data, err := keyring.Get(KeyringService, manifestKey)
		if err != nil {
			return []string{}, nil
		}
		if err := json.Unmarshal([]byte(data), &names); err != nil {
			return nil, fmt.Errorf("failed to deserialize manifest: %w", err)
		}
	}

	sort.Strings(names)
	return names, nil
}

// updateManifest keeps the keyring index of stored names, which the
// keyring itself cannot enumerate.
func (s *Store) updateManifest(marketplace string, add bool) error {
	names, _ := s.List()
	kept := names[:0]
	for _, n := range names {
		if n != marketplace {
			kept = append(kept, n)
		}
	}
	if add {
		kept = append(kept, marketplace)
	}

	data, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return keyring.Set(KeyringService, manifestKey, string(data))
}

func (s *Store) path(marketplace string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(marketplace)
	return filepath.Join(s.dir, name+".json")
}
