package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/carbocation/pfx"
)

// ErrDefaultNotPersisted means the store had no usable panel and could not
// write the default one either, so there are no rules at all.
var ErrDefaultNotPersisted = errors.New("could not persist the default panel")

// ErrInvalidName is returned for panel names that cannot be used as a file
// name in the store.
var ErrInvalidName = errors.New("not a usable panel name")

const documentSuffix = ".json"

// Store keeps one JSON document per panel in Dir. Every call is a
// self-contained read or write; the store holds no lock between calls.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.Dir, name+documentSuffix), nil
}

// Load reads the named panel. A missing or unreadable document is replaced by
// DefaultPanel(name), which is written back before it is returned; an
// unreadable document is first moved aside with a ".corrupt" suffix. The only
// error Load returns for a valid name is ErrDefaultNotPersisted.
func (s *Store) Load(name string) (*Panel, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	p, err := readPanel(path)
	if err == nil {
		if p.Name == "" {
			p.Name = name
		}
		return p, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		log.Printf("Panel %s at %s is unusable (%v); substituting the default panel\n", name, path, err)
		aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		if rerr := os.Rename(path, aside); rerr != nil {
			log.Printf("Could not move %s aside: %v\n", path, rerr)
		}
	} else {
		log.Printf("No panel named %s in %s; creating the default panel\n", name, s.Dir)
	}

	def := DefaultPanel(name)
	if err := s.Save(def); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDefaultNotPersisted, name, err)
	}

	return def, nil
}

func readPanel(path string) (*Panel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	p := &Panel{}
	if err := json.Unmarshal(b, p); err != nil {
		if e, ok := err.(*json.SyntaxError); ok {
			return nil, fmt.Errorf("syntax error at byte offset %d: %w", e.Offset, err)
		}
		return nil, err
	}

	return p, nil
}

// Save stamps LastUpdated and writes the panel atomically: the document is
// written to a temporary file in the same directory and renamed over the old
// one.
func (s *Store) Save(p *Panel) error {
	path, err := s.path(p.Name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return pfx.Err(err)
	}

	p.LastUpdated = Timestamp{time.Now().UTC().Truncate(time.Second)}

	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return pfx.Err(err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+p.Name+"-*.tmp")
	if err != nil {
		return pfx.Err(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return pfx.Err(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return pfx.Err(err)
	}
	if err := tmp.Close(); err != nil {
		return pfx.Err(err)
	}

	return pfx.Err(os.Rename(tmp.Name(), path))
}

// ListChannels returns the channel definitions of the named panel, loading (and
// if necessary creating) it the same way Load does.
func (s *Store) ListChannels(name string) ([]Channel, error) {
	p, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	return p.Channels, nil
}

// Names lists the panels present in the store, sorted.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, pfx.Err(err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), documentSuffix) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), documentSuffix))
	}
	sort.Strings(out)

	return out, nil
}
