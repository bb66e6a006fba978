package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed champions.yaml
var defaultCatalog []byte

var ErrEmptyCatalog = errors.New("catalog has no champions")
var ErrDuplicateID = errors.New("duplicate champion id")
var ErrInvalidEntry = errors.New("invalid champion entry")

type Champion struct {
	ID    int    `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Image string `json:"image" yaml:"image"`
}

// Catalog is read-only after construction and safe to share between goroutines.
type Catalog struct {
	champions []Champion
	byID      map[int]int // id -> index into champions
}

func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a YAML catalog from path. An empty path yields the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var entries []Champion
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(entries)
}

func New(entries []Champion) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		champions: make([]Champion, 0, len(entries)),
		byID:      make(map[int]int, len(entries)),
	}
	for _, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		if e.ID <= 0 || e.Name == "" {
			return nil, fmt.Errorf("%w: %+v", ErrInvalidEntry, e)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, e.ID)
		}
		c.byID[e.ID] = len(c.champions)
		c.champions = append(c.champions, e)
	}
	return c, nil
}

func (c *Catalog) Len() int { return len(c.champions) }

func (c *Catalog) Lookup(id int) (Champion, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Champion{}, false
	}
	return c.champions[i], true
}

// Snapshot returns a copy of the ordered champion list. Each room keeps its own.
func (c *Catalog) Snapshot() []Champion {
	return slices.Clone(c.champions)
}
