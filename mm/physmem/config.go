package physmem

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/pagekit/mm/buddy"
)

// RegionConfig describes one physical memory region.
type RegionConfig struct {
	// Name labels the region in reports. Default: "region<N>".
	Name string `yaml:"name" json:"name"`

	// Pages is the number of usable pages in the region.
	Pages int `yaml:"pages" json:"pages"`
}

// Config describes the memory a Machine boots with.
type Config struct {
	Regions []RegionConfig `yaml:"regions" json:"regions"`

	// AlignPages is the alignment, in pages, of each region's usable start
	// address. Zero means buddy.MaxChunkPages, which makes address buddies
	// and index buddies coincide.
	AlignPages int `yaml:"align_pages" json:"align_pages"`
}

// DefaultConfig is a single region large enough to hold one chunk of every
// order at once.
var DefaultConfig = Config{
	Regions: []RegionConfig{
		{Name: "main", Pages: 2 * buddy.MaxChunkPages},
	},
}

// LoadConfig reads a YAML machine description.
//
//	regions:
//	  - name: low
//	    pages: 4096
//	  - name: high
//	    pages: 16384
//	align_pages: 8192
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("physmem: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrBadConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config against the allocator's limits and fills in
// region names.
func (c *Config) Validate() error {
	if len(c.Regions) == 0 {
		return fmt.Errorf("%w: no regions", ErrBadConfig)
	}
	if len(c.Regions) > buddy.MaxPools {
		return fmt.Errorf("%w: %d regions, at most %d", ErrBadConfig, len(c.Regions), buddy.MaxPools)
	}
	if c.AlignPages < 0 || (c.AlignPages != 0 && c.AlignPages&(c.AlignPages-1) != 0) {
		return fmt.Errorf("%w: align_pages %d is not a power of two", ErrBadConfig, c.AlignPages)
	}
	seen := make(map[string]bool, len(c.Regions))
	for i := range c.Regions {
		r := &c.Regions[i]
		if r.Name == "" {
			r.Name = fmt.Sprintf("region%d", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate region name %q", ErrBadConfig, r.Name)
		}
		seen[r.Name] = true
		if r.Pages <= 0 || r.Pages > math.MaxInt32 {
			return fmt.Errorf("%w: region %q has %d pages", ErrBadConfig, r.Name, r.Pages)
		}
	}
	return nil
}

func (c *Config) alignBytes() int {
	if c.AlignPages == 0 {
		return buddy.MaxChunkSize
	}
	return c.AlignPages * buddy.PageSize
}
