package pool

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"ticketredemption/internal/types"
)

// RawFile is the poolWeights section of the rarity file:
//
//	poolWeights:
//	  default: {equipment: 1, hero: 1, spell: 1, tower: 1}
//	  legendary: {hero: 2, tower: 2}
type RawFile struct {
	PoolWeights map[string]map[string]uint32 `yaml:"poolWeights"`
}

// Load reads pool weights from path. A missing file or section yields
// DefaultConfig.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("read pool weights: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var raw RawFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return Config{}, types.ErrInvalidRequest.Wrapf("decode yaml: %v", err)
	}
	return Build(raw)
}

func Build(raw RawFile) (Config, error) {
	cfg := DefaultConfig()
	var errs []string

	sections := make([]string, 0, len(raw.PoolWeights))
	for k := range raw.PoolWeights {
		sections = append(sections, k)
	}
	sort.Strings(sections)

	for _, section := range sections {
		w := Weights{}
		for name, v := range raw.PoolWeights[section] {
			p, err := types.ParsePool(name)
			if err != nil {
				errs = append(errs, fmt.Sprintf("poolWeights.%s: unknown pool %q", section, name))
				continue
			}
			w[p] = v
		}
		if w.Total() == 0 {
			errs = append(errs, fmt.Sprintf("poolWeights.%s must have a positive total", section))
			continue
		}
		if section == "default" {
			cfg.Default = w
			continue
		}
		r, err := types.ParseRarity(section)
		if err != nil {
			errs = append(errs, fmt.Sprintf("poolWeights.%s is neither default nor a rarity", section))
			continue
		}
		if cfg.ByRarity == nil {
			cfg.ByRarity = map[types.Rarity]Weights{}
		}
		cfg.ByRarity[r] = w
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return Config{}, types.ErrInvalidRequest.Wrapf("pool weights: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}
