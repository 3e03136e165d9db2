// Package catalog loads the category -> group -> command file the overlay
// offers and answers read-only queries over it.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cmdoverlay/model"
	"cmdoverlay/runner"

	"gopkg.in/yaml.v3"
)

// Load reads a catalog from path. A missing file is an empty catalog.
// Files ending in .yaml or .yml are YAML, everything else is JSON.
func Load(path string) (model.Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return model.Catalog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes catalog data; ext selects the format as in Load.
func Parse(data []byte, ext string) (model.Catalog, error) {
	var cat model.Catalog
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("parse yaml catalog: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("parse json catalog: %w", err)
		}
	}
	if cat == nil {
		cat = model.Catalog{}
	}
	return cat, nil
}

// Categories returns category names in sorted order.
func Categories(cat model.Catalog) []string {
	names := make([]string, 0, len(cat))
	for name := range cat {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands flattens one category: groups in sorted order, commands in file order.
func Commands(cat model.Catalog, category string) []model.Command {
	groups := cat[category]
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []model.Command
	for _, g := range names {
		out = append(out, groups[g]...)
	}
	return out
}

// ApplyFavorites sets IsStarred on every command whose template is in starred.
func ApplyFavorites(cat model.Catalog, starred map[string]bool) {
	for _, groups := range cat {
		for _, cmds := range groups {
			for i := range cmds {
				cmds[i].IsStarred = starred[cmds[i].Template]
			}
		}
	}
}

// SetStarred updates every command with the given template.
func SetStarred(cat model.Catalog, template string, starred bool) {
	for _, groups := range cat {
		for _, cmds := range groups {
			for i := range cmds {
				if cmds[i].Template == template {
					cmds[i].IsStarred = starred
				}
			}
		}
	}
}

// Problem is a template token that will be sent as literal text.
type Problem struct {
	Category string
	Group    string
	Label    string
	Token    string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s/%s %q: [%s] has no param", p.Category, p.Group, p.Label, p.Token)
}

// Check lists template tokens with no matching param.
func Check(cat model.Catalog) []Problem {
	var problems []Problem
	for _, category := range Categories(cat) {
		groups := cat[category]
		gnames := make([]string, 0, len(groups))
		for g := range groups {
			gnames = append(gnames, g)
		}
		sort.Strings(gnames)
		for _, g := range gnames {
			for _, c := range groups[g] {
				for _, tok := range runner.Unresolved(c.Template, c.Params) {
					problems = append(problems, Problem{Category: category, Group: g, Label: c.Label, Token: tok})
				}
			}
		}
	}
	return problems
}
