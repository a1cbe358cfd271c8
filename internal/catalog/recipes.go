package catalog

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/joestump/sitepatch/internal/expand"
)

// ErrUnknownRecipe is returned when a recipe name is not in the catalog.
var ErrUnknownRecipe = errors.New("unknown recipe")

// Recipe derives one page per department from a template page.
type Recipe struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Template    string        `yaml:"template"`
	Output      string        `yaml:"output"`
	Departments []string      `yaml:"departments"`
	Pairs       []expand.Pair `yaml:"pairs"`
}

// Jobs expands the named recipes for the named departments into generator
// jobs. Empty name lists select everything; a department the recipe does not
// list is left out of that recipe.
func (c *Catalog) Jobs(recipes, departments []string) ([]expand.Job, error) {
	for _, name := range recipes {
		if !slices.ContainsFunc(c.Recipes, func(r Recipe) bool { return r.Name == name }) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRecipe, name)
		}
	}
	for _, code := range departments {
		if _, ok := c.Department(code); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDepartment, code)
		}
	}

	var jobs []expand.Job
	for _, r := range c.Recipes {
		if len(recipes) > 0 && !slices.Contains(recipes, r.Name) {
			continue
		}
		for _, code := range r.Departments {
			if len(departments) > 0 && !slices.Contains(departments, code) {
				continue
			}
			d, _ := c.Department(code)
			vars := d.Vars()
			keys := slices.Sorted(maps.Keys(vars))
			placeholders := expand.Vars(keys, vars)

			pairs := make([]expand.Pair, len(r.Pairs))
			for i, p := range r.Pairs {
				pairs[i] = expand.Pair{
					Find:    expand.Expand(p.Find, placeholders),
					Replace: expand.Expand(p.Replace, placeholders),
				}
			}
			jobs = append(jobs, expand.Job{
				Name:       r.Name,
				Department: code,
				Template:   r.Template,
				Output:     expand.Expand(r.Output, placeholders),
				Pairs:      pairs,
			})
		}
	}
	return jobs, nil
}
