// Package catalog loads product reference data from YAML.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/camelcase"
	"gopkg.in/yaml.v3"

	"github.com/pourline/pourline/internal/domain"
)

type fileFormat struct {
	Products []productEntry `yaml:"products"`
}

// productEntry is one product as written in catalog.yaml. The dispenser flag
// may appear under any of its legacy names.
type productEntry struct {
	ID                    int64    `yaml:"id"`
	Key                   string   `yaml:"key"`
	Name                  string   `yaml:"name"`
	DisplayName           string   `yaml:"display_name"`
	DispenserControlled   *bool    `yaml:"dispenser_controlled"`
	IsDistributeurBoisson *bool    `yaml:"is_distributeur_boisson"`
	NeedsDistributor      *bool    `yaml:"needs_distributor"`
	DistributeurBoisson   *bool    `yaml:"distributeur_boisson"`
	Composite             *bool    `yaml:"composite"`
	Combo                 *bool    `yaml:"combo"`
	PLUCode               string   `yaml:"plu_code"`
	Ingredients           []string `yaml:"ingredients"`
}

// YAMLLoader implements domain.CatalogLoader.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load reads the catalog file at path.
func (l *YAMLLoader) Load(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse builds a catalog from YAML. Ingredients name other products by key
// and are resolved after every product is known.
func Parse(data []byte) (*domain.Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	products := make([]*domain.Product, 0, len(f.Products))
	byKey := make(map[string]*domain.Product, len(f.Products))
	for i, e := range f.Products {
		if e.ID <= 0 {
			return nil, fmt.Errorf("product #%d: id must be positive", i+1)
		}
		p := &domain.Product{
			ID:          e.ID,
			Key:         e.Key,
			Name:        e.Name,
			DisplayName: e.DisplayName,
			DispenserControlled: domain.AnyFlagSet(
				e.DispenserControlled, e.IsDistributeurBoisson, e.NeedsDistributor, e.DistributeurBoisson),
			Composite: domain.AnyFlagSet(e.Composite, e.Combo),
			PLUCode:   strings.TrimSpace(e.PLUCode),
		}
		if p.Name == "" {
			p.Name = DisplayName(e.Key)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("product %d: needs a key or a name", e.ID)
		}
		if p.PLUCode != "" {
			if _, err := domain.PLUNumber(p.PLUCode); err != nil {
				return nil, fmt.Errorf("product %s: %w", p.Label(), err)
			}
		}
		products = append(products, p)
		if e.Key != "" {
			byKey[e.Key] = p
		}
	}

	for i, e := range f.Products {
		p := products[i]
		if len(e.Ingredients) > 0 && !p.Composite {
			return nil, fmt.Errorf("product %s lists ingredients but is not composite", p.Label())
		}
		for _, key := range e.Ingredients {
			ing, ok := byKey[key]
			if !ok {
				return nil, fmt.Errorf("product %s: ingredient %q: %w", p.Label(), key, domain.ErrUnknownProduct)
			}
			if ing.PLUCode == "" {
				return nil, fmt.Errorf("product %s: ingredient %s has no PLU code", p.Label(), ing.Label())
			}
			p.Ingredients = append(p.Ingredients, domain.Ingredient{
				ProductID: ing.ID,
				Name:      ing.Label(),
				PLUCode:   ing.PLUCode,
			})
		}
	}

	return domain.NewCatalog(products...)
}

// DisplayName turns a CamelCase key such as "PressionBlonde" into
// "Pression Blonde".
func DisplayName(key string) string {
	words := camelcase.Split(strings.TrimSpace(key))
	out := words[:0]
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" && w != "_" && w != "-" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}
