package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pourline/pourline/internal/adapters/outbound/catalog"
	"github.com/pourline/pourline/internal/domain"
)

const barCatalog = `
products:
  - id: 7
    key: PressionBlonde
    dispenser_controlled: true
    plu_code: PLU7
  - id: 8
    key: BiereAmbree
    is_distributeur_boisson: true
  - id: 9
    key: Cidre
    needs_distributor: false
    distributeur_boisson: true
    plu_code: "9"
  - id: 43
    key: RhumBlanc
    name: Rhum blanc
    plu_code: PLU3
  - id: 44
    key: SiropMenthe
    plu_code: PLU4
  - id: 42
    key: Mojito
    needs_distributor: true
    combo: true
    ingredients: [RhumBlanc, SiropMenthe]
  - id: 90
    key: ChipsSel
`

func TestParse_ResolvesFlagsAndNames(t *testing.T) {
	c, err := catalog.Parse([]byte(barCatalog))
	require.NoError(t, err)

	pression, err := c.ByKey("PressionBlonde")
	require.NoError(t, err)
	assert.Equal(t, "Pression Blonde", pression.Name)
	assert.True(t, pression.DispenserControlled)
	assert.Equal(t, "PLU7", pression.PLUCode)

	for _, key := range []string{"BiereAmbree", "Cidre"} {
		p, err := c.ByKey(key)
		require.NoError(t, err)
		assert.True(t, p.DispenserControlled, key)
	}

	chips, err := c.Product(90)
	require.NoError(t, err)
	assert.False(t, chips.DispenserControlled)
	assert.Equal(t, "Chips Sel", chips.Label())
}

func TestParse_ResolvesIngredients(t *testing.T) {
	c, err := catalog.Parse([]byte(barCatalog))
	require.NoError(t, err)

	mojito, err := c.Product(42)
	require.NoError(t, err)
	assert.True(t, mojito.Composite)
	assert.Equal(t, []domain.Ingredient{
		{ProductID: 43, Name: "Rhum blanc", PLUCode: "PLU3"},
		{ProductID: 44, Name: "Sirop Menthe", PLUCode: "PLU4"},
	}, mojito.Ingredients)

	cls := domain.ClassifyProduct(mojito, "")
	assert.Equal(t, domain.KindComposite, cls.Kind)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "bad yaml", yaml: "products: [", want: "parsing catalog"},
		{name: "missing id", yaml: "products:\n  - key: Beer\n", want: "id must be positive"},
		{name: "missing name", yaml: "products:\n  - id: 1\n", want: "needs a key or a name"},
		{name: "bad plu", yaml: "products:\n  - id: 1\n    key: Beer\n    plu_code: BEER\n", want: "invalid PLU code"},
		{name: "duplicate id", yaml: "products:\n  - id: 1\n    key: A\n  - id: 1\n    key: B\n", want: "duplicate product id 1"},
		{name: "unknown ingredient", yaml: "products:\n  - id: 1\n    key: Punch\n    composite: true\n    ingredients: [Rum]\n", want: "unknown product"},
		{name: "ingredient without plu", yaml: "products:\n  - id: 1\n    key: Rum\n  - id: 2\n    key: Punch\n    composite: true\n    ingredients: [Rum]\n", want: "has no PLU code"},
		{name: "ingredients on simple product", yaml: "products:\n  - id: 1\n    key: Rum\n    plu_code: PLU1\n  - id: 2\n    key: Punch\n    ingredients: [Rum]\n", want: "is not composite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestYAMLLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(barCatalog), 0644))

	c, err := catalog.New().Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Products(), 7)

	_, err = catalog.New().Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Pression Blonde", catalog.DisplayName("PressionBlonde"))
	assert.Equal(t, "IPA", catalog.DisplayName("IPA"))
	assert.Equal(t, "Biere Blanche", catalog.DisplayName("Biere_Blanche"))
	assert.Equal(t, "", catalog.DisplayName(""))
}

func TestLoad_BarFixture(t *testing.T) {
	cat, err := catalog.New().Load(filepath.Join("..", "..", "..", "..", "testdata", "bar", "catalog.yaml"))
	require.NoError(t, err)
	assert.Len(t, cat.Products(), 9)

	cidre, err := cat.ByKey("Cidre")
	require.NoError(t, err)
	assert.True(t, cidre.DispenserControlled)
	assert.Equal(t, "PLU1", cidre.DispenseCode("PLU1"))

	mojito, err := cat.Lookup("42")
	require.NoError(t, err)
	assert.True(t, mojito.Composite)
	require.Len(t, mojito.Ingredients, 2)
	assert.Equal(t, "PLU3", mojito.Ingredients[0].PLUCode)

	chips, err := cat.Lookup("ChipsSel")
	require.NoError(t, err)
	assert.False(t, chips.DispenserControlled)
	assert.Equal(t, "Chips sel", chips.Label())
}

func TestParse_CompositeSynonyms(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
products:
  - id: 1
    key: Rhum
    plu_code: PLU3
  - id: 2
    key: Punch
    dispenser_controlled: true
    composite: true
    ingredients: [Rhum]
  - id: 3
    key: Planteur
    dispenser_controlled: true
    combo: false
    composite: true
    ingredients: [Rhum]
  - id: 4
    key: Ti
    combo: false
`))
	require.NoError(t, err)

	for _, key := range []string{"Punch", "Planteur"} {
		p, err := cat.ByKey(key)
		require.NoError(t, err)
		assert.True(t, p.Composite, key)
	}
	ti, err := cat.ByKey("Ti")
	require.NoError(t, err)
	assert.False(t, ti.Composite)
}
