package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pourline/pourline/internal/domain"
)

func boolPtr(b bool) *bool { return &b }

func TestAnyFlagSet(t *testing.T) {
	tests := []struct {
		name  string
		flags []*bool
		want  bool
	}{
		{name: "none set", flags: []*bool{nil, nil, nil}, want: false},
		{name: "first true", flags: []*bool{boolPtr(true), nil, nil}, want: true},
		{name: "later true wins over earlier false", flags: []*bool{boolPtr(false), nil, boolPtr(true)}, want: true},
		{name: "all false", flags: []*bool{boolPtr(false), boolPtr(false)}, want: false},
		{name: "no flags", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.AnyFlagSet(tt.flags...))
		})
	}
}

func TestPLUNumber(t *testing.T) {
	n, err := domain.PLUNumber("PLU7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = domain.PLUNumber(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = domain.PLUNumber("PLUX")
	assert.Error(t, err)

	_, err = domain.PLUNumber("PLU-3")
	assert.Error(t, err)
}

func TestDispenseCode(t *testing.T) {
	assert.Equal(t, "PLU7", (&domain.Product{PLUCode: " PLU7 "}).DispenseCode(""))
	assert.Equal(t, domain.DefaultPLU, (&domain.Product{}).DispenseCode(""))
	assert.Equal(t, "PLU2", (&domain.Product{}).DispenseCode("PLU2"))

	var missing *domain.Product
	assert.Equal(t, domain.DefaultPLU, missing.DispenseCode(""))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Pression", (&domain.Product{Name: "Pression"}).Label())
	assert.Equal(t, "Pression 25cl", (&domain.Product{Name: "Pression", DisplayName: "Pression 25cl"}).Label())
}

func TestCatalog(t *testing.T) {
	beer := &domain.Product{ID: 7, Key: "Pression"}
	mojito := &domain.Product{ID: 42, Key: "Mojito"}

	c, err := domain.NewCatalog(beer, mojito)
	require.NoError(t, err)

	got, err := c.Product(42)
	require.NoError(t, err)
	assert.Same(t, mojito, got)

	got, err = c.ByKey("Pression")
	require.NoError(t, err)
	assert.Same(t, beer, got)

	_, err = c.Product(1)
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
	_, err = c.ByKey("Spritz")
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)

	assert.Len(t, c.Products(), 2)

	got, err = c.Lookup("42")
	require.NoError(t, err)
	assert.Same(t, mojito, got)
	got, err = c.Lookup("Pression")
	require.NoError(t, err)
	assert.Same(t, beer, got)
	_, err = c.Lookup("Spritz")
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
}

func TestCatalog_RejectsDuplicates(t *testing.T) {
	_, err := domain.NewCatalog(&domain.Product{ID: 1, Key: "A"}, &domain.Product{ID: 1, Key: "B"})
	assert.ErrorContains(t, err, "duplicate product id")

	_, err = domain.NewCatalog(&domain.Product{ID: 1, Key: "A"}, &domain.Product{ID: 2, Key: "A"})
	assert.ErrorContains(t, err, "duplicate product key")
}

func TestTransportError(t *testing.T) {
	err := &domain.TransportError{Op: "send-credit", Code: domain.TransportHTTP, Status: 502, Message: "bad gateway"}
	assert.Equal(t, "send-credit: HTTP (HTTP 502): bad gateway", err.Error())
	assert.True(t, domain.IsTransportCode(err, domain.TransportHTTP))
	assert.False(t, domain.IsTransportCode(err, domain.TransportTimeout))
}
