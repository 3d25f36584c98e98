package reaction_test

import (
	"testing"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/reaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LowercasesAndTrims(t *testing.T) {
	t.Parallel()

	r := reaction.New("1", []string{" Acetone ", "HCl"}, []string{"  Product-A"}, "reflux", "d1")

	assert.Equal(t, []string{"acetone", "hcl"}, r.Reactants)
	assert.Equal(t, []string{"product-a"}, r.Products)
}

func TestNew_DropsEmptyNames(t *testing.T) {
	t.Parallel()

	r := reaction.New("1", []string{"a", "   ", ""}, []string{"t"}, "", "d1")
	assert.Equal(t, []string{"a"}, r.Reactants)
}

func TestValidate_RejectsEmptyID(t *testing.T) {
	t.Parallel()

	r := reaction.New("", []string{"a"}, []string{"t"}, "", "d1")
	err := r.Validate()
	require.Error(t, err)
}

func TestValidate_RejectsNoReactants(t *testing.T) {
	t.Parallel()

	r := reaction.New("1", nil, []string{"t"}, "", "d1")
	require.Error(t, r.Validate())
}

func TestValidate_RejectsNoProducts(t *testing.T) {
	t.Parallel()

	r := reaction.New("1", []string{"a"}, nil, "", "d1")
	require.Error(t, r.Validate())
}

func TestValidate_RejectsOverlapBetweenReactantsAndProducts(t *testing.T) {
	t.Parallel()

	r := reaction.New("1", []string{"a", "t"}, []string{"t"}, "", "d1")
	require.Error(t, r.Validate())
}

func TestValidate_AcceptsDisjointReaction(t *testing.T) {
	t.Parallel()

	r := reaction.New("1", []string{"a", "b"}, []string{"t"}, "reflux, 80C", "d1")
	require.NoError(t, r.Validate())
}

func TestValidate_AllowsDuplicateReactants(t *testing.T) {
	t.Parallel()

	// A substance may repeat within one reactant list; the store must not
	// collapse duplicates, because tree construction needs the multiset.
	r := reaction.New("1", []string{"a", "a"}, []string{"t"}, "", "d1")
	require.NoError(t, r.Validate())
	assert.Equal(t, []string{"a", "a"}, r.Reactants)
}
