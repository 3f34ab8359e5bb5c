package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

func testCategories() []domain.Category {
	return []domain.Category{
		{ID: "c-food", Name: "Food", Level: 1, Children: []domain.Category{
			{ID: "c-grain", Name: "Grains", Level: 2, Children: []domain.Category{
				{ID: "c-rice", Name: "Rice", Level: 3},
			}},
		}},
		{ID: "c-home", Name: "Home", Level: 1},
	}
}

func strPtr(s string) *string { return &s }

func TestNewCategoryDraftStartsWithOneTextAttribute(t *testing.T) {
	d := NewCategoryDraft(testCategories())

	require.Len(t, d.Attributes, 1)
	assert.Equal(t, domain.AttributeText, d.Attributes[0].Type)
	assert.Equal(t, 1, d.Level)
	assert.True(t, d.IsActive)
	assert.Len(t, d.Parents, 4)
}

func TestCategoryAddAttribute(t *testing.T) {
	d := NewCategoryDraft(nil)

	require.NoError(t, d.AddAttribute(&AttributeDef{Name: "size", Label: "Size"}))
	assert.Equal(t, domain.AttributeText, d.Attributes[1].Type)

	require.NoError(t, d.AddAttribute(&AttributeDef{Name: "color", Label: "Color", Type: domain.AttributeSelect, Options: []string{" red", "red", "", "blue"}}))
	assert.True(t, d.Attributes[2].OptionsRequired())
	assert.Equal(t, []string{"red", "blue"}, d.Attributes[2].Options)

	assert.Error(t, d.AddAttribute(&AttributeDef{Type: "date"}))
	assert.Len(t, d.Attributes, 3)
}

func TestCategoryChangeAttributeType(t *testing.T) {
	d := NewCategoryDraft(nil)

	require.NoError(t, d.ChangeAttributeType(0, domain.AttributeSelect))
	assert.True(t, d.Attributes[0].OptionsRequired())
	require.NoError(t, d.AddOption(0, "S"))
	require.NoError(t, d.AddOption(0, "M"))

	require.NoError(t, d.ChangeAttributeType(0, domain.AttributeNumber))
	assert.False(t, d.Attributes[0].OptionsRequired())
	assert.Empty(t, d.Attributes[0].Options)

	assert.Error(t, d.ChangeAttributeType(0, "color"))
	assert.Error(t, d.ChangeAttributeType(4, domain.AttributeText))
}

func TestCategoryRemoveAttributeKeepsAtLeastOne(t *testing.T) {
	d := NewCategoryDraft(nil)

	rej, ok := AsRejection(d.RemoveAttribute(0))
	require.True(t, ok)
	assert.Equal(t, CodeLastAttribute, rej.Code)

	require.NoError(t, d.AddAttribute(nil))
	require.NoError(t, d.RemoveAttribute(0))
	assert.Len(t, d.Attributes, 1)
}

func TestCategoryOptionsAreDeduplicated(t *testing.T) {
	d := NewCategoryDraft(nil)
	require.NoError(t, d.ChangeAttributeType(0, domain.AttributeSelect))

	require.NoError(t, d.AddOption(0, "red"))
	require.NoError(t, d.AddOption(0, " red "))
	require.NoError(t, d.AddOption(0, "  "))
	require.NoError(t, d.AddOption(0, "blue"))
	assert.Equal(t, []string{"red", "blue"}, d.Attributes[0].Options)

	require.NoError(t, d.RemoveOption(0, 0))
	assert.Equal(t, []string{"blue"}, d.Attributes[0].Options)
	assert.Error(t, d.RemoveOption(0, 3))
}

func TestCategoryUpdateLevel(t *testing.T) {
	d := NewCategoryDraft(testCategories())

	require.NoError(t, d.UpdateLevel("c-grain"))
	assert.Equal(t, "c-grain", d.Parent)
	assert.Equal(t, 3, d.Level)

	require.NoError(t, d.UpdateLevel(""))
	assert.Equal(t, 1, d.Level)
	assert.Empty(t, d.Parent)

	assert.Error(t, d.UpdateLevel("c-missing"))
}

func TestCategoryUpdateLevelRejectsFourthLevel(t *testing.T) {
	d := NewCategoryDraft(testCategories())
	require.NoError(t, d.UpdateLevel("c-food"))
	require.Equal(t, 2, d.Level)

	err := d.UpdateLevel("c-rice")
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, CodeDepthExceeded, rej.Code)
	assert.Empty(t, d.Parent)
	assert.Equal(t, 1, d.Level)
	assert.NotEmpty(t, d.Error)

	require.NoError(t, d.UpdateLevel("c-home"))
	assert.Empty(t, d.Error)
}

func TestCategoryUpdateLevelTreatsUnsetParentLevelAsRoot(t *testing.T) {
	d := NewCategoryDraft([]domain.Category{{ID: "c-legacy", Name: "Legacy", IsActive: true}})

	require.NoError(t, d.UpdateLevel("c-legacy"))
	assert.Equal(t, "c-legacy", d.Parent)
	assert.Equal(t, 2, d.Level)
}

func TestLoadCategoryDraftExcludesItself(t *testing.T) {
	lo := 1.0
	c := domain.Category{
		ID: "c-grain", Name: "Grains", Level: 2, Parent: &domain.Ref{ID: "c-food"}, IsActive: true,
		Attributes: []domain.CategoryAttribute{
			{Name: "weight", Label: "Weight", Type: domain.AttributeNumber, Validation: &domain.AttributeValidation{Min: &lo}},
		},
	}
	d := LoadCategoryDraft(c, testCategories())

	assert.NotContains(t, d.Parents, "c-grain")
	assert.Equal(t, "c-food", d.Parent)
	assert.Equal(t, "1", d.Attributes[0].Min)
	assert.Error(t, d.UpdateLevel("c-grain"))
}

func TestCategoryValidate(t *testing.T) {
	d := NewCategoryDraft(nil)
	assert.Error(t, d.Validate())

	require.NoError(t, d.UpdateDetails(CategoryDetails{Name: strPtr("Drinks")}))
	assert.Error(t, d.Validate(), "attribute without name or label")

	require.NoError(t, d.UpdateAttribute(0, AttributePatch{Name: strPtr("volume"), Label: strPtr("Volume")}))
	require.NoError(t, d.Validate())

	require.NoError(t, d.ChangeAttributeType(0, domain.AttributeSelect))
	assert.Error(t, d.Validate(), "select without options")
	assert.False(t, d.Submittable())

	require.NoError(t, d.AddOption(0, "500ml"))
	assert.True(t, d.Submittable())
}

func TestCategoryRequestSerializesValidation(t *testing.T) {
	d := NewCategoryDraft(testCategories())
	require.NoError(t, d.UpdateDetails(CategoryDetails{Name: strPtr("Grain bags")}))
	require.NoError(t, d.UpdateLevel("c-food"))
	require.NoError(t, d.UpdateAttribute(0, AttributePatch{Name: strPtr("weight"), Label: strPtr("Weight"), Min: strPtr("1"), Max: strPtr("abc")}))
	require.NoError(t, d.AddAttribute(&AttributeDef{Name: "brand", Label: "Brand", Min: "abc"}))
	require.NoError(t, d.AddAttribute(&AttributeDef{Name: "grade", Label: "Grade", Type: domain.AttributeSelect, Options: []string{"A"}}))
	require.NoError(t, d.AddAttribute(&AttributeDef{Name: "code", Label: "Code", Pattern: "^[A-Z]+$", Options: []string{"ignored"}}))

	req, err := d.Request()
	require.NoError(t, err)
	assert.Equal(t, "c-food", req.Parent)
	assert.Equal(t, 2, req.Level)
	require.Len(t, req.Attributes, 4)

	weight := req.Attributes[0]
	require.NotNil(t, weight.Validation)
	require.NotNil(t, weight.Validation.Min)
	assert.Equal(t, 1.0, *weight.Validation.Min)
	assert.Nil(t, weight.Validation.Max)

	assert.Nil(t, req.Attributes[1].Validation)
	assert.Equal(t, []string{"A"}, req.Attributes[2].Options)
	assert.Nil(t, req.Attributes[3].Options)
	require.NotNil(t, req.Attributes[3].Validation)
	assert.Equal(t, "^[A-Z]+$", req.Attributes[3].Validation.Pattern)
}
