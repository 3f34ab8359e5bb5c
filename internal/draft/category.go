package draft

import (
	"slices"
	"strconv"
	"strings"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

// AttributeDef is an attribute as it is being edited. Bounds are kept as raw
// input and only parsed when the schema is serialized.
type AttributeDef struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options"`
	Min      string   `json:"min,omitempty"`
	Max      string   `json:"max,omitempty"`
	Pattern  string   `json:"pattern,omitempty"`
}

// OptionsRequired reports whether the attribute must list at least one option.
func (a AttributeDef) OptionsRequired() bool {
	return a.Type == domain.AttributeSelect
}

// AttributePatch updates the non-structural fields of one attribute.
type AttributePatch struct {
	Name     *string
	Label    *string
	Required *bool
	Min      *string
	Max      *string
	Pattern  *string
}

type ParentOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// CategoryDraft builds a category together with the attribute schema its
// products must follow.
type CategoryDraft struct {
	Lifecycle
	CategoryID  string                  `json:"category_id,omitempty"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Parent      string                  `json:"parent,omitempty"`
	Level       int                     `json:"level"`
	IsActive    bool                    `json:"is_active"`
	Attributes  []AttributeDef          `json:"attributes"`
	Parents     map[string]ParentOption `json:"parents"`
	Error       string                  `json:"error,omitempty"`
}

// NewCategoryDraft starts a root category with one blank text attribute.
func NewCategoryDraft(categories []domain.Category) *CategoryDraft {
	return &CategoryDraft{
		Lifecycle:  newLifecycle(),
		Level:      1,
		IsActive:   true,
		Attributes: []AttributeDef{blankAttribute()},
		Parents:    parentOptions(categories, ""),
	}
}

// LoadCategoryDraft opens an existing category for editing. The category is
// never offered as its own parent.
func LoadCategoryDraft(c domain.Category, categories []domain.Category) *CategoryDraft {
	d := &CategoryDraft{
		Lifecycle:   newLifecycle(),
		CategoryID:  c.ID,
		Name:        c.Name,
		Description: c.Description,
		Level:       max(c.Level, 1),
		IsActive:    c.IsActive,
		Parents:     parentOptions(categories, c.ID),
	}
	if c.Parent != nil {
		d.Parent = c.Parent.ID
	}
	for _, attr := range c.Attributes {
		def := AttributeDef{
			Name:     attr.Name,
			Label:    attr.Label,
			Type:     attr.Type,
			Required: attr.Required,
			Options:  slices.Clone(attr.Options),
		}
		if def.Options == nil {
			def.Options = []string{}
		}
		if v := attr.Validation; v != nil {
			if v.Min != nil {
				def.Min = strconv.FormatFloat(*v.Min, 'f', -1, 64)
			}
			if v.Max != nil {
				def.Max = strconv.FormatFloat(*v.Max, 'f', -1, 64)
			}
			def.Pattern = v.Pattern
		}
		d.Attributes = append(d.Attributes, def)
	}
	if len(d.Attributes) == 0 {
		d.Attributes = []AttributeDef{blankAttribute()}
	}
	d.State = StateBuilding
	return d
}

func parentOptions(categories []domain.Category, exclude string) map[string]ParentOption {
	out := make(map[string]ParentOption, len(categories))
	var walk func([]domain.Category)
	walk = func(list []domain.Category) {
		for _, c := range list {
			if c.ID != exclude {
				out[c.ID] = ParentOption{ID: c.ID, Name: c.Name, Level: c.Level}
			}
			walk(c.Children)
		}
	}
	walk(categories)
	return out
}

func blankAttribute() AttributeDef {
	return AttributeDef{Type: domain.AttributeText, Options: []string{}}
}

func (d *CategoryDraft) attribute(index int) (*AttributeDef, error) {
	if index < 0 || index >= len(d.Attributes) {
		return nil, reject(CodeItemNotFound, "no attribute at position %d", index)
	}
	return &d.Attributes[index], nil
}

// AddAttribute appends def, or a blank text attribute when def is nil.
func (d *CategoryDraft) AddAttribute(def *AttributeDef) error {
	if err := d.guard(); err != nil {
		return err
	}
	attr := blankAttribute()
	if def != nil {
		attr = *def
		if attr.Type == "" {
			attr.Type = domain.AttributeText
		}
		if !domain.IsAttributeType(attr.Type) {
			return reject(CodeInvalidAttribute, "unknown attribute type %q", attr.Type)
		}
		attr.Options = normalizeOptions(attr.Options)
	}
	d.Attributes = append(d.Attributes, attr)
	d.touch()
	return nil
}

func normalizeOptions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, opt := range in {
		opt = strings.TrimSpace(opt)
		if opt == "" || slices.Contains(out, opt) {
			continue
		}
		out = append(out, opt)
	}
	return out
}

// UpdateAttribute applies patch to the attribute at index.
func (d *CategoryDraft) UpdateAttribute(index int, patch AttributePatch) error {
	if err := d.guard(); err != nil {
		return err
	}
	attr, err := d.attribute(index)
	if err != nil {
		return err
	}
	if patch.Name != nil {
		attr.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Label != nil {
		attr.Label = strings.TrimSpace(*patch.Label)
	}
	if patch.Required != nil {
		attr.Required = *patch.Required
	}
	if patch.Min != nil {
		attr.Min = strings.TrimSpace(*patch.Min)
	}
	if patch.Max != nil {
		attr.Max = strings.TrimSpace(*patch.Max)
	}
	if patch.Pattern != nil {
		attr.Pattern = *patch.Pattern
	}
	d.touch()
	return nil
}

// ChangeAttributeType switches the attribute's type. Leaving select drops the
// option list.
func (d *CategoryDraft) ChangeAttributeType(index int, attrType string) error {
	if err := d.guard(); err != nil {
		return err
	}
	attr, err := d.attribute(index)
	if err != nil {
		return err
	}
	if !domain.IsAttributeType(attrType) {
		return reject(CodeInvalidAttribute, "unknown attribute type %q", attrType)
	}
	attr.Type = attrType
	if attrType != domain.AttributeSelect {
		attr.Options = []string{}
	}
	d.touch()
	return nil
}

// RemoveAttribute refuses to drop the last remaining attribute.
func (d *CategoryDraft) RemoveAttribute(index int) error {
	if err := d.guard(); err != nil {
		return err
	}
	if _, err := d.attribute(index); err != nil {
		return err
	}
	if len(d.Attributes) <= 1 {
		return reject(CodeLastAttribute, "a category needs at least one attribute")
	}
	d.Attributes = append(d.Attributes[:index], d.Attributes[index+1:]...)
	d.touch()
	return nil
}

// AddOption appends a trimmed option. Blank and duplicate options are ignored.
func (d *CategoryDraft) AddOption(index int, option string) error {
	if err := d.guard(); err != nil {
		return err
	}
	attr, err := d.attribute(index)
	if err != nil {
		return err
	}
	option = strings.TrimSpace(option)
	if option == "" || slices.Contains(attr.Options, option) {
		return nil
	}
	attr.Options = append(attr.Options, option)
	d.touch()
	return nil
}

// RemoveOption drops one option from a select attribute.
func (d *CategoryDraft) RemoveOption(index int, optionIndex int) error {
	if err := d.guard(); err != nil {
		return err
	}
	attr, err := d.attribute(index)
	if err != nil {
		return err
	}
	if optionIndex < 0 || optionIndex >= len(attr.Options) {
		return reject(CodeItemNotFound, "no option at position %d", optionIndex)
	}
	attr.Options = append(attr.Options[:optionIndex], attr.Options[optionIndex+1:]...)
	d.touch()
	return nil
}

// UpdateLevel places the category under parentID. When that would exceed the
// maximum depth the parent is cleared, the level falls back to 1 and the
// rejection is also kept in Error.
func (d *CategoryDraft) UpdateLevel(parentID string) error {
	if err := d.guard(); err != nil {
		return err
	}
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		d.Parent = ""
		d.Level = 1
		d.Error = ""
		d.touch()
		return nil
	}
	if parentID == d.CategoryID {
		return reject(CodeParentNotFound, "a category cannot be its own parent")
	}
	parent, ok := d.Parents[parentID]
	if !ok {
		return reject(CodeParentNotFound, "parent category %q not found", parentID)
	}

	level := max(parent.Level, 1) + 1
	if level > domain.MaxCategoryLevel {
		err := reject(CodeDepthExceeded, "maximum category depth is %d levels", domain.MaxCategoryLevel)
		d.Parent = ""
		d.Level = 1
		d.Error = err.Error()
		d.touch()
		return err
	}
	d.Parent = parentID
	d.Level = level
	d.Error = ""
	d.touch()
	return nil
}

type CategoryDetails struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// UpdateDetails applies the non-nil fields of in.
func (d *CategoryDraft) UpdateDetails(in CategoryDetails) error {
	if err := d.guard(); err != nil {
		return err
	}
	if in.Name != nil {
		d.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		d.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	d.touch()
	return nil
}

// Validate checks everything the backend would refuse.
func (d *CategoryDraft) Validate() error {
	if len(strings.TrimSpace(d.Name)) < 2 {
		return reject(CodeInvalidField, "category name must be at least 2 characters")
	}
	if d.Level < 1 || d.Level > domain.MaxCategoryLevel {
		return reject(CodeDepthExceeded, "maximum category depth is %d levels", domain.MaxCategoryLevel)
	}
	if len(d.Attributes) == 0 {
		return reject(CodeLastAttribute, "a category needs at least one attribute")
	}
	for i, attr := range d.Attributes {
		if strings.TrimSpace(attr.Name) == "" || strings.TrimSpace(attr.Label) == "" {
			return reject(CodeInvalidAttribute, "attribute %d needs a name and a label", i+1)
		}
		if !domain.IsAttributeType(attr.Type) {
			return reject(CodeInvalidAttribute, "attribute %q has unknown type %q", attr.Name, attr.Type)
		}
		if attr.OptionsRequired() && len(attr.Options) == 0 {
			return reject(CodeInvalidAttribute, "select attribute %q needs at least one option", attr.Name)
		}
	}
	return nil
}

// Submittable reports whether the draft passes Validate.
func (d *CategoryDraft) Submittable() bool {
	return d.Validate() == nil
}

// Request builds the create payload, or a rejection naming the first invalid field.
func (d *CategoryDraft) Request() (domain.CreateCategoryRequest, error) {
	if err := d.Validate(); err != nil {
		return domain.CreateCategoryRequest{}, err
	}
	attrs := make([]domain.CategoryAttribute, 0, len(d.Attributes))
	for _, def := range d.Attributes {
		attrs = append(attrs, serializeAttribute(def))
	}
	return domain.CreateCategoryRequest{
		Name:        strings.TrimSpace(d.Name),
		Description: d.Description,
		Parent:      d.Parent,
		Level:       d.Level,
		Attributes:  attrs,
		IsActive:    d.IsActive,
	}, nil
}

func serializeAttribute(def AttributeDef) domain.CategoryAttribute {
	out := domain.CategoryAttribute{
		Name:     strings.TrimSpace(def.Name),
		Label:    strings.TrimSpace(def.Label),
		Type:     def.Type,
		Required: def.Required,
	}
	if def.Type == domain.AttributeSelect && len(def.Options) > 0 {
		out.Options = slices.Clone(def.Options)
	}

	var v domain.AttributeValidation
	present := false
	if f, ok := parseBound(def.Min); ok {
		v.Min = &f
		present = true
	}
	if f, ok := parseBound(def.Max); ok {
		v.Max = &f
		present = true
	}
	if p := strings.TrimSpace(def.Pattern); p != "" {
		v.Pattern = p
		present = true
	}
	if present {
		out.Validation = &v
	}
	return out
}

func parseBound(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
