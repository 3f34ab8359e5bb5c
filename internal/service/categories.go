package service

import (
	"context"
	"slices"
	"strings"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/cache"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/draft"
)

type CategoryDraftView struct {
	ID string `json:"id"`
	draft.Lifecycle
	CategoryID  string               `json:"category_id,omitempty"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Parent      string               `json:"parent,omitempty"`
	Level       int                  `json:"level"`
	IsActive    bool                 `json:"is_active"`
	Attributes  []draft.AttributeDef `json:"attributes"`
	Parents     []draft.ParentOption `json:"parents"`
	Error       string               `json:"error,omitempty"`

	// Problem is the first reason the draft cannot be submitted yet.
	Problem     string `json:"problem,omitempty"`
	Submittable bool   `json:"submittable"`
}

func newCategoryDraftView(id string, d *draft.CategoryDraft) *CategoryDraftView {
	if d == nil {
		return nil
	}
	parents := make([]draft.ParentOption, 0, len(d.Parents))
	for _, p := range d.Parents {
		parents = append(parents, p)
	}
	slices.SortFunc(parents, func(a, b draft.ParentOption) int {
		if a.Level != b.Level {
			return a.Level - b.Level
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	view := &CategoryDraftView{
		ID:          id,
		Lifecycle:   d.Lifecycle,
		CategoryID:  d.CategoryID,
		Name:        d.Name,
		Description: d.Description,
		Parent:      d.Parent,
		Level:       d.Level,
		IsActive:    d.IsActive,
		Attributes:  d.Attributes,
		Parents:     parents,
		Error:       d.Error,
	}
	if err := d.Validate(); err != nil {
		view.Problem = err.Error()
	} else {
		view.Submittable = true
	}
	return view
}

type CategorySubmitResult struct {
	Draft    *CategoryDraftView `json:"draft,omitempty"`
	Category domain.Category    `json:"category"`
}

// OpenCategoryDraft starts a new category with one blank attribute.
func (s *Service) OpenCategoryDraft(ctx context.Context) (*CategoryDraftView, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return nil, err
	}
	categories, err := s.categorySnapshot(ctx, session)
	if err != nil {
		return nil, err
	}
	d := draft.NewCategoryDraft(categories)
	id, err := openDraft(ctx, s, session, domain.DraftCategory, d)
	if err != nil {
		return nil, err
	}
	return newCategoryDraftView(id, d), nil
}

// OpenCategoryEditDraft loads an existing category and its schema.
func (s *Service) OpenCategoryEditDraft(ctx context.Context, categoryID string) (*CategoryDraftView, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return nil, err
	}
	category, err := s.backend.GetCategory(ctx, session.UpstreamToken, strings.TrimSpace(categoryID))
	if err != nil {
		return nil, s.upstreamErr(ctx, session, err)
	}
	categories, err := s.categorySnapshot(ctx, session)
	if err != nil {
		return nil, err
	}
	d := draft.LoadCategoryDraft(category, categories)
	id, err := openDraft(ctx, s, session, domain.DraftCategory, d)
	if err != nil {
		return nil, err
	}
	return newCategoryDraftView(id, d), nil
}

func (s *Service) GetCategoryDraft(ctx context.Context, id string) (*CategoryDraftView, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return nil, err
	}
	d, err := loadDraft[draft.CategoryDraft](ctx, s, session, domain.DraftCategory, id)
	if err != nil {
		return nil, err
	}
	return newCategoryDraftView(id, d), nil
}

func (s *Service) mutateCategory(ctx context.Context, id string, fn func(*draft.CategoryDraft) error) (*CategoryDraftView, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return nil, err
	}
	d, err := mutateDraft(ctx, s, session, domain.DraftCategory, id, fn)
	return newCategoryDraftView(id, d), err
}

// AddCategoryAttribute appends an attribute. A nil input adds a blank text
// attribute.
func (s *Service) AddCategoryAttribute(ctx context.Context, id string, in *domain.AttributeInput) (*CategoryDraftView, error) {
	return s.mutateCategory(ctx, id, func(d *draft.CategoryDraft) error {
		if in == nil {
			return d.AddAttribute(nil)
		}
		return d.AddAttribute(&draft.AttributeDef{
			Name:     strings.TrimSpace(in.Name),
			Label:    strings.TrimSpace(in.Label),
			Type:     in.Type,
			Required: in.Required,
			Options:  in.Options,
			Min:      strings.TrimSpace(in.Min),
			Max:      strings.TrimSpace(in.Max),
			Pattern:  in.Pattern,
		})
	})
}

// UpdateCategoryAttribute patches one attribute. A type change goes first and
// the whole patch is undone if any part is rejected.
func (s *Service) UpdateCategoryAttribute(ctx context.Context, id string, index int, in domain.AttributePatchInput) (*CategoryDraftView, error) {
	return s.mutateCategory(ctx, id, func(d *draft.CategoryDraft) error {
		before := cloneAttributes(d.Attributes)
		lifecycle := d.Lifecycle
		if in.Type != nil {
			if err := d.ChangeAttributeType(index, *in.Type); err != nil {
				return err
			}
		}
		err := d.UpdateAttribute(index, draft.AttributePatch{
			Name:     in.Name,
			Label:    in.Label,
			Required: in.Required,
			Min:      in.Min,
			Max:      in.Max,
			Pattern:  in.Pattern,
		})
		if err != nil {
			d.Attributes = before
			d.Lifecycle = lifecycle
		}
		return err
	})
}

func cloneAttributes(in []draft.AttributeDef) []draft.AttributeDef {
	out := slices.Clone(in)
	for i := range out {
		out[i].Options = slices.Clone(out[i].Options)
	}
	return out
}

func (s *Service) RemoveCategoryAttribute(ctx context.Context, id string, index int) (*CategoryDraftView, error) {
	return s.mutateCategory(ctx, id, func(d *draft.CategoryDraft) error {
		return d.RemoveAttribute(index)
	})
}

func (s *Service) AddAttributeOption(ctx context.Context, id string, index int, in domain.AttributeOptionInput) (*CategoryDraftView, error) {
	return s.mutateCategory(ctx, id, func(d *draft.CategoryDraft) error {
		return d.AddOption(index, in.Option)
	})
}

func (s *Service) RemoveAttributeOption(ctx context.Context, id string, index int, optionIndex int) (*CategoryDraftView, error) {
	return s.mutateCategory(ctx, id, func(d *draft.CategoryDraft) error {
		return d.RemoveOption(index, optionIndex)
	})
}

// SetCategoryParent moves the category under parent. Past the maximum depth
// the draft falls back to a top-level category, keeps the error and the
// rejection is returned alongside the updated view.
func (s *Service) SetCategoryParent(ctx context.Context, id string, in domain.CategoryParentInput) (*CategoryDraftView, error) {
	return s.mutateCategory(ctx, id, func(d *draft.CategoryDraft) error {
		return d.UpdateLevel(in.ParentID)
	})
}

func (s *Service) UpdateCategoryDetails(ctx context.Context, id string, in domain.CategoryDetailsInput) (*CategoryDraftView, error) {
	return s.mutateCategory(ctx, id, func(d *draft.CategoryDraft) error {
		return d.UpdateDetails(draft.CategoryDetails{
			Name:        in.Name,
			Description: in.Description,
			IsActive:    in.IsActive,
		})
	})
}

// SubmitCategoryDraft creates the category, or updates the one the draft was
// loaded from.
func (s *Service) SubmitCategoryDraft(ctx context.Context, id string) (CategorySubmitResult, error) {
	session, err := s.authorize(ctx, backOffice...)
	if err != nil {
		return CategorySubmitResult{}, err
	}
	d, category, err := submitDraft(ctx, s, session, domain.DraftCategory, id, func(d *draft.CategoryDraft) (submission[domain.Category], error) {
		req, err := d.Request()
		if err != nil {
			return submission[domain.Category]{}, err
		}
		categoryID := d.CategoryID
		return submission[domain.Category]{
			send: func(ctx context.Context, token string) (domain.Category, error) {
				if categoryID != "" {
					return s.backend.UpdateCategory(ctx, token, categoryID, req)
				}
				return s.backend.CreateCategory(ctx, token, req)
			},
			resultID: func(c domain.Category) string { return c.ID },
		}, nil
	})
	result := CategorySubmitResult{Draft: newCategoryDraftView(id, d), Category: category}
	if err != nil {
		return result, err
	}
	s.invalidate(ctx, cache.KeyCategories)
	return result, nil
}
