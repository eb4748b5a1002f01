package service

import (
	"bytes"
	"context"
	"strings"

	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/pkg/apperror"
	"go-inventory-pos/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	// nil or the zero UUID makes a root category
	ParentID *uuid.UUID `json:"parent_id"`
}

type UpdateCategoryRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=100"`
	// a pointer to the zero UUID moves the category to the root
	ParentID *uuid.UUID `json:"parent_id"`
}

const depthPrefix = "— "

// categoryIndex maps a parent id (uuid.Nil for roots) to its children.
type categoryIndex map[uuid.UUID][]model.Category

func buildCategoryIndex(all []model.Category) categoryIndex {
	idx := make(categoryIndex, len(all))
	for _, c := range all {
		parent := uuid.Nil
		if c.ParentID != nil {
			parent = *c.ParentID
		}
		idx[parent] = append(idx[parent], c)
	}
	return idx
}

// subtree returns root and all of its descendants, each once.
func (idx categoryIndex) subtree(root uuid.UUID) []uuid.UUID {
	ids := []uuid.UUID{root}
	seen := map[uuid.UUID]bool{root: true}
	for i := 0; i < len(ids); i++ {
		for _, child := range idx[ids[i]] {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			ids = append(ids, child.ID)
		}
	}
	return ids
}

// flatten walks the tree depth first, children in name order.
func (idx categoryIndex) flatten() []model.CategoryNode {
	var out []model.CategoryNode
	type frame struct {
		cat   model.Category
		depth int
	}
	stack := make([]frame, 0)
	seen := make(map[uuid.UUID]bool)
	pushChildren := func(parent uuid.UUID, depth int) {
		children := idx[parent]
		for i := len(children) - 1; i >= 0; i-- {
			if seen[children[i].ID] {
				continue
			}
			seen[children[i].ID] = true
			stack = append(stack, frame{cat: children[i], depth: depth})
		}
	}
	pushChildren(uuid.Nil, 0)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, model.CategoryNode{
			ID:       f.cat.ID,
			ParentID: f.cat.ParentID,
			Name:     f.cat.Name,
			Label:    strings.Repeat(depthPrefix, f.depth) + f.cat.Name,
			Depth:    f.depth,
		})
		pushChildren(f.cat.ID, f.depth+1)
	}
	return out
}

func normalizeParent(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	parent := *id
	return &parent
}

func (s *catalogService) CreateCategory(ctx context.Context, req *CreateCategoryRequest, actor string) (*model.Category, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	category := &model.Category{
		Name:     strings.TrimSpace(req.Name),
		ParentID: normalizeParent(req.ParentID),
	}
	if category.ParentID != nil {
		if _, err := s.categories.FindByID(ctx, *category.ParentID); err != nil {
			return nil, err
		}
	}
	category.Stamp(actor)
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// lockCategories locks the moved category and its new parent in id order.
func lockCategories(ctx context.Context, categories repository.CategoryRepository, id uuid.UUID, parent *uuid.UUID) error {
	ids := []uuid.UUID{id}
	if parent != nil && *parent != id {
		ids = append(ids, *parent)
		if bytes.Compare(ids[1][:], ids[0][:]) < 0 {
			ids[0], ids[1] = ids[1], ids[0]
		}
	}
	for _, lockID := range ids {
		if _, err := categories.LockByID(ctx, lockID); err != nil {
			return err
		}
	}
	return nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req *UpdateCategoryRequest, actor string) (*model.Category, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	var updated *model.Category
	err := s.txn.Do(ctx, func(tx *gorm.DB) error {
		categories := s.categories.WithTx(tx)
		if err := lockCategories(ctx, categories, id, normalizeParent(req.ParentID)); err != nil {
			return err
		}
		category, err := categories.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			category.Name = strings.TrimSpace(*req.Name)
		}
		if req.ParentID != nil {
			parent := normalizeParent(req.ParentID)
			if parent != nil {
				if _, err := categories.FindByID(ctx, *parent); err != nil {
					return err
				}
				all, err := categories.FindAll(ctx)
				if err != nil {
					return err
				}
				for _, descendant := range buildCategoryIndex(all).subtree(category.ID) {
					if descendant == *parent {
						return apperror.New(apperror.KindValidation, "a category cannot be moved under itself or its descendants")
					}
				}
			}
			category.ParentID = parent
		}
		category.UpdatedBy = actor
		if err := categories.Update(ctx, category); err != nil {
			return err
		}
		updated = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCategory removes an empty subtree. Any product under the category
// or one of its descendants blocks the deletion.
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.txn.Do(ctx, func(tx *gorm.DB) error {
		categories := s.categories.WithTx(tx)
		if _, err := categories.FindByID(ctx, id); err != nil {
			return err
		}
		all, err := categories.FindAll(ctx)
		if err != nil {
			return err
		}
		idx := buildCategoryIndex(all)
		ids := idx.subtree(id)

		n, err := categories.CountProducts(ctx, ids)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.Newf(apperror.KindHasHistory, "category has %d product(s) in its subtree", n)
		}

		// children first
		for i := len(ids) - 1; i >= 0; i-- {
			if err := categories.Delete(ctx, ids[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *catalogService) CategoryTree(ctx context.Context) ([]model.CategoryNode, error) {
	all, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return buildCategoryIndex(all).flatten(), nil
}
