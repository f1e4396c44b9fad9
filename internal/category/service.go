// Package category maintains the subject category tree: unique codes,
// computed levels and the referential guards that keep deletions safe.
package category

import (
	"github.com/carrelhq/carrel/internal/apperr"
	"github.com/carrelhq/carrel/internal/entities"
	"github.com/carrelhq/carrel/internal/store"
)

// Service handles all category operations.
type Service struct {
	store *store.Store
}

// NewService creates a new category service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Detail is a category with its direct children and the number of books
// referencing it.
type Detail struct {
	entities.Category
	Children  []entities.Category `json:"children"`
	BookCount int64               `json:"book_count"`
}

// Stats aggregates book counts per category.
type Stats struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	Code           string `db:"code" json:"code"`
	Level          int    `db:"level" json:"level"`
	BookCount      int64  `db:"book_count" json:"book_count"`
	AvailableCount int64  `db:"available_count" json:"available_count"`
	BorrowedCount  int64  `db:"borrowed_count" json:"borrowed_count"`
}

// Create inserts a category. The level is 1 for roots and parent.level+1
// otherwise; a parentID that does not resolve silently falls back to a
// root-level category, matching the historical behaviour.
func (s *Service) Create(name, code string, parentID *int64) (*entities.Category, error) {
	if name == "" || code == "" {
		return nil, apperr.Validation("name and code are required")
	}

	var existingID int64
	found, err := s.store.QueryOne(&existingID, `SELECT id FROM categories WHERE code = ?`, code)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, apperr.Conflict("category code %s already exists", code)
	}

	level, err := s.levelFor(parentID)
	if err != nil {
		return nil, err
	}

	res, err := s.store.Execute(
		`INSERT INTO categories (name, code, parent_id, level) VALUES (?, ?, ?, ?)`,
		name, code, parentID, level)
	if err != nil {
		return nil, err
	}

	var created entities.Category
	if _, err := s.store.QueryOne(&created, `SELECT * FROM categories WHERE id = ?`, res.LastInsertID); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update rewrites a category. The code must not collide with a different
// category, and the level is recomputed from the (possibly new) parent;
// children keep their stored levels.
func (s *Service) Update(id int64, name, code string, parentID *int64) (*entities.Category, error) {
	if name == "" || code == "" {
		return nil, apperr.Validation("name and code are required")
	}

	var current entities.Category
	found, err := s.store.QueryOne(&current, `SELECT * FROM categories WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("category")
	}

	var otherID int64
	found, err = s.store.QueryOne(&otherID, `SELECT id FROM categories WHERE code = ? AND id != ?`, code, id)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, apperr.Conflict("category code %s is used by another category", code)
	}

	level, err := s.levelFor(parentID)
	if err != nil {
		return nil, err
	}

	_, err = s.store.Execute(
		`UPDATE categories SET name = ?, code = ?, parent_id = ?, level = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, code, parentID, level, id)
	if err != nil {
		return nil, err
	}

	var updated entities.Category
	if _, err := s.store.QueryOne(&updated, `SELECT * FROM categories WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a category unless it still has child categories or books
// referencing it.
func (s *Service) Delete(id int64) error {
	var childCount int64
	if _, err := s.store.QueryOne(&childCount, `SELECT COUNT(*) FROM categories WHERE parent_id = ?`, id); err != nil {
		return err
	}
	if childCount > 0 {
		return apperr.Conflict("category has child categories and cannot be deleted")
	}

	var bookCount int64
	if _, err := s.store.QueryOne(&bookCount, `SELECT COUNT(*) FROM books WHERE category_id = ?`, id); err != nil {
		return err
	}
	if bookCount > 0 {
		return apperr.Conflict("category has books assigned and cannot be deleted")
	}

	res, err := s.store.Execute(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("category")
	}
	return nil
}

// Get retrieves a category with its direct children (code order) and the
// count of books assigned to it.
func (s *Service) Get(id int64) (*Detail, error) {
	var cat entities.Category
	found, err := s.store.QueryOne(&cat, `SELECT * FROM categories WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.NotFound("category")
	}

	children := []entities.Category{}
	if err := s.store.QueryMany(&children, `SELECT * FROM categories WHERE parent_id = ? ORDER BY code`, id); err != nil {
		return nil, err
	}

	var bookCount int64
	if _, err := s.store.QueryOne(&bookCount, `SELECT COUNT(*) FROM books WHERE category_id = ?`, id); err != nil {
		return nil, err
	}

	return &Detail{Category: cat, Children: children, BookCount: bookCount}, nil
}

// List returns all categories ordered by level, parent and code.
func (s *Service) List() ([]entities.Category, error) {
	categories := []entities.Category{}
	err := s.store.QueryMany(&categories, `SELECT * FROM categories ORDER BY level, parent_id, code`)
	return categories, err
}

// ListTree returns the root categories with nested children. Children are
// in code order under each parent, roots in code order.
func (s *Service) ListTree() ([]*entities.CategoryNode, error) {
	categories, err := s.List()
	if err != nil {
		return nil, err
	}

	nodes := make(map[int64]*entities.CategoryNode, len(categories))
	for i := range categories {
		nodes[categories[i].ID] = &entities.CategoryNode{
			Category: categories[i],
			Children: []*entities.CategoryNode{},
		}
	}

	roots := []*entities.CategoryNode{}
	for i := range categories {
		node := nodes[categories[i].ID]
		if pid := categories[i].ParentID; pid != nil {
			// An unresolvable parent drops the node from the tree rather
			// than promoting it to a root.
			if parent, ok := nodes[*pid]; ok {
				parent.Children = append(parent.Children, node)
			}
			continue
		}
		roots = append(roots, node)
	}
	return roots, nil
}

// Statistics returns per-category book counts split by status.
func (s *Service) Statistics() ([]Stats, error) {
	stats := []Stats{}
	err := s.store.QueryMany(&stats, `
		SELECT
			c.id, c.name, c.code, c.level,
			COUNT(b.id) AS book_count,
			COUNT(CASE WHEN b.status = 'available' THEN 1 END) AS available_count,
			COUNT(CASE WHEN b.status = 'borrowed' THEN 1 END) AS borrowed_count
		FROM categories c
		LEFT JOIN books b ON c.id = b.category_id
		GROUP BY c.id, c.name, c.code, c.level
		ORDER BY c.level, c.code`)
	return stats, err
}

// levelFor computes the level implied by a parent reference. An absent or
// unresolvable parent yields a root-level category.
func (s *Service) levelFor(parentID *int64) (int, error) {
	if parentID == nil {
		return 1, nil
	}
	var parentLevel int
	found, err := s.store.QueryOne(&parentLevel, `SELECT level FROM categories WHERE id = ?`, *parentID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 1, nil
	}
	return parentLevel + 1, nil
}
