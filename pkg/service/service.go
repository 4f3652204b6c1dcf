// Package service implements the storefront business rules on top of the
// repository interfaces. Every exported method returns *errs.Error values
// for failures a client can act on.
package service

import (
	"context"
	"errors"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/example/storefront/pkg/errs"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
	// maxPage keeps (page-1)*limit well inside int64.
	maxPage = math.MaxInt32
)

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// normalizePage applies the default page size and caps it.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// skipFor is the number of records before page.
func skipFor(page, limit int) int64 {
	return int64(page-1) * int64(limit)
}

func newPagination(page, limit int, total int64) Pagination {
	return Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

// parseID turns a client supplied hex id into an ObjectID. Malformed ids
// cannot name a stored record, so they are reported as not found.
func parseID(id, notFound string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errs.NotFound(notFound)
	}
	return oid, nil
}

// storeErr converts a repository error, mapping ErrNotFound to notFound.
func storeErr(err error, notFound, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return errs.NotFound(notFound)
	}
	return errs.Internal(op, err)
}

// summaries loads the {id, name, email} projection for ids.
func summaries(ctx context.Context, users repository.UserRepository, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.UserSummary, error) {
	out := make(map[primitive.ObjectID]*models.UserSummary, len(ids))
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return out, nil
	}
	found, err := users.GetByIDs(ctx, unique)
	if err != nil {
		return nil, errs.Internal("failed to load users", err)
	}
	for _, u := range found {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
