package service

import (
	"context"

	"promptmart/internal/models"
	"promptmart/internal/repository"
)

// ReadModel joins author and user summaries onto rows at the read boundary.
// Rows whose user no longer exists keep a nil summary.
type ReadModel struct {
	users repository.UserRepository
}

// NewReadModel returns a ReadModel backed by users.
func NewReadModel(users repository.UserRepository) *ReadModel {
	return &ReadModel{users: users}
}

func (r *ReadModel) summaries(ctx context.Context, ids []uint) (map[uint]models.UserSummary, error) {
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return r.users.Summaries(ctx, unique)
}

func summaryPtr(m map[uint]models.UserSummary, id uint) *models.UserSummary {
	s, ok := m[id]
	if !ok {
		return nil
	}
	return &s
}

// AttachCommentAuthors sets User on every comment.
func (r *ReadModel) AttachCommentAuthors(ctx context.Context, comments []models.Comment) error {
	ids := make([]uint, len(comments))
	for i := range comments {
		ids[i] = comments[i].UserID
	}
	byID, err := r.summaries(ctx, ids)
	if err != nil {
		return err
	}
	for i := range comments {
		comments[i].User = summaryPtr(byID, comments[i].UserID)
	}
	return nil
}

// AttachListingAuthors sets Author on every listing.
func (r *ReadModel) AttachListingAuthors(ctx context.Context, listings []models.Listing) error {
	ids := make([]uint, len(listings))
	for i := range listings {
		ids[i] = listings[i].AuthorID
	}
	byID, err := r.summaries(ctx, ids)
	if err != nil {
		return err
	}
	for i := range listings {
		listings[i].Author = summaryPtr(byID, listings[i].AuthorID)
	}
	return nil
}

func (r *ReadModel) AttachListingAuthor(ctx context.Context, listing *models.Listing) error {
	byID, err := r.summaries(ctx, []uint{listing.AuthorID})
	if err != nil {
		return err
	}
	listing.Author = summaryPtr(byID, listing.AuthorID)
	return nil
}

// EdgeViews pairs each edge with the summary of the user at end(edge).
func (r *ReadModel) EdgeViews(ctx context.Context, edges []models.Edge, end func(models.Edge) uint) ([]models.EdgeView, error) {
	ids := make([]uint, len(edges))
	for i, e := range edges {
		ids[i] = end(e)
	}
	byID, err := r.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]models.EdgeView, len(edges))
	for i, e := range edges {
		views[i] = models.EdgeView{Edge: e, User: summaryPtr(byID, end(e))}
	}
	return views, nil
}

func edgeSource(e models.Edge) uint { return e.SourceID }
func edgeTarget(e models.Edge) uint { return e.TargetID }
