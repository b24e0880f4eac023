package service

import (
	"context"

	"promptmart/internal/access"
	"promptmart/internal/models"
	"promptmart/internal/repository"
	"promptmart/internal/validation"
)

// CommentService manages the comment thread of each listing.
type CommentService struct {
	comments repository.CommentRepository
	listings repository.ListingRepository
	counters *CounterService
	read     *ReadModel
}

type AddCommentInput struct {
	Principal models.Principal
	ListingID uint
	Content   string
}

// NewCommentService returns a new CommentService.
func NewCommentService(
	comments repository.CommentRepository,
	listings repository.ListingRepository,
	counters *CounterService,
	read *ReadModel,
) *CommentService {
	return &CommentService{
		comments: comments,
		listings: listings,
		counters: counters,
		read:     read,
	}
}

// AddComment appends a comment to a listing the author can see.
func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	if !in.Principal.Authenticated() {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	text, err := validation.CommentText(in.Content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	listing, err := s.listings.GetByID(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	if err := access.Decide(in.Principal, listing, access.View, nil).Err(); err != nil {
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	comment := &models.Comment{
		ListingID: listing.ID,
		UserID:    in.Principal.UserID,
		Content:   text,
	}
	if err := s.comments.Create(detached, comment); err != nil {
		return nil, err
	}
	s.counters.Commented(detached, listing.ID, 1)

	// The comment is stored; a failed summary lookup only leaves User empty.
	one := []models.Comment{*comment}
	if err := s.read.AttachCommentAuthors(ctx, one); err == nil {
		comment.User = one[0].User
	}
	return comment, nil
}

// DeleteComment soft-deletes the caller's own comment.
func (s *CommentService) DeleteComment(ctx context.Context, p models.Principal, commentID uint) error {
	if !p.Authenticated() {
		return models.NewUnauthorizedError("authentication required")
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != p.UserID {
		return models.NewForbiddenError("You can only delete your own comments")
	}

	detached := context.WithoutCancel(ctx)
	removed, err := s.comments.SoftDelete(detached, commentID)
	if err != nil {
		return err
	}
	if removed {
		s.counters.Commented(detached, comment.ListingID, -1)
	}
	return nil
}

// ListComments returns a page of comments on a visible listing, newest first.
func (s *CommentService) ListComments(ctx context.Context, p models.Principal, listingID uint, page models.PageRequest) (*models.Page[models.Comment], error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := access.Decide(p, listing, access.View, nil).Err(); err != nil {
		return nil, err
	}

	comments, total, err := s.comments.ListByListing(ctx, listingID, page)
	if err != nil {
		return nil, err
	}
	if err := s.read.AttachCommentAuthors(ctx, comments); err != nil {
		return nil, err
	}
	return &models.Page[models.Comment]{Items: comments, Pagination: models.NewPagination(page, total)}, nil
}
