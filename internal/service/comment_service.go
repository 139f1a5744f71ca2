package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"shutterhub/internal/models"
	"shutterhub/internal/repository"
)

const maxCommentLen = 2000

type CommentService struct {
	commentRepo repository.CommentRepository
	photoRepo   repository.PhotoRepository
	users       repository.UserRepository
	notifier    NotificationSender
	gate        *PostingGate
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
}

type CreateCommentInput struct {
	UserID   uint
	PhotoID  uint
	ParentID *uint
	Content  string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	photoRepo repository.PhotoRepository,
	users repository.UserRepository,
	notifier NotificationSender,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		photoRepo:   photoRepo,
		users:       users,
		notifier:    notifier,
		gate:        NewPostingGate(users),
		isAdmin:     isAdmin,
	}
}

func validateCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return "", models.NewValidationError("Comment too long (max 2000 characters)")
	}
	return content, nil
}

// CreateComment adds a comment or a reply. A reply's parent must be a top-level comment on
// the same photo.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	content, err := validateCommentContent(in.Content)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(ctx, in.UserID); err != nil {
		return nil, err
	}
	photo, err := s.photoRepo.GetByID(ctx, in.PhotoID)
	if err != nil {
		return nil, err
	}
	if photo.IsHidden {
		return nil, models.NewNotFoundError("Photo", in.PhotoID)
	}

	var parent *models.Comment
	if in.ParentID != nil {
		parent, err = s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, models.NewValidationError("Parent comment does not exist")
			}
			return nil, err
		}
		if parent.PhotoID != in.PhotoID {
			return nil, models.NewValidationError("Parent comment belongs to another photo")
		}
		if !parent.IsRoot() {
			return nil, models.NewValidationError("Replies cannot be nested")
		}
	}

	comment := &models.Comment{
		PhotoID:  in.PhotoID,
		UserID:   in.UserID,
		ParentID: in.ParentID,
		Content:  content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	actor := displayName(ctx, s.users, in.UserID)
	if parent != nil {
		notifyQuietly(ctx, s.notifier, NotifyInput{
			UserID:  parent.UserID,
			Type:    models.NotificationReply,
			Ref:     models.PhotoRef{PhotoID: in.PhotoID},
			ActorID: in.UserID,
			Title:   "New reply",
			Body:    fmt.Sprintf("%s replied to your comment", actor),
			Data:    map[string]interface{}{"comment_id": comment.ID},
		})
	} else {
		notifyQuietly(ctx, s.notifier, NotifyInput{
			UserID:  photo.UserID,
			Type:    models.NotificationComment,
			Ref:     models.PhotoRef{PhotoID: in.PhotoID},
			ActorID: in.UserID,
			Title:   "New comment",
			Body:    fmt.Sprintf("%s commented on %q", actor, photo.Title),
			Data:    map[string]interface{}{"comment_id": comment.ID},
		})
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

// ListComments returns the visible comments of a photo grouped into threads. The
// threads of a hidden photo are as hidden as the photo itself.
func (s *CommentService) ListComments(ctx context.Context, photoID, viewerID uint) ([]models.CommentThread, error) {
	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo.IsHidden && !canSeeHidden(ctx, s.isAdmin, viewerID, photo.UserID) {
		return nil, models.NewNotFoundError("Photo", photoID)
	}
	comments, err := s.commentRepo.ListByPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	return models.BuildCommentThreads(comments), nil
}

// UpdateComment edits the caller's own comment.
func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("Not authorized to edit this comment")
	}
	content, err := validateCommentContent(in.Content)
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.UpdateContent(ctx, comment.ID, content); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

// DeleteComment removes a comment and, for a top-level comment, its replies.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return err
	}
	if err := ownerOrAdmin(ctx, s.isAdmin, in.UserID, comment.UserID, "delete this comment"); err != nil {
		return err
	}
	_, err = s.commentRepo.Delete(ctx, comment.ID)
	return err
}
