package service

import (
	"context"
	"strings"

	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/repository"
)

// CommentService 评论
type CommentService struct {
	repos *repository.Repositories
}

func NewCommentService(repos *repository.Repositories) *CommentService {
	return &CommentService{repos: repos}
}

// checkSubject 校验评论对象；帖子不在本系统中存储，不做存在性检查
func (s *CommentService) checkSubject(ctx context.Context, subject model.Subject) error {
	if subject.Count() != 1 {
		return ErrSubjectRequired
	}
	var (
		ok  = true
		err error
	)
	switch {
	case subject.Movie != nil:
		ok, err = s.repos.Movie.Exists(ctx, *subject.Movie)
	case subject.Series != nil:
		ok, err = s.repos.Series.Exists(ctx, *subject.Series)
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Create 发表评论
func (s *CommentService) Create(ctx context.Context, authorID uint, content string, subject model.Subject) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrInvalidInput
	}
	subject = subject.Normalize()
	if err := s.checkSubject(ctx, subject); err != nil {
		return nil, err
	}
	c := &model.Comment{
		Content:  content,
		UserID:   authorID,
		MovieID:  subject.Movie,
		SeriesID: subject.Series,
		PostID:   subject.Post,
	}
	if err := s.repos.Comment.Create(ctx, c); err != nil {
		return nil, err
	}
	if err := s.attachAuthors(ctx, []*model.Comment{c}); err != nil {
		return nil, err
	}
	return c, nil
}

// ListForSubject 某对象下的评论，按发表顺序
func (s *CommentService) ListForSubject(ctx context.Context, subject model.Subject) ([]*model.Comment, error) {
	subject = subject.Normalize()
	if subject.Count() != 1 {
		return nil, ErrSubjectRequired
	}
	list, err := s.repos.Comment.ListBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if err := s.attachAuthors(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *CommentService) getOwned(ctx context.Context, actor, id uint) (*model.Comment, error) {
	c, err := s.repos.Comment.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if c.UserID != actor {
		return nil, ErrForbidden
	}
	return c, nil
}

// Update 修改评论内容，仅作者可操作
func (s *CommentService) Update(ctx context.Context, actor, id uint, content string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrInvalidInput
	}
	c, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Comment.UpdateContent(ctx, id, content); err != nil {
		return nil, err
	}
	c.Content = content
	if err := s.attachAuthors(ctx, []*model.Comment{c}); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete 删除评论，仅作者可操作
func (s *CommentService) Delete(ctx context.Context, actor, id uint) error {
	if _, err := s.getOwned(ctx, actor, id); err != nil {
		return err
	}
	n, err := s.repos.Comment.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CommentService) attachAuthors(ctx context.Context, list []*model.Comment) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.UserID)
	}
	summaries, err := s.repos.User.FindSummaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, c := range list {
		if sum, ok := summaries[c.UserID]; ok {
			author := sum
			c.Author = &author
		}
	}
	return nil
}
