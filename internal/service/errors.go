package service

import "errors"

var (
	// 参数校验类
	ErrInvalidInput     = errors.New("invalid input")
	ErrSubjectRequired  = errors.New("exactly one subject required")
	ErrSelfFollow       = errors.New("cannot follow yourself")
	ErrAlreadyFollowing = errors.New("already following")
	ErrNotFollowing     = errors.New("not following")

	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// 目录服务（TMDB）
	ErrCatalogNotFound    = errors.New("catalog: not found")
	ErrCatalogUnavailable = errors.New("catalog: upstream unavailable")
)
