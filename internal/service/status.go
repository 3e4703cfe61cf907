package service

import (
	"context"
	"errors"

	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/repository"
)

// StatusService 用户对电影/剧集的状态台账
type StatusService struct {
	repos *repository.Repositories
}

func NewStatusService(repos *repository.Repositories) *StatusService {
	return &StatusService{repos: repos}
}

// mediaSubject 状态只能指向电影或剧集之一，调用前需先 Normalize
func mediaSubject(s model.Subject) error {
	if s.Post != nil {
		return ErrSubjectRequired
	}
	if s.Count() != 1 {
		return ErrSubjectRequired
	}
	return nil
}

// subjectOwner 返回目标记录的所有者
func subjectOwner(ctx context.Context, repos *repository.Repositories, s model.Subject) (uint, error) {
	if s.Movie != nil {
		m, err := repos.Movie.FindByID(ctx, *s.Movie)
		if err != nil {
			return 0, err
		}
		if m == nil {
			return 0, ErrNotFound
		}
		return m.UserID, nil
	}
	m, err := repos.Series.FindByID(ctx, *s.Series)
	if err != nil {
		return 0, err
	}
	if m == nil {
		return 0, ErrNotFound
	}
	return m.UserID, nil
}

// syncInline 把台账状态同步到记录上的冗余字段
func syncInline(ctx context.Context, tx *repository.Repositories, s model.Subject, st model.MediaStatus) error {
	if s.Movie != nil {
		return tx.Movie.UpdateStatus(ctx, *s.Movie, st)
	}
	return tx.Series.UpdateStatus(ctx, *s.Series, st)
}

// writeLedger 在事务内写入台账，同一用户同一对象只保留一行
func writeLedger(ctx context.Context, tx *repository.Repositories, userID uint, s model.Subject, st model.MediaStatus, inline bool) (*model.Status, bool, error) {
	s = s.Normalize()
	existing, err := tx.Status.FindByUserAndSubject(ctx, userID, s)
	if err != nil {
		return nil, false, err
	}
	created := false
	if existing == nil {
		row := &model.Status{UserID: userID, MovieID: s.Movie, SeriesID: s.Series, Status: st}
		inserted, err := tx.Status.Insert(ctx, row)
		if err != nil {
			return nil, false, err
		}
		if inserted {
			existing, created = row, true
		} else {
			// 并发写入撞上唯一索引，读回对方的行再更新
			existing, err = tx.Status.FindByUserAndSubject(ctx, userID, s)
			if err != nil {
				return nil, false, err
			}
			if existing == nil {
				return nil, false, ErrNotFound
			}
		}
	}
	if !created && existing.Status != st {
		if err := tx.Status.UpdateStatus(ctx, existing.ID, st); err != nil {
			return nil, false, err
		}
		existing.Status = st
	}
	if inline {
		if err := syncInline(ctx, tx, s, st); err != nil {
			return nil, false, err
		}
	}
	return existing, created, nil
}

// Upsert 创建或更新状态，返回是否新建
func (s *StatusService) Upsert(ctx context.Context, userID uint, subject model.Subject, status string) (*model.Status, bool, error) {
	subject = subject.Normalize()
	if err := mediaSubject(subject); err != nil {
		return nil, false, err
	}
	st, err := model.ParseMediaStatus(status)
	if err != nil {
		return nil, false, ErrInvalidInput
	}
	var (
		row     *model.Status
		created bool
	)
	err = s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		owner, err := subjectOwner(ctx, tx, subject)
		if err != nil {
			return err
		}
		row, created, err = writeLedger(ctx, tx, userID, subject, st, owner == userID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return row, created, nil
}

// Get 查询当前用户对某对象的状态
func (s *StatusService) Get(ctx context.Context, userID uint, subject model.Subject) (*model.Status, error) {
	subject = subject.Normalize()
	if err := mediaSubject(subject); err != nil {
		return nil, err
	}
	row, err := s.repos.Status.FindByUserAndSubject(ctx, userID, subject)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNotFound
	}
	return row, nil
}

// ListForUser 用户的全部状态，附带电影/剧集详情
func (s *StatusService) ListForUser(ctx context.Context, userID uint) ([]*model.Status, error) {
	rows, err := s.repos.Status.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var movieIDs, seriesIDs []uint
	for _, row := range rows {
		if row.MovieID != nil {
			movieIDs = append(movieIDs, *row.MovieID)
		}
		if row.SeriesID != nil {
			seriesIDs = append(seriesIDs, *row.SeriesID)
		}
	}
	movies, err := s.repos.Movie.FindByIDs(ctx, movieIDs)
	if err != nil {
		return nil, err
	}
	series, err := s.repos.Series.FindByIDs(ctx, seriesIDs)
	if err != nil {
		return nil, err
	}
	movieByID := make(map[uint]*model.Movie, len(movies))
	for _, m := range movies {
		movieByID[m.ID] = m
	}
	seriesByID := make(map[uint]*model.Series, len(series))
	for _, m := range series {
		seriesByID[m.ID] = m
	}
	for _, row := range rows {
		if row.MovieID != nil {
			row.MovieRef = movieByID[*row.MovieID]
		}
		if row.SeriesID != nil {
			row.SeriesRef = seriesByID[*row.SeriesID]
		}
	}
	return rows, nil
}

func (s *StatusService) getOwned(ctx context.Context, actor, id uint) (*model.Status, error) {
	row, err := s.repos.Status.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrNotFound
	}
	if row.UserID != actor {
		return nil, ErrForbidden
	}
	return row, nil
}

func rowSubject(row *model.Status) model.Subject {
	return model.Subject{Movie: row.MovieID, Series: row.SeriesID}
}

// Update 按 ID 修改状态
func (s *StatusService) Update(ctx context.Context, actor, id uint, status string) (*model.Status, error) {
	st, err := model.ParseMediaStatus(status)
	if err != nil {
		return nil, ErrInvalidInput
	}
	row, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	err = s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		if err := tx.Status.UpdateStatus(ctx, id, st); err != nil {
			return err
		}
		owner, err := subjectOwner(ctx, tx, rowSubject(row))
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if owner == actor {
			return syncInline(ctx, tx, rowSubject(row), st)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	row.Status = st
	return row, nil
}

// Delete 删除状态；所有者删除自己的台账时记录上的状态回到 pending
func (s *StatusService) Delete(ctx context.Context, actor, id uint) error {
	row, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		n, err := tx.Status.Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		owner, err := subjectOwner(ctx, tx, rowSubject(row))
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if owner == actor {
			return syncInline(ctx, tx, rowSubject(row), model.StatusPending)
		}
		return nil
	})
}
