package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/user/moovie-social/internal/logger"
	"github.com/user/moovie-social/internal/metrics"
	"github.com/user/moovie-social/internal/repository"
)

const cleanupTimeout = 5 * time.Minute

// CleanupService 清理悬空的状态、评论与关注边
type CleanupService struct {
	repos *repository.Repositories
	cron  *cron.Cron
	log   *logrus.Entry
}

// NewCleanupService 创建清理服务
func NewCleanupService(repos *repository.Repositories) *CleanupService {
	return &CleanupService{
		repos: repos,
		cron:  cron.New(),
		log:   logger.Get().WithField("component", "cleanup"),
	}
}

// Start 按 cron 表达式调度，启动时先运行一次
func (s *CleanupService) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.Run(context.Background()) }); err != nil {
		return err
	}
	go s.Run(context.Background())
	s.cron.Start()
	s.log.WithField("spec", spec).Info("[CleanupService] 定时清理已启动")
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (s *CleanupService) Stop() {
	<-s.cron.Stop().Done()
}

// CleanupResult 各表删除的行数
type CleanupResult struct {
	Statuses int64
	Comments int64
	Follows  int64
}

// Run 执行一次清理，可重复执行
func (s *CleanupService) Run(ctx context.Context) CleanupResult {
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	s.log.Info("[CleanupService] 开始清理悬空数据...")
	var res CleanupResult
	var err error

	if res.Statuses, err = s.repos.Status.DeleteOrphans(ctx); err != nil {
		s.log.WithError(err).Error("[CleanupService] 清理状态失败")
	}
	if res.Comments, err = s.repos.Comment.DeleteOrphans(ctx); err != nil {
		s.log.WithError(err).Error("[CleanupService] 清理评论失败")
	}
	if res.Follows, err = s.repos.Follow.DeleteDangling(ctx); err != nil {
		s.log.WithError(err).Error("[CleanupService] 清理关注关系失败")
	}

	metrics.CleanupRemoved.WithLabelValues("statuses").Add(float64(res.Statuses))
	metrics.CleanupRemoved.WithLabelValues("comments").Add(float64(res.Comments))
	metrics.CleanupRemoved.WithLabelValues("follows").Add(float64(res.Follows))

	s.log.WithFields(logrus.Fields{
		"statuses": res.Statuses,
		"comments": res.Comments,
		"follows":  res.Follows,
	}).Info("[CleanupService] 清理完成")
	return res
}
