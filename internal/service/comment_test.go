package service

import (
	"context"
	"errors"
	"testing"

	"github.com/user/moovie-social/internal/model"
)

func TestCommentCreate(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	alice := createUser(t, repos, "alice")
	m := createMovie(t, repos, alice.ID, 603, "The Matrix")
	svc := NewCommentService(repos)

	c, err := svc.Create(ctx, alice.ID, "  Brutal  ", model.MovieSubject(m.ID))
	if err != nil {
		t.Fatalf("发表评论失败: %v", err)
	}
	if c.Content != "Brutal" || c.Author == nil || c.Author.Username != "alice" {
		t.Fatalf("评论不符合预期: %+v", c)
	}

	// 帖子不在本系统中，不检查存在性
	if _, err := svc.Create(ctx, alice.ID, "Buen post", model.PostSubject(42)); err != nil {
		t.Fatalf("评论帖子失败: %v", err)
	}

	var before int64
	repos.DB.Model(&model.Comment{}).Count(&before)

	s := createSeries(t, repos, alice.ID, 1399, "Juego de tronos")
	zero := uint(0)
	post := uint(42)
	tests := []struct {
		name    string
		content string
		subject model.Subject
		want    error
	}{
		{"内容为空", "   ", model.MovieSubject(m.ID), ErrInvalidInput},
		{"未指定对象", "Hola", model.Subject{}, ErrSubjectRequired},
		{"引用全为 0", "Hola", model.Subject{Movie: &zero, Series: &zero, Post: &zero}, ErrSubjectRequired},
		{"同时指定电影和剧集", "Hola", model.Subject{Movie: &m.ID, Series: &s.ID}, ErrSubjectRequired},
		{"同时指定电影和帖子", "Hola", model.Subject{Movie: &m.ID, Post: &post}, ErrSubjectRequired},
		{"同时指定剧集和帖子", "Hola", model.Subject{Series: &s.ID, Post: &post}, ErrSubjectRequired},
		{"同时指定三者", "Hola", model.Subject{Movie: &m.ID, Series: &s.ID, Post: &post}, ErrSubjectRequired},
		{"电影不存在", "Hola", model.MovieSubject(9999), ErrNotFound},
		{"剧集不存在", "Hola", model.SeriesSubject(9999), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, alice.ID, tt.content, tt.subject); !errors.Is(err, tt.want) {
				t.Fatalf("期望 %v，实际 %v", tt.want, err)
			}
			var n int64
			repos.DB.Model(&model.Comment{}).Count(&n)
			if n != before {
				t.Fatalf("被拒绝的评论不应落库，评论数 %d -> %d", before, n)
			}
		})
	}

	// 值为 0 的引用视为未设置
	c, err = svc.Create(ctx, alice.ID, "Otra", model.Subject{Movie: &m.ID, Post: &zero})
	if err != nil || c.PostID != nil || c.MovieID == nil || *c.MovieID != m.ID {
		t.Fatalf("带 0 引用的评论应只指向电影: %+v %v", c, err)
	}
	if n, _ := repos.Comment.CountBySubject(ctx, model.MovieSubject(m.ID)); n != 2 {
		t.Fatalf("电影下应有 2 条评论，实际 %d", n)
	}
}

func TestCommentListForSubject(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	alice := createUser(t, repos, "alice")
	bob := createUser(t, repos, "bob")
	s := createSeries(t, repos, alice.ID, 1399, "Juego de tronos")
	svc := NewCommentService(repos)

	for _, in := range []struct {
		author  uint
		content string
	}{
		{alice.ID, "Primera"},
		{bob.ID, "Segunda"},
		{alice.ID, "Tercera"},
	} {
		if _, err := svc.Create(ctx, in.author, in.content, model.SeriesSubject(s.ID)); err != nil {
			t.Fatalf("发表评论失败: %v", err)
		}
	}
	// 同 ID 的帖子评论不应混入
	if _, err := svc.Create(ctx, bob.ID, "Otra cosa", model.PostSubject(s.ID)); err != nil {
		t.Fatalf("发表评论失败: %v", err)
	}

	list, err := svc.ListForSubject(ctx, model.SeriesSubject(s.ID))
	if err != nil {
		t.Fatalf("查询评论失败: %v", err)
	}
	want := []string{"Primera", "Segunda", "Tercera"}
	if len(list) != len(want) {
		t.Fatalf("期望 %d 条评论，实际 %d", len(want), len(list))
	}
	for i, c := range list {
		if c.Content != want[i] {
			t.Fatalf("第 %d 条应为 %q，实际 %q", i, want[i], c.Content)
		}
	}
	if list[1].Author == nil || list[1].Author.Username != "bob" {
		t.Fatalf("应附带作者用户名: %+v", list[1])
	}

	if _, err := svc.ListForSubject(ctx, model.Subject{}); !errors.Is(err, ErrSubjectRequired) {
		t.Fatalf("未指定对象应返回 ErrSubjectRequired，实际 %v", err)
	}
}

func TestCommentUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	alice := createUser(t, repos, "alice")
	bob := createUser(t, repos, "bob")
	m := createMovie(t, repos, alice.ID, 603, "The Matrix")
	svc := NewCommentService(repos)

	c, err := svc.Create(ctx, alice.ID, "Borrador", model.MovieSubject(m.ID))
	if err != nil {
		t.Fatalf("发表评论失败: %v", err)
	}

	if _, err := svc.Update(ctx, bob.ID, c.ID, "Hackeado"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("他人修改应返回 ErrForbidden，实际 %v", err)
	}
	if _, err := svc.Update(ctx, alice.ID, c.ID, " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("空内容应返回 ErrInvalidInput，实际 %v", err)
	}
	updated, err := svc.Update(ctx, alice.ID, c.ID, "Definitivo")
	if err != nil || updated.Content != "Definitivo" {
		t.Fatalf("修改失败: %+v %v", updated, err)
	}

	if err := svc.Delete(ctx, bob.ID, c.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("他人删除应返回 ErrForbidden，实际 %v", err)
	}
	if err := svc.Delete(ctx, alice.ID, c.ID); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if err := svc.Delete(ctx, alice.ID, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("重复删除应返回 ErrNotFound，实际 %v", err)
	}
}
