package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mkravets/slug-registry/internal/models"
)

type MockSlugRepository struct {
	mock.Mock
}

func (r *MockSlugRepository) Create(ctx context.Context, accountID string, accountType models.AccountType, value string) (*models.Slug, error) {
	args := r.Called(ctx, accountID, accountType, value)
	if fn, ok := args.Get(0).(func(context.Context, string, models.AccountType, string) (*models.Slug, error)); ok {
		return fn(ctx, accountID, accountType, value)
	}
	rec, _ := args.Get(0).(*models.Slug)
	return rec, args.Error(1)
}

func (r *MockSlugRepository) GetByValue(ctx context.Context, value string) (*models.Slug, error) {
	args := r.Called(ctx, value)
	rec, _ := args.Get(0).(*models.Slug)
	return rec, args.Error(1)
}

func (r *MockSlugRepository) GetByAccount(ctx context.Context, accountID string) (*models.Slug, error) {
	args := r.Called(ctx, accountID)
	rec, _ := args.Get(0).(*models.Slug)
	return rec, args.Error(1)
}

func (r *MockSlugRepository) UpdateValue(ctx context.Context, accountID, value string) (*models.Slug, error) {
	args := r.Called(ctx, accountID, value)
	rec, _ := args.Get(0).(*models.Slug)
	return rec, args.Error(1)
}

func (r *MockSlugRepository) History(ctx context.Context, accountID string) ([]models.SlugChange, error) {
	args := r.Called(ctx, accountID)
	changes, _ := args.Get(0).([]models.SlugChange)
	return changes, args.Error(1)
}

func (r *MockSlugRepository) LatestChangeByOldValue(ctx context.Context, oldValue string) (*models.SlugChange, error) {
	args := r.Called(ctx, oldValue)
	change, _ := args.Get(0).(*models.SlugChange)
	return change, args.Error(1)
}

func (r *MockSlugRepository) FilterTaken(ctx context.Context, values []string) (map[string]struct{}, error) {
	args := r.Called(ctx, values)
	if fn, ok := args.Get(0).(func(context.Context, []string) (map[string]struct{}, error)); ok {
		return fn(ctx, values)
	}
	taken, _ := args.Get(0).(map[string]struct{})
	return taken, args.Error(1)
}
