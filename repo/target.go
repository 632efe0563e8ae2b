package repo

import (
	"context"
	"errors"
	"time"

	"phishsim/entity"
	"phishsim/pkg/goutil"

	"gorm.io/gorm"
)

var (
	ErrTargetNotFound = errors.New("target not found")
)

type Target struct {
	ID         *uint64
	GroupID    *uint64
	FirstName  *string
	LastName   *string
	Email      *string
	Position   *string
	CreateTime *uint64
}

func (m *Target) TableName() string {
	return "target_tab"
}

type TargetRepo interface {
	CreateMany(ctx context.Context, groupID uint64, targets []*entity.Target) error
	GetByID(ctx context.Context, id uint64) (*entity.Target, error)
	// GetManyByGroupID returns targets in insertion order; the dispatch
	// path relies on a stable ordering only, not a particular one.
	GetManyByGroupID(ctx context.Context, groupID uint64) ([]*entity.Target, error)
	Count(ctx context.Context, groupID uint64) (uint64, error)
	Close(ctx context.Context) error
}

type targetRepo struct {
	baseRepo BaseRepo
}

func NewTargetRepo(_ context.Context, baseRepo BaseRepo) TargetRepo {
	return &targetRepo{
		baseRepo: baseRepo,
	}
}

func (r *targetRepo) CreateMany(ctx context.Context, groupID uint64, targets []*entity.Target) error {
	now := uint64(time.Now().Unix())

	targetModels := make([]*Target, 0, len(targets))
	for _, target := range targets {
		targetModels = append(targetModels, &Target{
			GroupID:    goutil.Uint64(groupID),
			FirstName:  target.FirstName,
			LastName:   target.LastName,
			Email:      target.Email,
			Position:   target.Position,
			CreateTime: goutil.Uint64(now),
		})
	}

	if err := r.baseRepo.CreateMany(ctx, new(Target), targetModels); err != nil {
		return err
	}

	for i, targetModel := range targetModels {
		targets[i].ID = targetModel.ID
		targets[i].GroupID = targetModel.GroupID
	}

	return nil
}

func (r *targetRepo) GetByID(ctx context.Context, id uint64) (*entity.Target, error) {
	target := new(Target)

	if err := r.baseRepo.Get(ctx, target, &Filter{
		Conditions: []*Condition{
			{
				Field: "id",
				Value: id,
				Op:    OpEq,
			},
		},
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}

	return ToTarget(target), nil
}

func (r *targetRepo) GetManyByGroupID(ctx context.Context, groupID uint64) ([]*entity.Target, error) {
	res, _, err := r.baseRepo.GetMany(ctx, new(Target), &Filter{
		Conditions: []*Condition{
			{
				Field: "group_id",
				Value: groupID,
				Op:    OpEq,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	targets := make([]*entity.Target, len(res))
	for i, m := range res {
		targets[i] = ToTarget(m.(*Target))
	}

	return targets, nil
}

func (r *targetRepo) Count(ctx context.Context, groupID uint64) (uint64, error) {
	return r.baseRepo.Count(ctx, new(Target), &Filter{
		Conditions: []*Condition{
			{
				Field: "group_id",
				Value: groupID,
				Op:    OpEq,
			},
		},
	})
}

func (r *targetRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func ToTarget(target *Target) *entity.Target {
	return &entity.Target{
		ID:         target.ID,
		GroupID:    target.GroupID,
		FirstName:  target.FirstName,
		LastName:   target.LastName,
		Email:      target.Email,
		Position:   target.Position,
		CreateTime: target.CreateTime,
	}
}
