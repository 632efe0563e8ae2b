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
	ErrResultNotFound = errors.New("campaign result not found")
)

type CampaignResult struct {
	ID            *uint64
	CampaignID    *uint64
	TargetID      *uint64
	Status        *uint32
	Sent          *bool
	SentAt        *uint64
	Opened        *bool
	OpenedAt      *uint64
	Clicked       *bool
	ClickedAt     *uint64
	Submitted     *bool
	SubmittedAt   *uint64
	SubmittedData *string
	CreateTime    *uint64
}

func (m *CampaignResult) TableName() string {
	return "campaign_result_tab"
}

func (m *CampaignResult) GetID() uint64 {
	if m != nil && m.ID != nil {
		return *m.ID
	}
	return 0
}

type ResultRepo interface {
	Create(ctx context.Context, result *entity.CampaignResult) (uint64, error)
	GetByCampaignIDAndTargetID(ctx context.Context, campaignID, targetID uint64) (*entity.CampaignResult, error)
	GetManyByCampaignID(ctx context.Context, campaignID uint64) ([]*entity.CampaignResult, error)
	// MarkOpened/MarkClicked/MarkSubmitted flip engagement flags. The
	// flags are monotone: a row already marked keeps its first timestamp.
	MarkOpened(ctx context.Context, campaignID, targetID uint64) error
	MarkClicked(ctx context.Context, campaignID, targetID uint64) error
	MarkSubmitted(ctx context.Context, campaignID, targetID uint64, submittedData string) error
	Close(ctx context.Context) error
}

type resultRepo struct {
	baseRepo BaseRepo
}

func NewResultRepo(_ context.Context, baseRepo BaseRepo) ResultRepo {
	return &resultRepo{
		baseRepo: baseRepo,
	}
}

func (r *resultRepo) Create(ctx context.Context, result *entity.CampaignResult) (uint64, error) {
	resultModel := ToCampaignResultModel(result)

	if err := r.baseRepo.Create(ctx, resultModel); err != nil {
		return 0, err
	}

	result.ID = resultModel.ID

	return resultModel.GetID(), nil
}

func (r *resultRepo) GetByCampaignIDAndTargetID(ctx context.Context, campaignID, targetID uint64) (*entity.CampaignResult, error) {
	result := new(CampaignResult)

	if err := r.baseRepo.Get(ctx, result, &Filter{
		Conditions: r.keyConditions(campaignID, targetID),
	}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}

	return ToCampaignResult(result), nil
}

func (r *resultRepo) GetManyByCampaignID(ctx context.Context, campaignID uint64) ([]*entity.CampaignResult, error) {
	res, _, err := r.baseRepo.GetMany(ctx, new(CampaignResult), &Filter{
		Conditions: []*Condition{
			{
				Field: "campaign_id",
				Value: campaignID,
				Op:    OpEq,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	results := make([]*entity.CampaignResult, len(res))
	for i, m := range res {
		results[i] = ToCampaignResult(m.(*CampaignResult))
	}

	return results, nil
}

func (r *resultRepo) MarkOpened(ctx context.Context, campaignID, targetID uint64) error {
	return r.markOnce(ctx, campaignID, targetID, "opened", map[string]interface{}{
		"opened":    true,
		"opened_at": uint64(time.Now().Unix()),
	})
}

func (r *resultRepo) MarkClicked(ctx context.Context, campaignID, targetID uint64) error {
	return r.markOnce(ctx, campaignID, targetID, "clicked", map[string]interface{}{
		"clicked":    true,
		"clicked_at": uint64(time.Now().Unix()),
	})
}

func (r *resultRepo) MarkSubmitted(ctx context.Context, campaignID, targetID uint64, submittedData string) error {
	return r.markOnce(ctx, campaignID, targetID, "submitted", map[string]interface{}{
		"submitted":      true,
		"submitted_at":   uint64(time.Now().Unix()),
		"submitted_data": submittedData,
	})
}

// markOnce guards the update on the flag still being false so the first
// hit's timestamp wins. Zero rows affected means already marked.
func (r *resultRepo) markOnce(ctx context.Context, campaignID, targetID uint64, flagField string, values map[string]interface{}) error {
	_, err := r.baseRepo.UpdateWhere(ctx, new(CampaignResult), &Filter{
		Conditions: append(r.keyConditions(campaignID, targetID), &Condition{
			Field: flagField,
			Value: false,
			Op:    OpEq,
		}),
	}, values)

	return err
}

func (r *resultRepo) keyConditions(campaignID, targetID uint64) []*Condition {
	return []*Condition{
		{
			Field: "campaign_id",
			Value: campaignID,
			Op:    OpEq,
		},
		{
			Field: "target_id",
			Value: targetID,
			Op:    OpEq,
		},
	}
}

func (r *resultRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func ToCampaignResult(result *CampaignResult) *entity.CampaignResult {
	var status entity.ResultStatus
	if result.Status != nil {
		status = entity.ResultStatus(*result.Status)
	}

	return &entity.CampaignResult{
		ID:            result.ID,
		CampaignID:    result.CampaignID,
		TargetID:      result.TargetID,
		Status:        status,
		Sent:          result.Sent,
		SentAt:        result.SentAt,
		Opened:        result.Opened,
		OpenedAt:      result.OpenedAt,
		Clicked:       result.Clicked,
		ClickedAt:     result.ClickedAt,
		Submitted:     result.Submitted,
		SubmittedAt:   result.SubmittedAt,
		SubmittedData: result.SubmittedData,
		CreateTime:    result.CreateTime,
	}
}

func ToCampaignResultModel(result *entity.CampaignResult) *CampaignResult {
	return &CampaignResult{
		ID:            result.ID,
		CampaignID:    result.CampaignID,
		TargetID:      result.TargetID,
		Status:        goutil.Uint32(uint32(result.Status)),
		Sent:          result.Sent,
		SentAt:        result.SentAt,
		Opened:        result.Opened,
		OpenedAt:      result.OpenedAt,
		Clicked:       result.Clicked,
		ClickedAt:     result.ClickedAt,
		Submitted:     result.Submitted,
		SubmittedAt:   result.SubmittedAt,
		SubmittedData: result.SubmittedData,
		CreateTime:    result.CreateTime,
	}
}
