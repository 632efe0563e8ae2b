package repo

import (
	"context"

	"phishsim/entity"
	"phishsim/pkg/goutil"
)

type EventLog struct {
	ID         *uint64
	CampaignID *uint64
	TargetID   *uint64
	Event      *uint32
	Details    *string
	EventTime  *uint64
	CreateTime *uint64
}

func (m *EventLog) TableName() string {
	return "event_log_tab"
}

type EventLogRepo interface {
	Create(ctx context.Context, eventLog *entity.EventLog) error
	BatchCreate(ctx context.Context, eventLogs []*entity.EventLog) error
	GetManyByCampaignID(ctx context.Context, campaignID uint64) ([]*entity.EventLog, error)
	Close(ctx context.Context) error
}

type eventLogRepo struct {
	baseRepo BaseRepo
}

func NewEventLogRepo(_ context.Context, baseRepo BaseRepo) EventLogRepo {
	return &eventLogRepo{
		baseRepo: baseRepo,
	}
}

func (r *eventLogRepo) Create(ctx context.Context, eventLog *entity.EventLog) error {
	return r.baseRepo.Create(ctx, ToEventLogModel(eventLog))
}

func (r *eventLogRepo) BatchCreate(ctx context.Context, eventLogs []*entity.EventLog) error {
	eventLogModels := make([]*EventLog, 0, len(eventLogs))
	for _, eventLog := range eventLogs {
		eventLogModels = append(eventLogModels, ToEventLogModel(eventLog))
	}

	return r.baseRepo.CreateMany(ctx, new(EventLog), eventLogModels)
}

func (r *eventLogRepo) GetManyByCampaignID(ctx context.Context, campaignID uint64) ([]*entity.EventLog, error) {
	res, _, err := r.baseRepo.GetMany(ctx, new(EventLog), &Filter{
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

	eventLogs := make([]*entity.EventLog, len(res))
	for i, m := range res {
		eventLogs[i] = ToEventLog(m.(*EventLog))
	}

	return eventLogs, nil
}

func (r *eventLogRepo) Close(ctx context.Context) error {
	return r.baseRepo.Close(ctx)
}

func ToEventLog(eventLog *EventLog) *entity.EventLog {
	var event entity.Event
	if eventLog.Event != nil {
		event = entity.Event(*eventLog.Event)
	}

	return &entity.EventLog{
		ID:         eventLog.ID,
		CampaignID: eventLog.CampaignID,
		TargetID:   eventLog.TargetID,
		Event:      event,
		Details:    eventLog.Details,
		EventTime:  eventLog.EventTime,
		CreateTime: eventLog.CreateTime,
	}
}

func ToEventLogModel(eventLog *entity.EventLog) *EventLog {
	return &EventLog{
		ID:         eventLog.ID,
		CampaignID: eventLog.CampaignID,
		TargetID:   eventLog.TargetID,
		Event:      goutil.Uint32(uint32(eventLog.GetEvent())),
		Details:    eventLog.Details,
		EventTime:  eventLog.EventTime,
		CreateTime: eventLog.CreateTime,
	}
}
