package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"phishsim/entity"
	"phishsim/pkg/goutil"
	"phishsim/repo"

	"github.com/stretchr/testify/assert"
)

type mockCampaignRepo struct {
	repo.CampaignRepo

	due      []*entity.Campaign
	dueErr   error
	claimed  map[uint64]bool
	claimErr map[uint64]error
}

func newMockCampaignRepo(due ...*entity.Campaign) *mockCampaignRepo {
	return &mockCampaignRepo{
		due:      due,
		claimed:  make(map[uint64]bool),
		claimErr: make(map[uint64]error),
	}
}

func (m *mockCampaignRepo) GetDue(_ context.Context, _ uint64) ([]*entity.Campaign, error) {
	if m.dueErr != nil {
		return nil, m.dueErr
	}

	due := make([]*entity.Campaign, 0, len(m.due))
	for _, c := range m.due {
		if !m.claimed[c.GetID()] {
			due = append(due, c)
		}
	}
	return due, nil
}

func (m *mockCampaignRepo) Claim(_ context.Context, id uint64) (bool, error) {
	if err := m.claimErr[id]; err != nil {
		return false, err
	}
	if m.claimed[id] {
		return false, nil
	}
	m.claimed[id] = true
	return true, nil
}

type mockDispatcher struct {
	dispatched []uint64
	err        error
}

func (m *mockDispatcher) Dispatch(_ context.Context, campaign *entity.Campaign) error {
	m.dispatched = append(m.dispatched, campaign.GetID())
	return m.err
}

func dueCampaign(id uint64) *entity.Campaign {
	return &entity.Campaign{
		ID:          goutil.Uint64(id),
		Status:      entity.CampaignStatusScheduled,
		ScheduledAt: goutil.Uint64(uint64(time.Now().Add(-time.Minute).Unix())),
	}
}

func TestTick_DispatchesDueCampaigns(t *testing.T) {
	campaignRepo := newMockCampaignRepo(dueCampaign(1), dueCampaign(2))
	dispatcher := new(mockDispatcher)

	New(time.Minute, campaignRepo, dispatcher).Tick(context.Background())

	assert.ElementsMatch(t, []uint64{1, 2}, dispatcher.dispatched)
}

func TestTick_ClaimExactlyOnceAcrossTicks(t *testing.T) {
	campaignRepo := newMockCampaignRepo(dueCampaign(1))
	dispatcher := new(mockDispatcher)

	s := New(time.Minute, campaignRepo, dispatcher)
	s.Tick(context.Background())
	s.Tick(context.Background())

	assert.Equal(t, []uint64{1}, dispatcher.dispatched)
}

func TestTick_SkipsLostClaimRace(t *testing.T) {
	campaignRepo := newMockCampaignRepo(dueCampaign(1), dueCampaign(2))
	campaignRepo.claimed[1] = true // another instance got there first

	dispatcher := new(mockDispatcher)

	New(time.Minute, campaignRepo, dispatcher).Tick(context.Background())

	assert.Equal(t, []uint64{2}, dispatcher.dispatched)
}

func TestTick_SkipsUnclaimableStatus(t *testing.T) {
	active := dueCampaign(1)
	active.Status = entity.CampaignStatusActive

	campaignRepo := newMockCampaignRepo(active, dueCampaign(2))
	dispatcher := new(mockDispatcher)

	New(time.Minute, campaignRepo, dispatcher).Tick(context.Background())

	assert.Equal(t, []uint64{2}, dispatcher.dispatched)
	assert.False(t, campaignRepo.claimed[1])
}

func TestTick_ClaimErrorDoesNotAbortTick(t *testing.T) {
	campaignRepo := newMockCampaignRepo(dueCampaign(1), dueCampaign(2))
	campaignRepo.claimErr[1] = errors.New("db down")

	dispatcher := new(mockDispatcher)

	New(time.Minute, campaignRepo, dispatcher).Tick(context.Background())

	assert.Equal(t, []uint64{2}, dispatcher.dispatched)
}

func TestTick_DispatchErrorDoesNotAbortTick(t *testing.T) {
	campaignRepo := newMockCampaignRepo(dueCampaign(1), dueCampaign(2))
	dispatcher := &mockDispatcher{err: errors.New("smtp down")}

	New(time.Minute, campaignRepo, dispatcher).Tick(context.Background())

	assert.ElementsMatch(t, []uint64{1, 2}, dispatcher.dispatched)
}

func TestTick_GetDueError(t *testing.T) {
	campaignRepo := newMockCampaignRepo()
	campaignRepo.dueErr = errors.New("db down")

	dispatcher := new(mockDispatcher)

	New(time.Minute, campaignRepo, dispatcher).Tick(context.Background())

	assert.Empty(t, dispatcher.dispatched)
}
