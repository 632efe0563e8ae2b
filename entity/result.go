package entity

import (
	"time"

	"phishsim/pkg/goutil"
)

type ResultStatus uint32

const (
	ResultStatusUnknown ResultStatus = iota
	ResultStatusPending
	ResultStatusSent
)

// CampaignResult is the per-(campaign, target) tracking row. One row exists
// per attempted target. The engagement flags are monotone: the hit handlers
// only ever flip them to true.
type CampaignResult struct {
	ID            *uint64      `json:"id,omitempty"`
	CampaignID    *uint64      `json:"campaign_id,omitempty"`
	TargetID      *uint64      `json:"target_id,omitempty"`
	Status        ResultStatus `json:"status,omitempty"`
	Sent          *bool        `json:"sent,omitempty"`
	SentAt        *uint64      `json:"sent_at,omitempty"`
	Opened        *bool        `json:"opened,omitempty"`
	OpenedAt      *uint64      `json:"opened_at,omitempty"`
	Clicked       *bool        `json:"clicked,omitempty"`
	ClickedAt     *uint64      `json:"clicked_at,omitempty"`
	Submitted     *bool        `json:"submitted,omitempty"`
	SubmittedAt   *uint64      `json:"submitted_at,omitempty"`
	SubmittedData *string      `json:"submitted_data,omitempty"`
	CreateTime    *uint64      `json:"create_time,omitempty"`
}

// NewSentResult records a successful send.
func NewSentResult(campaignID, targetID uint64) *CampaignResult {
	now := uint64(time.Now().Unix())

	return &CampaignResult{
		CampaignID: goutil.Uint64(campaignID),
		TargetID:   goutil.Uint64(targetID),
		Status:     ResultStatusSent,
		Sent:       goutil.Bool(true),
		SentAt:     goutil.Uint64(now),
		Opened:     goutil.Bool(false),
		Clicked:    goutil.Bool(false),
		Submitted:  goutil.Bool(false),
		CreateTime: goutil.Uint64(now),
	}
}

// NewPendingResult records a failed send attempt.
func NewPendingResult(campaignID, targetID uint64) *CampaignResult {
	now := uint64(time.Now().Unix())

	return &CampaignResult{
		CampaignID: goutil.Uint64(campaignID),
		TargetID:   goutil.Uint64(targetID),
		Status:     ResultStatusPending,
		Sent:       goutil.Bool(false),
		Opened:     goutil.Bool(false),
		Clicked:    goutil.Bool(false),
		Submitted:  goutil.Bool(false),
		CreateTime: goutil.Uint64(now),
	}
}

func (e *CampaignResult) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *CampaignResult) GetCampaignID() uint64 {
	if e != nil && e.CampaignID != nil {
		return *e.CampaignID
	}
	return 0
}

func (e *CampaignResult) GetTargetID() uint64 {
	if e != nil && e.TargetID != nil {
		return *e.TargetID
	}
	return 0
}

func (e *CampaignResult) GetStatus() ResultStatus {
	if e != nil {
		return e.Status
	}
	return ResultStatusUnknown
}

func (e *CampaignResult) GetSent() bool {
	if e != nil && e.Sent != nil {
		return *e.Sent
	}
	return false
}

func (e *CampaignResult) GetOpened() bool {
	if e != nil && e.Opened != nil {
		return *e.Opened
	}
	return false
}

func (e *CampaignResult) GetClicked() bool {
	if e != nil && e.Clicked != nil {
		return *e.Clicked
	}
	return false
}

func (e *CampaignResult) GetSubmitted() bool {
	if e != nil && e.Submitted != nil {
		return *e.Submitted
	}
	return false
}

func (e *CampaignResult) GetSubmittedData() string {
	if e != nil && e.SubmittedData != nil {
		return *e.SubmittedData
	}
	return ""
}
