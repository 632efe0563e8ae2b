package entity

import (
	"time"

	"phishsim/pkg/goutil"
)

type Event uint32

const (
	EventUnknown Event = iota
	EventSent
	EventOpened
	EventClicked
	EventSubmitted
)

var SupportedEvents = map[string]Event{
	"sent":      EventSent,
	"opened":    EventOpened,
	"clicked":   EventClicked,
	"submitted": EventSubmitted,
}

// EventLog is one entry on a campaign's timeline.
type EventLog struct {
	ID         *uint64 `json:"id,omitempty"`
	CampaignID *uint64 `json:"campaign_id,omitempty"`
	TargetID   *uint64 `json:"target_id,omitempty"`
	Event      Event   `json:"event,omitempty"`
	Details    *string `json:"details,omitempty"`
	EventTime  *uint64 `json:"event_time,omitempty"`
	CreateTime *uint64 `json:"create_time,omitempty"`
}

func NewEventLog(campaignID, targetID uint64, event Event, details string, eventTime uint64) *EventLog {
	return &EventLog{
		CampaignID: goutil.Uint64(campaignID),
		TargetID:   goutil.Uint64(targetID),
		Event:      event,
		Details:    goutil.String(details),
		EventTime:  goutil.Uint64(eventTime),
		CreateTime: goutil.Uint64(uint64(time.Now().Unix())),
	}
}

func (e *EventLog) GetEvent() Event {
	if e != nil {
		return e.Event
	}
	return EventUnknown
}

func (e *EventLog) GetCampaignID() uint64 {
	if e != nil && e.CampaignID != nil {
		return *e.CampaignID
	}
	return 0
}

func (e *EventLog) GetTargetID() uint64 {
	if e != nil && e.TargetID != nil {
		return *e.TargetID
	}
	return 0
}
