package entity

type Target struct {
	ID         *uint64 `json:"id,omitempty"`
	GroupID    *uint64 `json:"group_id,omitempty"`
	FirstName  *string `json:"first_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Position   *string `json:"position,omitempty"`
	CreateTime *uint64 `json:"create_time,omitempty"`
}

func (e *Target) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *Target) GetGroupID() uint64 {
	if e != nil && e.GroupID != nil {
		return *e.GroupID
	}
	return 0
}

func (e *Target) GetFirstName() string {
	if e != nil && e.FirstName != nil {
		return *e.FirstName
	}
	return ""
}

func (e *Target) GetLastName() string {
	if e != nil && e.LastName != nil {
		return *e.LastName
	}
	return ""
}

func (e *Target) GetEmail() string {
	if e != nil && e.Email != nil {
		return *e.Email
	}
	return ""
}

func (e *Target) GetPosition() string {
	if e != nil && e.Position != nil {
		return *e.Position
	}
	return ""
}
