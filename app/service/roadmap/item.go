package roadmap

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Source string

const (
	SourceAIGenerated Source = "ai-generated"
	SourceUserAdded   Source = "user-added"
	SourceRoadmapSh   Source = "roadmap-sh"
)

// Resource is a learning link. Clients may send a bare string, which becomes
// a resource with only a name, and it is written back as a string.
type Resource struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

func (r *Resource) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*r = Resource{Name: name}
		return nil
	}

	type plain Resource
	var value plain
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	*r = Resource(value)
	return nil
}

func (r Resource) MarshalJSON() ([]byte, error) {
	if r.URL == "" {
		return json.Marshal(r.Name)
	}

	type plain Resource
	return json.Marshal(plain(r))
}

type Item struct {
	ID            string     `json:"id"`
	UserID        string     `json:"-"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        Status     `json:"status"`
	Priority      Priority   `json:"priority"`
	EstimatedTime string     `json:"estimatedTime"`
	Skills        []string   `json:"skills"`
	Resources     []Resource `json:"resources"`
	Source        Source     `json:"source"`
	StepNumber    int        `json:"stepNumber"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type CreateInput struct {
	Title         string     `json:"title" validate:"required,max=255"`
	Description   string     `json:"description"`
	Status        Status     `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority      Priority   `json:"priority" validate:"omitempty,oneof=high medium low"`
	EstimatedTime string     `json:"estimatedTime" validate:"max=100"`
	Skills        []string   `json:"skills"`
	Resources     []Resource `json:"resources"`
	Source        Source     `json:"source" validate:"omitempty,oneof=ai-generated user-added roadmap-sh"`
	// StepNumber defaults to the number of existing items plus one.
	StepNumber *int `json:"stepNumber" validate:"omitempty,gte=0"`
}

// Patch holds the fields to change; nil fields are left alone.
type Patch struct {
	Title         *string     `json:"title" validate:"omitempty,min=1,max=255"`
	Description   *string     `json:"description"`
	Status        *Status     `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority      *Priority   `json:"priority" validate:"omitempty,oneof=high medium low"`
	EstimatedTime *string     `json:"estimatedTime" validate:"omitempty,max=100"`
	Skills        *[]string   `json:"skills"`
	Resources     *[]Resource `json:"resources"`
	StepNumber    *int        `json:"stepNumber" validate:"omitempty,gte=0"`
}

func (p *Patch) Apply(item *Item, now time.Time) {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.Priority != nil {
		item.Priority = *p.Priority
	}
	if p.EstimatedTime != nil {
		item.EstimatedTime = *p.EstimatedTime
	}
	if p.Skills != nil {
		item.Skills = *p.Skills
	}
	if p.Resources != nil {
		item.Resources = *p.Resources
	}
	if p.StepNumber != nil {
		item.StepNumber = *p.StepNumber
	}

	item.UpdatedAt = now
}
