// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/datatypes"
)

// ContentStatus is the publication status of a content item.
type ContentStatus string

const (
	StatusDraft      ContentStatus = "Draft"
	StatusReview     ContentStatus = "Review"
	StatusScheduled  ContentStatus = "Scheduled"
	StatusPublished  ContentStatus = "Published"
	StatusRepurposed ContentStatus = "Repurposed"
)

// Statuses lists every valid ContentStatus in workflow order.
var Statuses = []ContentStatus{StatusDraft, StatusReview, StatusScheduled, StatusPublished, StatusRepurposed}

// Valid reports whether s is one of the enumerated statuses.
func (s ContentStatus) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// KanbanStage is the workflow bucket of a content item on the board.
type KanbanStage string

const (
	StageCreation     KanbanStage = "Creation"
	StageCuration     KanbanStage = "Curation"
	StageConversation KanbanStage = "Conversation"
)

// KanbanStages lists every valid KanbanStage in board order.
var KanbanStages = []KanbanStage{StageCreation, StageCuration, StageConversation}

func (k KanbanStage) Valid() bool {
	for _, v := range KanbanStages {
		if k == v {
			return true
		}
	}
	return false
}

// Platforms the UI offers. Platform is stored as free text, so this list is advisory.
var Platforms = []string{"LinkedIn", "Twitter", "X", "Instagram", "Newsletter", "Blog", "Email"}

// ContentItem is a planned, scheduled or published piece of content owned by one user.
type ContentItem struct {
	ID                    int64                             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                string                            `gorm:"type:varchar(255);not null;index:idx_content_items_user_id" json:"userId"`
	Title                 string                            `gorm:"type:text;not null" json:"title"`
	Brief                 *string                           `gorm:"type:text" json:"brief"`
	Status                ContentStatus                     `gorm:"type:varchar(20);not null;default:'Draft';index:idx_content_items_status" json:"status"`
	KanbanStage           KanbanStage                       `gorm:"type:varchar(20);not null;default:'Creation'" json:"kanbanStage"`
	Platform              string                            `gorm:"type:varchar(50);not null" json:"platform"`
	ScheduledAt           *time.Time                        `gorm:"index:idx_content_items_scheduled_at" json:"scheduledAt"`
	GoogleCalendarEventID *string                           `gorm:"type:varchar(255)" json:"googleCalendarEventId"`
	Intelligence          *datatypes.JSONType[Intelligence] `json:"intelligence"`
	CreatedAt             time.Time                         `gorm:"index:idx_content_items_created_at" json:"createdAt"`
	UpdatedAt             time.Time                         `json:"updatedAt"`
}

// TableName specifies the table name for GORM.
func (ContentItem) TableName() string {
	return "content_items"
}

// IntelligenceData returns the decoded intelligence block, or nil when unset.
func (c ContentItem) IntelligenceData() *Intelligence {
	if c.Intelligence == nil {
		return nil
	}
	data := c.Intelligence.Data()
	return &data
}

// Clone returns a copy that shares no mutable state with c.
func (c ContentItem) Clone() ContentItem {
	out := c
	out.Brief = clonePtr(c.Brief)
	out.ScheduledAt = clonePtr(c.ScheduledAt)
	out.GoogleCalendarEventID = clonePtr(c.GoogleCalendarEventID)
	if data := c.IntelligenceData(); data != nil {
		out.Intelligence = NewIntelligence(data.clone())
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Intelligence is the strategy block attached to a content item.
type Intelligence struct {
	Background     string         `json:"background,omitempty"`
	Mission        string         `json:"mission,omitempty"`
	Vision         string         `json:"vision,omitempty"`
	Purpose        string         `json:"purpose,omitempty"`
	TargetAudience string         `json:"targetAudience,omitempty"`
	Keywords       []string       `json:"keywords,omitempty"`
	Hashtags       []string       `json:"hashtags,omitempty"`
	CTA            string         `json:"cta,omitempty"`
	MetricsTarget  *MetricsTarget `json:"metricsTarget,omitempty"`
}

type MetricsTarget struct {
	Reach      *int `json:"reach,omitempty"`
	Engagement *int `json:"engagement,omitempty"`
	Leads      *int `json:"leads,omitempty"`
}

func (i Intelligence) clone() Intelligence {
	out := i
	if i.Keywords != nil {
		out.Keywords = append([]string(nil), i.Keywords...)
	}
	if i.Hashtags != nil {
		out.Hashtags = append([]string(nil), i.Hashtags...)
	}
	if i.MetricsTarget != nil {
		out.MetricsTarget = &MetricsTarget{
			Reach:      clonePtr(i.MetricsTarget.Reach),
			Engagement: clonePtr(i.MetricsTarget.Engagement),
			Leads:      clonePtr(i.MetricsTarget.Leads),
		}
	}
	return out
}

// NewIntelligence wraps i for storage in the intelligence column.
func NewIntelligence(i Intelligence) *datatypes.JSONType[Intelligence] {
	jt := datatypes.NewJSONType(i)
	return &jt
}
