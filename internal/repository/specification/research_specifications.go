package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OwnedBy struct {
	OwnerID uuid.UUID
}

func (s OwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_id = ?", s.OwnerID)
}

type ByTopicID struct {
	TopicID uuid.UUID
}

func (s ByTopicID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("topic_id = ?", s.TopicID)
}

// ActiveResearch keeps topics the engine is allowed to research.
type ActiveResearch struct{}

func (s ActiveResearch) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_active_research = ?", true)
}

type ByExpansionStatus struct {
	Statuses []string
}

func (s ByExpansionStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("expansion_status IN ?", s.Statuses)
}

// NotRetired hides topics that the lifecycle has permanently retired.
type NotRetired struct{}

func (s NotRetired) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("expansion_status <> ?", "retired")
}

type ByNormalizedName struct {
	Name string
}

func (s ByNormalizedName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("normalized_name = ?", s.Name)
}

type RootTopics struct{}

func (s RootTopics) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_expansion = ?", false)
}

type ByParentID struct {
	ParentID uuid.UUID
}

func (s ByParentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("parent_id = ?", s.ParentID)
}

// Engaged matches findings the owner has interacted with in any way.
type Engaged struct{}

func (s Engaged) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_read = ? OR is_bookmarked = ? OR is_integrated = ?", true, true, true)
}

type OccurredSince struct {
	Since time.Time
}

func (s OccurredSince) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("occurred_at >= ?", s.Since)
}
