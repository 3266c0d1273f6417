package entity

import (
	"time"

	"github.com/google/uuid"
)

type ExpansionStatus string

const (
	ExpansionStatusActive  ExpansionStatus = "active"
	ExpansionStatusPaused  ExpansionStatus = "paused"
	ExpansionStatusRetired ExpansionStatus = "retired"
)

type Topic struct {
	Id                    uuid.UUID
	OwnerId               uuid.UUID
	ParentId              *uuid.UUID
	Name                  string
	Description           string
	ConfidenceScore       float64
	IsActiveResearch      bool
	IsExpansion           bool
	ExpansionDepth        int
	ChildExpansionEnabled bool
	ExpansionStatus       ExpansionStatus
	LastResearched        *time.Time
	LastEvaluatedAt       time.Time
	LastBackoffUntil      *time.Time
	PausedAt              *time.Time
	PauseCount            int
	StalenessCoefficient  float64
	CreatedAt             time.Time
	UpdatedAt             *time.Time
}

// InBackoff reports whether the topic is inside a pause backoff window at now.
func (t *Topic) InBackoff(now time.Time) bool {
	return t.LastBackoffUntil != nil && now.Before(*t.LastBackoffUntil)
}

// IsRoot reports whether the topic was declared by the user rather than discovered.
func (t *Topic) IsRoot() bool {
	return !t.IsExpansion
}

// Clone returns a copy that shares no pointers with t.
func (t *Topic) Clone() *Topic {
	if t == nil {
		return nil
	}
	c := *t
	c.ParentId = cloneUUID(t.ParentId)
	c.LastResearched = cloneTime(t.LastResearched)
	c.LastBackoffUntil = cloneTime(t.LastBackoffUntil)
	c.PausedAt = cloneTime(t.PausedAt)
	c.UpdatedAt = cloneTime(t.UpdatedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
