package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"ai-research-be/internal/dto"
	"ai-research-be/internal/entity"
	"ai-research-be/internal/model"
	"ai-research-be/internal/pkg/logger"
	"ai-research-be/internal/repository/memory"
	"ai-research-be/internal/repository/unitofwork"
	"ai-research-be/internal/service"
	"ai-research-be/pkg/database"
	"ai-research-be/pkg/research"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()

	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err, "connect")

	require.NoError(t, db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error)
	require.NoError(t, db.AutoMigrate(&model.Topic{}, &model.Finding{}, &model.TopicEngagementEvent{}))
	return db
}

func cleanupOwner(t *testing.T, db *gorm.DB, ownerID uuid.UUID) {
	t.Cleanup(func() {
		db.Where("owner_id = ?", ownerID).Delete(&model.TopicEngagementEvent{})
		db.Where("owner_id = ?", ownerID).Delete(&model.Finding{})
		db.Where("owner_id = ?", ownerID).Delete(&model.Topic{})
	})
}

func TestResearchStoreIntegration(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	ownerID := uuid.New()
	cleanupOwner(t, db, ownerID)

	store := service.NewResearchStore(unitofwork.NewRepositoryFactory(db), 2)

	root, err := store.CreateTopic(ctx, ownerID, research.NewTopic{Name: "Fusion Energy", Confidence: 1, Active: true})
	require.NoError(t, err)
	assert.True(t, root.ChildExpansionEnabled)
	assert.True(t, root.IsActiveResearch)

	t.Run("duplicate normalized name", func(t *testing.T) {
		_, err := store.CreateTopic(ctx, ownerID, research.NewTopic{Name: "  fusion energy ", Active: true})
		assert.ErrorIs(t, err, research.ErrDuplicateTopic)
	})

	t.Run("expansion keeps explicit false flags", func(t *testing.T) {
		child, err := store.CreateTopic(ctx, ownerID, research.NewTopic{
			Name:        "Tokamak Materials",
			Confidence:  0.8,
			IsExpansion: true,
			Depth:       1,
			ParentID:    &root.Id,
			Active:      false,
		})
		require.NoError(t, err)

		all, err := store.GetAllTopics(ctx, ownerID)
		require.NoError(t, err)
		require.Len(t, all, 2)

		var loaded *entity.Topic
		for _, tp := range all {
			if tp.Id == child.Id {
				loaded = tp
			}
		}
		require.NotNil(t, loaded)
		assert.False(t, loaded.IsActiveResearch)
		assert.False(t, loaded.ChildExpansionEnabled)
		assert.Equal(t, 1, loaded.ExpansionDepth)

		active, err := store.GetActiveTopics(ctx, ownerID)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("active quota", func(t *testing.T) {
		ok, err := store.CanActivateTopic(ctx, ownerID)
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = store.CreateTopic(ctx, ownerID, research.NewTopic{Name: "Stellarators", Active: true})
		require.NoError(t, err)

		ok, err = store.CanActivateTopic(ctx, ownerID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("findings", func(t *testing.T) {
		stored, err := store.StoreFinding(ctx, root.Id, &entity.Finding{Summary: "first", Content: "a", SourceUrls: []string{"https://example.org/a"}})
		require.NoError(t, err)
		assert.True(t, stored)

		time.Sleep(10 * time.Millisecond)
		_, err = store.StoreFinding(ctx, root.Id, &entity.Finding{Summary: "second", Content: "b"})
		require.NoError(t, err)

		recent, err := store.GetRecentFindings(ctx, root.Id, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "second", recent[0].Summary)
		assert.Equal(t, ownerID, recent[0].OwnerId)

		stored, err = store.StoreFinding(ctx, uuid.New(), &entity.Finding{Summary: "orphan"})
		require.NoError(t, err)
		assert.False(t, stored)
	})

	t.Run("last researched and save", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, store.UpdateTopicLastResearched(ctx, root.Id, at))

		active, err := store.GetActiveTopics(ctx, ownerID)
		require.NoError(t, err)

		var loaded *entity.Topic
		for _, tp := range active {
			if tp.Id == root.Id {
				loaded = tp
			}
		}
		require.NotNil(t, loaded)
		require.NotNil(t, loaded.LastResearched)
		assert.WithinDuration(t, at, *loaded.LastResearched, time.Second)

		loaded.PauseCount = 3
		loaded.StalenessCoefficient = 1.5
		require.NoError(t, store.SaveTopics(ctx, ownerID, []*entity.Topic{loaded}))

		assert.Error(t, store.SaveTopics(ctx, uuid.New(), []*entity.Topic{loaded}))
	})

	t.Run("owners", func(t *testing.T) {
		owners, err := store.ListOwners(ctx)
		require.NoError(t, err)
		assert.Contains(t, owners, ownerID)
	})
}

func TestEngagementServiceIntegration(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	ownerID := uuid.New()
	cleanupOwner(t, db, ownerID)

	uowFactory := unitofwork.NewRepositoryFactory(db)
	store := service.NewResearchStore(uowFactory, 0)
	svc := service.NewEngagementService(uowFactory, memory.NewEngagementCache(time.Minute), 30*24*time.Hour, logger.NewNopLogger())

	topic, err := store.CreateTopic(ctx, ownerID, research.NewTopic{Name: "Quantum Error Correction", Active: true})
	require.NoError(t, err)

	finding := &entity.Finding{Summary: "surface codes", Content: "..."}
	_, err = store.StoreFinding(ctx, topic.Id, finding)
	require.NoError(t, err)

	recent, err := store.GetRecentFindings(ctx, topic.Id, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	findingID := recent[0].Id

	stats, err := svc.GetEngagementStats(ctx, topic.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.FindingsTotal)
	assert.Equal(t, int64(0), stats.FindingsEngaged)

	_, err = svc.RecordEngagement(ctx, ownerID, &dto.RecordEngagementRequest{
		TopicId:   topic.Id,
		FindingId: &findingID,
		Kind:      string(entity.EngagementBookmark),
	})
	require.NoError(t, err)

	stats, err = svc.GetEngagementStats(ctx, topic.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Bookmarks)
	assert.Equal(t, int64(1), stats.FindingsEngaged)
	assert.NotNil(t, stats.LastEngagedAt)
	assert.NotNil(t, stats.LastReadAt)

	clicked, err := store.CreateTopic(ctx, ownerID, research.NewTopic{Name: "Lattice Surgery", Active: true})
	require.NoError(t, err)
	_, err = svc.RecordEngagement(ctx, ownerID, &dto.RecordEngagementRequest{
		TopicId: clicked.Id,
		Kind:    string(entity.EngagementSourceClick),
	})
	require.NoError(t, err)

	clickStats, err := svc.GetEngagementStats(ctx, clicked.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), clickStats.SourceClicks)
	assert.NotNil(t, clickStats.LastEngagedAt)
	assert.Nil(t, clickStats.LastReadAt, "a click is not a read")

	_, err = svc.RecordEngagement(ctx, uuid.New(), &dto.RecordEngagementRequest{
		TopicId: topic.Id,
		Kind:    string(entity.EngagementActivation),
	})
	assert.Error(t, err, "foreign owner cannot record engagement")
}
