package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/timelens/timelens/internal/categorization/domain"
	identitydomain "github.com/timelens/timelens/internal/identity/domain"
	identitypersistence "github.com/timelens/timelens/internal/identity/infrastructure/persistence"
	"github.com/timelens/timelens/internal/shared/infrastructure/migrations"
)

// setupCategorizationTestDB creates an in-memory SQLite database with
// the schema applied and one user to hang rows off.
func setupCategorizationTestDB(t *testing.T) (*sql.DB, uuid.UUID) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.RunSQLite(context.Background(), db))

	user, err := identitydomain.NewUser("owner@example.com", "Owner")
	require.NoError(t, err)
	require.NoError(t, identitypersistence.NewSQLiteUserRepository(db).Save(context.Background(), user))
	return db, user.ID()
}

func createTestCategory(t *testing.T, db *sql.DB, userID uuid.UUID, name string, sortOrder int, isSystem bool) *domain.Category {
	t.Helper()

	category, err := domain.NewCategory(userID, name, "#3b82f6", sortOrder, isSystem)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteCategoryRepository(db).Save(context.Background(), category))
	return category
}

func TestSQLiteCategoryRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("lists categories in sort order", func(t *testing.T) {
		db, userID := setupCategorizationTestDB(t)
		repo := NewSQLiteCategoryRepository(db)

		createTestCategory(t, db, userID, "Second", 1, false)
		createTestCategory(t, db, userID, "First", 0, false)

		categories, err := repo.FindByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, categories, 2)
		assert.Equal(t, "First", categories[0].Name())
		assert.Equal(t, "Second", categories[1].Name())
	})

	t.Run("updates name and color on save", func(t *testing.T) {
		db, userID := setupCategorizationTestDB(t)
		repo := NewSQLiteCategoryRepository(db)

		category := createTestCategory(t, db, userID, "Meetings", 0, false)
		require.NoError(t, category.Rename("Syncs"))
		category.SetColor("#ef4444")
		require.NoError(t, repo.Save(ctx, category))

		found, err := repo.FindByID(ctx, category.ID())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Syncs", found.Name())
		assert.Equal(t, "#ef4444", found.Color())
	})

	t.Run("returns nil for unknown category", func(t *testing.T) {
		db, _ := setupCategorizationTestDB(t)
		repo := NewSQLiteCategoryRepository(db)

		found, err := repo.FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("max sort order is -1 with no categories", func(t *testing.T) {
		db, userID := setupCategorizationTestDB(t)
		repo := NewSQLiteCategoryRepository(db)

		maxOrder, err := repo.MaxSortOrder(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, -1, maxOrder)

		createTestCategory(t, db, userID, "Meetings", 3, false)
		maxOrder, err = repo.MaxSortOrder(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 3, maxOrder)
	})

	t.Run("deletes only system categories", func(t *testing.T) {
		db, userID := setupCategorizationTestDB(t)
		repo := NewSQLiteCategoryRepository(db)

		createTestCategory(t, db, userID, "Generated", 0, true)
		kept := createTestCategory(t, db, userID, "Mine", 1, false)

		require.NoError(t, repo.DeleteSystemByUser(ctx, userID))

		categories, err := repo.FindByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, categories, 1)
		assert.Equal(t, kept.ID(), categories[0].ID())
	})
}

func TestSQLiteRuleRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("orders rules by category sort order then insertion", func(t *testing.T) {
		db, userID := setupCategorizationTestDB(t)
		repo := NewSQLiteRuleRepository(db)

		second := createTestCategory(t, db, userID, "Second", 1, false)
		first := createTestCategory(t, db, userID, "First", 0, false)

		ruleB, err := domain.NewRule(second.ID(), domain.RuleKeyword, "standup")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, ruleB))

		ruleA1, err := domain.NewRule(first.ID(), domain.RuleKeyword, "sync")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, ruleA1))

		ruleA2, err := domain.NewRule(first.ID(), domain.RulePrefix, "1on1")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, ruleA2))

		rules, err := repo.FindByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, rules, 3)
		assert.Equal(t, ruleA1.ID(), rules[0].ID())
		assert.Equal(t, ruleA2.ID(), rules[1].ID())
		assert.Equal(t, ruleB.ID(), rules[2].ID())
	})

	t.Run("delete is scoped to the category", func(t *testing.T) {
		db, userID := setupCategorizationTestDB(t)
		repo := NewSQLiteRuleRepository(db)

		category := createTestCategory(t, db, userID, "Meetings", 0, false)
		rule, err := domain.NewRule(category.ID(), domain.RuleExact, "focus time")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, rule))

		require.NoError(t, repo.Delete(ctx, rule.ID(), uuid.New()))
		rules, err := repo.FindByCategory(ctx, category.ID())
		require.NoError(t, err)
		assert.Len(t, rules, 1)

		require.NoError(t, repo.Delete(ctx, rule.ID(), category.ID()))
		rules, err = repo.FindByCategory(ctx, category.ID())
		require.NoError(t, err)
		assert.Empty(t, rules)
	})
}

func TestSQLiteAssignmentRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("automatic upsert is idempotent", func(t *testing.T) {
		db, userID := setupCategorizationTestDB(t)
		repo := NewSQLiteAssignmentRepository(db)

		first := createTestCategory(t, db, userID, "First", 0, false)
		second := createTestCategory(t, db, userID, "Second", 1, false)

		require.NoError(t, repo.UpsertAutomatic(ctx, domain.NewAssignment(userID, "e1", first.ID(), false)))
		require.NoError(t, repo.UpsertAutomatic(ctx, domain.NewAssignment(userID, "e1", second.ID(), false)))

		assignments, err := repo.FindByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, assignments, 1)
		assert.Equal(t, second.ID(), assignments[0].CategoryID)
		assert.False(t, assignments[0].IsManual)
	})

	t.Run("automatic upsert never overwrites a manual assignment", func(t *testing.T) {
		db, userID := setupCategorizationTestDB(t)
		repo := NewSQLiteAssignmentRepository(db)

		manual := createTestCategory(t, db, userID, "Manual", 0, false)
		auto := createTestCategory(t, db, userID, "Auto", 1, false)

		require.NoError(t, repo.UpsertManual(ctx, domain.NewAssignment(userID, "e1", manual.ID(), true)))
		require.NoError(t, repo.UpsertAutomatic(ctx, domain.NewAssignment(userID, "e1", auto.ID(), false)))

		assignments, err := repo.FindByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, assignments, 1)
		assert.Equal(t, manual.ID(), assignments[0].CategoryID)
		assert.True(t, assignments[0].IsManual)
	})

	t.Run("manual upsert overrides an automatic assignment", func(t *testing.T) {
		db, userID := setupCategorizationTestDB(t)
		repo := NewSQLiteAssignmentRepository(db)

		auto := createTestCategory(t, db, userID, "Auto", 0, false)
		manual := createTestCategory(t, db, userID, "Manual", 1, false)

		require.NoError(t, repo.UpsertAutomatic(ctx, domain.NewAssignment(userID, "e1", auto.ID(), false)))
		require.NoError(t, repo.UpsertManual(ctx, domain.NewAssignment(userID, "e1", manual.ID(), true)))

		assignments, err := repo.FindByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, assignments, 1)
		assert.Equal(t, manual.ID(), assignments[0].CategoryID)
		assert.True(t, assignments[0].IsManual)
	})

	t.Run("finds only manual assignments among given events", func(t *testing.T) {
		db, userID := setupCategorizationTestDB(t)
		repo := NewSQLiteAssignmentRepository(db)

		category := createTestCategory(t, db, userID, "Meetings", 0, false)

		require.NoError(t, repo.UpsertManual(ctx, domain.NewAssignment(userID, "manual-1", category.ID(), true)))
		require.NoError(t, repo.UpsertAutomatic(ctx, domain.NewAssignment(userID, "auto-1", category.ID(), false)))

		found, err := repo.FindManualByUserAndEvents(ctx, userID, []string{"manual-1", "auto-1", "absent"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "manual-1", found[0].EventID)

		found, err = repo.FindManualByUserAndEvents(ctx, userID, nil)
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestSQLiteTitleCacheRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("latest write wins per normalized title", func(t *testing.T) {
		db, userID := setupCategorizationTestDB(t)
		repo := NewSQLiteTitleCacheRepository(db)

		first := createTestCategory(t, db, userID, "First", 0, false)
		second := createTestCategory(t, db, userID, "Second", 1, false)

		require.NoError(t, repo.Put(ctx, userID, "weekly sync", first.ID()))
		require.NoError(t, repo.Put(ctx, userID, "weekly sync", second.ID()))
		require.NoError(t, repo.Put(ctx, userID, "deep work", first.ID()))

		cache, err := repo.FindByUser(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, cache, 2)
		assert.Equal(t, second.ID(), cache["weekly sync"])
		assert.Equal(t, first.ID(), cache["deep work"])
	})
}
