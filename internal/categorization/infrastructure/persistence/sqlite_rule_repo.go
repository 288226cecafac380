package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/timelens/timelens/internal/categorization/domain"
)

// SQLiteRuleRepository implements RuleRepository using SQLite.
type SQLiteRuleRepository struct {
	db *sql.DB
}

// NewSQLiteRuleRepository creates a new SQLite rule repository.
func NewSQLiteRuleRepository(db *sql.DB) *SQLiteRuleRepository {
	return &SQLiteRuleRepository{db: db}
}

// Save persists a rule.
func (r *SQLiteRuleRepository) Save(ctx context.Context, rule *domain.Rule) error {
	query := `
		INSERT INTO category_rules (id, category_id, rule_type, rule_value, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			rule_type = excluded.rule_type,
			rule_value = excluded.rule_value
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID().String(),
		rule.CategoryID().String(),
		string(rule.Type()),
		rule.Value(),
		rule.CreatedAt().Format(time.RFC3339),
	)
	return err
}

// FindByCategory returns a category's rules in insertion order.
func (r *SQLiteRuleRepository) FindByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Rule, error) {
	query := `
		SELECT id, category_id, rule_type, rule_value, created_at
		FROM category_rules
		WHERE category_id = ?
		ORDER BY rowid
	`

	rows, err := r.db.QueryContext(ctx, query, categoryID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRules(rows)
}

// FindByUser returns all rules across the user's categories in
// evaluation order: category sort order, then rule insertion order.
func (r *SQLiteRuleRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Rule, error) {
	query := `
		SELECT cr.id, cr.category_id, cr.rule_type, cr.rule_value, cr.created_at
		FROM category_rules cr
		JOIN categories c ON c.id = cr.category_id
		WHERE c.user_id = ?
		ORDER BY c.sort_order, cr.rowid
	`

	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRules(rows)
}

// Delete removes a rule, scoped to its category.
func (r *SQLiteRuleRepository) Delete(ctx context.Context, id, categoryID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM category_rules WHERE id = ? AND category_id = ?`,
		id.String(), categoryID.String(),
	)
	return err
}

func scanRules(rows *sql.Rows) ([]*domain.Rule, error) {
	var rules []*domain.Rule
	for rows.Next() {
		var (
			idStr         string
			categoryIDStr string
			ruleType      string
			ruleValue     string
			createdAtStr  string
		)
		if err := rows.Scan(&idStr, &categoryIDStr, &ruleType, &ruleValue, &createdAtStr); err != nil {
			return nil, err
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		categoryID, err := uuid.Parse(categoryIDStr)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, err
		}

		rules = append(rules, domain.RehydrateRule(id, categoryID, domain.RuleType(ruleType), ruleValue, createdAt))
	}
	return rules, rows.Err()
}
