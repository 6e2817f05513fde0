package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"propertyops_backend/platform/apperr"
)

// TriggerAny matches every emergency type when no type-specific rule exists.
const TriggerAny = "any"

// Rule is an operator-configured escalation tier for a property.
type Rule struct {
	ID                        uuid.UUID
	PropertyID                uuid.UUID
	TriggerCondition          string
	Level                     int
	Contacts                  []string
	ProviderID                *uuid.UUID
	MaxCostAuthorizationCents int64
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// RuleUpsertParams holds the fields for creating or replacing a rule.
type RuleUpsertParams struct {
	PropertyID                uuid.UUID
	TriggerCondition          string
	Level                     int
	Contacts                  []string
	ProviderID                *uuid.UUID
	MaxCostAuthorizationCents int64
}

// RuleRepository persists escalation rules.
type RuleRepository interface {
	Upsert(ctx context.Context, p RuleUpsertParams) (Rule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]Rule, error)

	// FindForLevel resolves the rule for (property, trigger, level), falling
	// back to the property's "any" rule at the same level. No match yields a
	// configuration error.
	FindForLevel(ctx context.Context, propertyID uuid.UUID, trigger string, level int) (Rule, error)
}

const ruleColumns = `
	id, property_id, trigger_condition, level, contacts, provider_id,
	max_cost_authorization_cents, created_at, updated_at`

// RuleRepo implements RuleRepository with PostgreSQL.
type RuleRepo struct {
	pool *pgxpool.Pool
}

// NewRuleRepo creates a new escalation rule repository.
func NewRuleRepo(pool *pgxpool.Pool) *RuleRepo {
	return &RuleRepo{pool: pool}
}

var _ RuleRepository = (*RuleRepo)(nil)

// Upsert creates or replaces the rule keyed by (property, trigger, level).
func (r *RuleRepo) Upsert(ctx context.Context, p RuleUpsertParams) (Rule, error) {
	query := `
		INSERT INTO escalation_rules (
			property_id, trigger_condition, level, contacts, provider_id,
			max_cost_authorization_cents
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (property_id, trigger_condition, level) DO UPDATE SET
			contacts = EXCLUDED.contacts,
			provider_id = EXCLUDED.provider_id,
			max_cost_authorization_cents = EXCLUDED.max_cost_authorization_cents,
			updated_at = now()
		RETURNING ` + ruleColumns

	rule, err := scanRule(r.pool.QueryRow(ctx, query,
		p.PropertyID, p.TriggerCondition, p.Level, p.Contacts, p.ProviderID,
		p.MaxCostAuthorizationCents,
	))
	if err != nil {
		return Rule{}, fmt.Errorf("upsert escalation rule: %w", err)
	}
	return rule, nil
}

// Delete removes a rule.
func (r *RuleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM escalation_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete escalation rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("escalation rule not found")
	}
	return nil
}

// ListByProperty retrieves all rules for a property ordered by level.
func (r *RuleRepo) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + `
		FROM escalation_rules WHERE property_id = $1
		ORDER BY trigger_condition, level`

	rows, err := r.pool.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list escalation rules: %w", err)
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escalation rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// FindForLevel resolves the most specific rule for the tier. Type-specific
// rules win over the property's "any" rule.
func (r *RuleRepo) FindForLevel(ctx context.Context, propertyID uuid.UUID, trigger string, level int) (Rule, error) {
	query := `SELECT ` + ruleColumns + `
		FROM escalation_rules
		WHERE property_id = $1 AND trigger_condition IN ($2, $3) AND level = $4
		ORDER BY CASE WHEN trigger_condition = $2 THEN 0 ELSE 1 END
		LIMIT 1`

	rule, err := scanRule(r.pool.QueryRow(ctx, query, propertyID, trigger, TriggerAny, level))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, apperr.Configuration(
				fmt.Sprintf("no escalation rule configured for property %s, trigger %q, level %d", propertyID, trigger, level))
		}
		return Rule{}, fmt.Errorf("find escalation rule: %w", err)
	}
	return rule, nil
}

func scanRule(row pgx.Row) (Rule, error) {
	var rule Rule
	err := row.Scan(
		&rule.ID, &rule.PropertyID, &rule.TriggerCondition, &rule.Level,
		&rule.Contacts, &rule.ProviderID, &rule.MaxCostAuthorizationCents,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	return rule, err
}
