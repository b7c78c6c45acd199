package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinscribe/revisor/internal/classify"
)

var _ RuleStore = (*Postgres)(nil)

// Postgres is the production RuleStore backed by the rules table
// (migrations/001_init.sql).
type Postgres struct {
	pool *pgxpool.Pool
	opts Options
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, databaseURL string, opts Options) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool, opts: opts.withDefaults()}, nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

const ruleColumns = `id, section_name, category, trigger_pattern, transformation,
	confidence, support_count, status, last_confirmed_at, created_at, updated_at`

func scanRule(row pgx.Row) (Rule, error) {
	var r Rule
	err := row.Scan(&r.ID, &r.SectionName, &r.Category, &r.TriggerPattern, &r.Transformation,
		&r.Confidence, &r.SupportCount, &r.Status, &r.LastConfirmedAt, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// UpsertBatch merges every candidate inside one transaction. An advisory
// lock per trigger identity serializes concurrent revisions touching the
// same rule so support counts never lose increments.
func (s *Postgres) UpsertBatch(ctx context.Context, candidates []classify.CandidateRule) (*BatchResult, error) {
	if err := validateCandidates(candidates); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin upsert batch: %w", err)
	}
	defer tx.Rollback(ctx)

	result := &BatchResult{}
	conflictedSeen := make(map[uuid.UUID]bool)

	for _, cand := range candidates {
		lockKey := cand.SectionName + "|" + string(cand.Category) + "|" + cand.TriggerPattern
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return nil, fmt.Errorf("acquire merge lock: %w", err)
		}

		rule, merged, err := s.mergeCandidate(ctx, tx, cand)
		if err != nil {
			return nil, err
		}
		if merged {
			result.Merged++
		} else {
			result.Created++
		}

		if rule.Status == StatusCandidate && rule.SupportCount >= s.opts.MinSupport {
			now := time.Now().UTC()
			rule.Status = StatusActive
			rule.UpdatedAt = now
			if _, err := tx.Exec(ctx, `UPDATE rules SET status = $1, updated_at = $2 WHERE id = $3`,
				StatusActive, now, rule.ID); err != nil {
				return nil, fmt.Errorf("promote rule: %w", err)
			}
			result.Promoted = append(result.Promoted, rule)
		}

		conflicts, err := s.markConflicts(ctx, tx, &rule)
		if err != nil {
			return nil, err
		}
		for _, c := range conflicts {
			if !conflictedSeen[c.ID] {
				conflictedSeen[c.ID] = true
				result.Conflicted = append(result.Conflicted, c)
			}
		}

		result.Rules = append(result.Rules, rule)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit upsert batch: %w", err)
	}
	return result, nil
}

func (s *Postgres) mergeCandidate(ctx context.Context, tx pgx.Tx, cand classify.CandidateRule) (Rule, bool, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE section_name = $1 AND category = $2 AND trigger_pattern = $3 AND transformation = $4
		  AND status <> 'inactive'
		FOR UPDATE`,
		cand.SectionName, cand.Category, cand.TriggerPattern, cand.Transformation,
	)
	rule, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		rule = Rule{
			ID:             uuid.New(),
			SectionName:    cand.SectionName,
			Category:       cand.Category,
			TriggerPattern: cand.TriggerPattern,
			Transformation: cand.Transformation,
			Confidence:     cand.Confidence,
			SupportCount:   1,
			Status:         StatusCandidate,
			CreatedAt:      time.Now().UTC(),
			UpdatedAt:      time.Now().UTC(),
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO rules (id, section_name, category, trigger_pattern, transformation,
				confidence, support_count, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
			rule.ID, rule.SectionName, rule.Category, rule.TriggerPattern, rule.Transformation,
			rule.Confidence, rule.SupportCount, rule.Status,
		)
		if err != nil {
			return Rule{}, false, fmt.Errorf("insert rule: %w", err)
		}
		return rule, false, nil
	}
	if err != nil {
		return Rule{}, false, fmt.Errorf("select rule for merge: %w", err)
	}

	now := time.Now().UTC()
	rule.SupportCount++
	rule.Confidence = mergedConfidence(rule.Confidence, cand.Confidence, s.opts.ConfidenceStep)
	rule.LastConfirmedAt = &now
	rule.UpdatedAt = now
	_, err = tx.Exec(ctx, `
		UPDATE rules SET confidence = $1, support_count = $2, last_confirmed_at = $3, updated_at = $3
		WHERE id = $4`,
		rule.Confidence, rule.SupportCount, now, rule.ID,
	)
	if err != nil {
		return Rule{}, false, fmt.Errorf("merge rule: %w", err)
	}
	return rule, true, nil
}

func (s *Postgres) markConflicts(ctx context.Context, tx pgx.Tx, rule *Rule) ([]Rule, error) {
	if rule.Confidence < s.opts.ConflictMinConfidence {
		return nil, nil
	}

	rows, err := tx.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE section_name = $1 AND category = $2 AND trigger_pattern = $3
		  AND transformation <> $4 AND id <> $5
		  AND status <> 'inactive' AND confidence >= $6
		FOR UPDATE`,
		rule.SectionName, rule.Category, rule.TriggerPattern, rule.Transformation, rule.ID,
		s.opts.ConflictMinConfidence,
	)
	if err != nil {
		return nil, fmt.Errorf("scan for conflicts: %w", err)
	}
	others, err := collectRules(rows)
	if err != nil {
		return nil, err
	}
	if len(others) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	var out []Rule
	for _, other := range others {
		if other.Status != StatusConflicted {
			other.Status = StatusConflicted
			other.UpdatedAt = now
			if _, err := tx.Exec(ctx, `UPDATE rules SET status = $1, updated_at = $2 WHERE id = $3`,
				StatusConflicted, now, other.ID); err != nil {
				return nil, fmt.Errorf("mark conflict: %w", err)
			}
		}
		out = append(out, other)
	}
	if rule.Status != StatusConflicted {
		rule.Status = StatusConflicted
		rule.UpdatedAt = now
		if _, err := tx.Exec(ctx, `UPDATE rules SET status = $1, updated_at = $2 WHERE id = $3`,
			StatusConflicted, now, rule.ID); err != nil {
			return nil, fmt.Errorf("mark conflict: %w", err)
		}
	}
	out = append(out, *rule)
	return out, nil
}

func collectRules(rows pgx.Rows) ([]Rule, error) {
	defer rows.Close()
	var out []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}

// Query returns active rules in a section whose trigger matches any of the
// normalized keys. Literal and prefix matches come from the index scan;
// fuzzy matching happens in Go because Jaro-Winkler has no SQL equivalent
// without an extension.
func (s *Postgres) Query(ctx context.Context, sectionName string, keys []string) ([]Rule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE section_name = $1 AND status = 'active'`,
		sectionName,
	)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	all, err := collectRules(rows)
	if err != nil {
		return nil, err
	}

	var out []Rule
	for _, r := range all {
		for _, key := range keys {
			if keyMatchesTrigger(key, r.TriggerPattern, s.opts.FuzzyMatchThreshold) {
				out = append(out, r)
				break
			}
		}
	}
	sortRules(out)
	return out, nil
}

func (s *Postgres) List(ctx context.Context, sectionName string, status Status) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE 1=1`
	args := []any{}
	if sectionName != "" {
		args = append(args, sectionName)
		query += fmt.Sprintf(" AND section_name = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	out, err := collectRules(rows)
	if err != nil {
		return nil, err
	}
	sortRules(out)
	return out, nil
}

func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (*Rule, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = $1`, id)
	rule, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return &rule, nil
}

func (s *Postgres) Confirm(ctx context.Context, id uuid.UUID) (*Rule, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin confirm: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = $1 FOR UPDATE`, id)
	rule, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select rule for confirm: %w", err)
	}
	if rule.Status == StatusConflicted {
		return nil, ErrConflicted
	}

	now := time.Now().UTC()
	rule.Status = StatusActive
	rule.Confidence = mergedConfidence(rule.Confidence, rule.Confidence, s.opts.ConfidenceStep)
	rule.LastConfirmedAt = &now
	rule.UpdatedAt = now
	_, err = tx.Exec(ctx, `
		UPDATE rules SET status = $1, confidence = $2, last_confirmed_at = $3, updated_at = $3
		WHERE id = $4`,
		rule.Status, rule.Confidence, now, rule.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("confirm rule: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit confirm: %w", err)
	}
	return &rule, nil
}

func (s *Postgres) Deactivate(ctx context.Context, id uuid.UUID) (*Rule, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE rules SET status = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+ruleColumns,
		StatusInactive, id,
	)
	rule, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deactivate rule: %w", err)
	}
	return &rule, nil
}

func (s *Postgres) ResolveConflict(ctx context.Context, winnerID, loserID uuid.UUID) (*Rule, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin resolve conflict: %w", err)
	}
	defer tx.Rollback(ctx)

	winner, err := scanRule(tx.QueryRow(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = $1 FOR UPDATE`, winnerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select winner: %w", err)
	}
	loser, err := scanRule(tx.QueryRow(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = $1 FOR UPDATE`, loserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select loser: %w", err)
	}
	if winner.Status != StatusConflicted || loser.Status != StatusConflicted {
		return nil, ErrNotConflicted
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE rules SET status = $1, last_confirmed_at = $2, updated_at = $2 WHERE id = $3`,
		StatusActive, now, winner.ID); err != nil {
		return nil, fmt.Errorf("activate winner: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE rules SET status = $1, updated_at = $2 WHERE id = $3`,
		StatusInactive, now, loser.ID); err != nil {
		return nil, fmt.Errorf("deactivate loser: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit resolve conflict: %w", err)
	}

	winner.Status = StatusActive
	winner.LastConfirmedAt = &now
	winner.UpdatedAt = now
	return &winner, nil
}
