package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"AstraMind/internal/domain/models"
	pkgch "AstraMind/pkg/clickhouse"
	applogger "AstraMind/pkg/logger"
)

const decisionsTable = "astramind.decisions"

// DecisionSchema is the idempotent DDL for the decision log.
var DecisionSchema = []string{
	`CREATE DATABASE IF NOT EXISTS astramind`,
	`CREATE TABLE IF NOT EXISTS ` + decisionsTable + ` (
        id            String,
        symbol        LowCardinality(String),
        regime        LowCardinality(String),
        ts            DateTime64(3, 'UTC'),
        action        UInt8,
        action_name   LowCardinality(String),
        act           Bool,
        tau           Float64,
        scores        Array(Float64),
        entropy       Float64,
        behavior      Array(Float64),
        action_probs  Array(Float64),
        physics_loss  Float64,
        drift         Bool,
        high_entropy  Bool,
        safe          Bool,
        ks            Float64
    ) ENGINE = MergeTree
    PARTITION BY toYYYYMM(ts)
    ORDER BY (symbol, ts)`,
}

// CHDecisionStore writes gated decisions to ClickHouse.
type CHDecisionStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHDecisionStore(ch *pkgch.Client, l *applogger.Logger) *CHDecisionStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHDecisionStore{ch: ch, db: ch.DB(), l: l}
}

// Init ensures the database and table exist.
func (s *CHDecisionStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, DecisionSchema)
}

func (s *CHDecisionStore) SaveDecision(ctx context.Context, d models.Decision) error {
	start := time.Now()
	q := `INSERT INTO ` + decisionsTable + ` (id, symbol, regime, ts, action, action_name, act, tau, scores, entropy,
        behavior, action_probs, physics_loss, drift, high_entropy, safe, ks)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, decisionRow(d)...); err != nil {
		s.l.Error("clickhouse save_decision error",
			applogger.String("symbol", d.Symbol),
			applogger.String("id", d.ID),
			applogger.Error(err),
		)
		return fmt.Errorf("save decision: %w", err)
	}
	s.l.Debug("clickhouse save_decision ok",
		applogger.String("symbol", d.Symbol),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// RecentDecisions returns up to limit decisions for symbol, newest first.
func (s *CHDecisionStore) RecentDecisions(ctx context.Context, symbol string, limit int) ([]models.Decision, error) {
	q := `SELECT id, symbol, regime, ts, action, action_name, act, tau, scores, entropy,
        behavior, action_probs, physics_loss, drift, high_entropy, safe, ks
        FROM ` + decisionsTable + `
        WHERE symbol = ?
        ORDER BY ts DESC
        LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("recent decisions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Decision, 0, limit)
	for rows.Next() {
		var (
			d      models.Decision
			action uint8
		)
		if err := rows.Scan(&d.ID, &d.Symbol, &d.Regime, &d.Timestamp, &action, &d.ActionName, &d.Act, &d.Tau,
			&d.Scores, &d.Entropy, &d.Behavior, &d.ActionProbs, &d.PhysicsLoss,
			&d.Sentinel.Drift, &d.Sentinel.HighEntropy, &d.Sentinel.Safe, &d.Sentinel.KS); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Action = int(action)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHDecisionStore) Close() error { return nil }

func decisionRow(d models.Decision) []interface{} {
	return []interface{}{
		d.ID, d.Symbol, d.Regime, d.Timestamp.UTC(), uint8(d.Action), d.ActionName, d.Act, d.Tau,
		nonNil(d.Scores), d.Entropy, nonNil(d.Behavior), nonNil(d.ActionProbs), d.PhysicsLoss,
		d.Sentinel.Drift, d.Sentinel.HighEntropy, d.Sentinel.Safe, d.Sentinel.KS,
	}
}

func nonNil(xs []float64) []float64 {
	if xs == nil {
		return []float64{}
	}
	return xs
}
