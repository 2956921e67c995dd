package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"RegimeAPI/internal/domain/models"
	domrepo "RegimeAPI/internal/domain/repository"
	applogger "RegimeAPI/pkg/logger"

	"github.com/jackc/pgx/v5"
)

// pgQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGBarStore implements BarSource over a PostgreSQL or TimescaleDB OHLCV table.
type PGBarStore struct {
	db    pgQuerier
	table string
	l     *applogger.Logger
}

func NewPGBarStore(db pgQuerier, table string) *PGBarStore {
	return &PGBarStore{db: db, table: table, l: applogger.Nop()}
}

func (s *PGBarStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *PGBarStore) Name() string { return "postgres" }

func (s *PGBarStore) GetBars(ctx context.Context, symbol string, from, to time.Time, g models.Granularity) ([]models.Bar, error) {
	start := time.Now()
	q, err := pgBarsQuery(s.table, g)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, q, symbol, from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("postgres get_bars query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, models.Wrap(models.ErrProviderUnavailable, err, "postgres query")
	}
	defer rows.Close()

	var out []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Wrap(models.ErrProviderUnavailable, err, "postgres rows")
	}
	s.l.Debug("postgres get_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func pgBucket(g models.Granularity) (string, error) {
	switch g {
	case models.OneMinute, models.FiveMinutes, models.FifteenMinutes, models.ThirtyMinutes, models.OneHour:
		return fmt.Sprintf("date_bin('%d seconds', ts, TIMESTAMPTZ '2000-01-03 00:00:00+00')", int(g.Duration().Seconds())), nil
	case models.OneDay:
		return "date_trunc('day', ts, 'UTC')", nil
	case models.OneWeek:
		return "date_trunc('week', ts, 'UTC')", nil
	case models.OneMonth:
		return "date_trunc('month', ts, 'UTC')", nil
	default:
		return "", models.Errorf(models.ErrInvalidGranularity, "unsupported granularity %q", g)
	}
}

func pgBarsQuery(table string, g models.Granularity) (string, error) {
	bucket, err := pgBucket(g)
	if err != nil {
		return "", err
	}
	const qtpl = `
        SELECT bucket,
               (array_agg(open ORDER BY ts ASC))[1],
               max(high), min(low),
               (array_agg(close ORDER BY ts DESC))[1],
               sum(volume)
        FROM (SELECT %s AS bucket, ts, open, high, low, close, volume
              FROM %s
              WHERE symbol = $1 AND ts >= $2 AND ts < $3) b
        GROUP BY bucket
        ORDER BY bucket ASC
    `
	return fmt.Sprintf(qtpl, bucket, pgx.Identifier(strings.Split(table, ".")).Sanitize()), nil
}

var _ domrepo.BarSource = (*PGBarStore)(nil)
