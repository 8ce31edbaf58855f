package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// MetricsService calculates and stores system-wide participation metrics.
type MetricsService struct {
	db  *sql.DB
	now func() time.Time
}

func NewMetricsService(db *sql.DB) *MetricsService {
	return &MetricsService{db: db, now: time.Now}
}

// SystemMetrics is a point-in-time snapshot of the tracked legislation and
// the engagement around it.
type SystemMetrics struct {
	TotalBills           int
	ActiveBills          int
	ActiveStances        int
	Participants         int
	DistrictsRepresented int
	Followers            int
	MostDiscussedBill    string
	MostDiscussedStances int
	LastSyncedAt         sql.NullTime
}

// CalculateAndStore calculates system metrics and appends them to the
// metrics table.
func (m *MetricsService) CalculateAndStore(ctx context.Context) (*SystemMetrics, error) {
	metrics := &SystemMetrics{}

	billQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status NOT IN ('became_law', 'vetoed', 'failed')),
			MAX(last_synced_at)
		FROM bills
	`
	err := m.db.QueryRowContext(ctx, billQuery).Scan(
		&metrics.TotalBills,
		&metrics.ActiveBills,
		&metrics.LastSyncedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate bill metrics: %w", err)
	}

	stanceQuery := `
		SELECT
			COUNT(*),
			COUNT(DISTINCT user_id),
			COUNT(DISTINCT congressional_district)
		FROM user_stances
		WHERE deleted_at IS NULL
	`
	err = m.db.QueryRowContext(ctx, stanceQuery).Scan(
		&metrics.ActiveStances,
		&metrics.Participants,
		&metrics.DistrictsRepresented,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate stance metrics: %w", err)
	}

	err = m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bill_followers`).Scan(&metrics.Followers)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}

	topQuery := `
		SELECT UPPER(b.bill_type) || ' ' || b.bill_number || ' (' || b.congress_number || ')', COUNT(*)
		FROM user_stances s
		JOIN bills b ON b.id = s.bill_id
		WHERE s.deleted_at IS NULL
		GROUP BY b.id
		ORDER BY COUNT(*) DESC, b.id
		LIMIT 1
	`
	err = m.db.QueryRowContext(ctx, topQuery).Scan(
		&metrics.MostDiscussedBill,
		&metrics.MostDiscussedStances,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find most discussed bill: %w", err)
	}

	lastSynced := ""
	if metrics.LastSyncedAt.Valid {
		lastSynced = metrics.LastSyncedAt.Time.UTC().Format(time.RFC3339)
	}

	values := []struct {
		name  string
		value string
	}{
		{"total_bills", strconv.Itoa(metrics.TotalBills)},
		{"active_bills", strconv.Itoa(metrics.ActiveBills)},
		{"active_stances", strconv.Itoa(metrics.ActiveStances)},
		{"participants", strconv.Itoa(metrics.Participants)},
		{"districts_represented", strconv.Itoa(metrics.DistrictsRepresented)},
		{"followers", strconv.Itoa(metrics.Followers)},
		{"most_discussed_bill", metrics.MostDiscussedBill},
		{"last_synced_at", lastSynced},
	}
	for _, v := range values {
		if err := m.storeMetric(ctx, v.name, v.value); err != nil {
			return nil, err
		}
	}

	return metrics, nil
}

func (m *MetricsService) storeMetric(ctx context.Context, name, value string) error {
	query := `
		INSERT INTO metrics (metric_name, metric_value, calculated_at)
		VALUES ($1, $2, $3)
	`

	_, err := m.db.ExecContext(ctx, query, name, value, m.now())
	if err != nil {
		return fmt.Errorf("failed to store metric %s: %w", name, err)
	}

	return nil
}

// GetLatestMetrics retrieves the most recent value of every metric.
func (m *MetricsService) GetLatestMetrics(ctx context.Context) (map[string]string, error) {
	query := `
		SELECT DISTINCT ON (metric_name) metric_name, metric_value
		FROM metrics
		ORDER BY metric_name, calculated_at DESC
	`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	defer rows.Close()

	metrics := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics[name] = value
	}

	return metrics, rows.Err()
}
