package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/jjenkins/billpulse/internal/model"
)

const billColumns = `
	b.id, b.congress_number, b.chamber, b.bill_type, b.bill_number, b.title,
	b.short_title, b.summary, b.constitutional_authority_statement, b.committees,
	b.subjects, b.policy_area, b.status, b.introduced_date, b.last_action_at,
	b.last_action_text, b.affected_states, b.affected_districts, b.is_national,
	b.congress_gov_url, b.last_synced_at, b.sync_source, b.confidence_score,
	b.created_at, b.updated_at`

// BillSort orders a bill listing.
type BillSort string

const (
	SortLastAction    BillSort = "last_action"
	SortLastActionAsc BillSort = "last_action_asc"
	SortIntroduced    BillSort = "introduced"
	SortIntroducedAsc BillSort = "introduced_asc"
	SortPopular       BillSort = "popular"
)

// popularOrder ranks by active stances, then followers.
const popularOrder = `
	(SELECT COUNT(*) FROM user_stances s WHERE s.bill_id = b.id AND s.deleted_at IS NULL) DESC,
	(SELECT COUNT(*) FROM bill_followers f WHERE f.bill_id = b.id) DESC,
	b.id DESC`

var billOrders = map[BillSort]string{
	SortLastAction:    `b.last_action_at DESC NULLS LAST, b.id DESC`,
	SortLastActionAsc: `b.last_action_at ASC NULLS LAST, b.id ASC`,
	SortIntroduced:    `b.introduced_date DESC NULLS LAST, b.id DESC`,
	SortIntroducedAsc: `b.introduced_date ASC NULLS LAST, b.id ASC`,
	SortPopular:       popularOrder,
}

// Valid reports whether s is a known sort. The empty sort is valid and
// means SortLastAction.
func (s BillSort) Valid() bool {
	if s == "" {
		return true
	}
	_, ok := billOrders[s]
	return ok
}

// BillFilter narrows a bill listing. Zero values do not filter.
type BillFilter struct {
	Congress int
	Status   model.BillStatus
	Chamber  model.Chamber
	// Query matches title, short title or summary.
	Query    string
	// Sponsor matches the sponsor's name.
	Sponsor  string
	National *bool
	Sort     BillSort
	Limit    int
	Offset   int
}

// likePattern wraps term for a substring ILIKE, escaping its wildcards.
func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
	return "%" + escaped + "%"
}

// BillStore handles database operations for bills and their sub-entities.
type BillStore struct {
	db *sql.DB
}

// NewBillStore creates a new BillStore
func NewBillStore(db *sql.DB) *BillStore {
	return &BillStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBill reads billColumns, followed by any extra destinations.
func scanBill(row rowScanner, b *model.Bill, extra ...interface{}) error {
	var committees []byte
	var chamber, status string

	dest := []interface{}{
		&b.ID,
		&b.CongressNumber,
		&chamber,
		&b.BillType,
		&b.BillNumber,
		&b.Title,
		&b.ShortTitle,
		&b.Summary,
		&b.ConstitutionalAuthorityStatement,
		&committees,
		pq.Array(&b.Subjects),
		&b.PolicyArea,
		&status,
		&b.IntroducedDate,
		&b.LastActionAt,
		&b.LastActionText,
		pq.Array(&b.AffectedStates),
		pq.Array(&b.AffectedDistricts),
		&b.IsNational,
		&b.CongressGovURL,
		&b.LastSyncedAt,
		&b.SyncSource,
		&b.ConfidenceScore,
		&b.CreatedAt,
		&b.UpdatedAt,
	}

	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	b.Chamber = model.Chamber(chamber)
	b.Status = model.BillStatus(status)

	if len(committees) > 0 {
		if err := json.Unmarshal(committees, &b.Committees); err != nil {
			return fmt.Errorf("failed to decode committees: %w", err)
		}
	}

	return nil
}

func committeesParam(committees []model.Committee) (sql.NullString, error) {
	if len(committees) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(committees)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode committees: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// SaveBillGraph upserts a bill by its natural key together with its actors,
// events and versions in one transaction. Nullable bill fields keep their
// stored value when the new value is empty, including an empty subject list
// and an empty status. created reports whether the
// bill row was inserted.
func (s *BillStore) SaveBillGraph(ctx context.Context, graph *model.BillGraph) (bool, error) {
	b := graph.Bill

	committees, err := committeesParam(b.Committees)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bills (congress_number, chamber, bill_type, bill_number, title,
		                   short_title, summary, constitutional_authority_statement, committees,
		                   subjects, policy_area, status, introduced_date, last_action_at,
		                   last_action_text, is_national, congress_gov_url, last_synced_at,
		                   sync_source, confidence_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (congress_number, chamber, bill_type, bill_number) DO UPDATE SET
			title = COALESCE(NULLIF(EXCLUDED.title, ''), bills.title),
			short_title = COALESCE(EXCLUDED.short_title, bills.short_title),
			summary = COALESCE(EXCLUDED.summary, bills.summary),
			constitutional_authority_statement = COALESCE(EXCLUDED.constitutional_authority_statement, bills.constitutional_authority_statement),
			committees = COALESCE(EXCLUDED.committees, bills.committees),
			subjects = COALESCE(NULLIF(EXCLUDED.subjects, '{}'), bills.subjects),
			policy_area = COALESCE(EXCLUDED.policy_area, bills.policy_area),
			status = CASE WHEN $21 THEN EXCLUDED.status ELSE bills.status END,
			introduced_date = COALESCE(EXCLUDED.introduced_date, bills.introduced_date),
			last_action_at = COALESCE(EXCLUDED.last_action_at, bills.last_action_at),
			last_action_text = COALESCE(EXCLUDED.last_action_text, bills.last_action_text),
			is_national = EXCLUDED.is_national,
			congress_gov_url = COALESCE(EXCLUDED.congress_gov_url, bills.congress_gov_url),
			last_synced_at = EXCLUDED.last_synced_at,
			sync_source = EXCLUDED.sync_source,
			confidence_score = EXCLUDED.confidence_score,
			updated_at = NOW()
		RETURNING id, (xmax = 0), status
	`

	// An empty status means the source reported no latest action; the
	// stored status is kept and a new row starts as introduced.
	statusKnown := b.Status != ""
	status := b.Status
	if !statusKnown {
		status = model.StatusIntroduced
	}

	var created bool
	var stored string
	err = tx.QueryRowContext(ctx, query,
		b.CongressNumber,
		string(b.Chamber),
		strings.ToLower(b.BillType),
		b.BillNumber,
		b.Title,
		b.ShortTitle,
		b.Summary,
		b.ConstitutionalAuthorityStatement,
		committees,
		pq.Array(b.Subjects),
		b.PolicyArea,
		string(status),
		b.IntroducedDate,
		b.LastActionAt,
		b.LastActionText,
		b.IsNational,
		b.CongressGovURL,
		b.LastSyncedAt,
		b.SyncSource,
		b.ConfidenceScore,
		statusKnown,
	).Scan(&b.ID, &created, &stored)
	if err != nil {
		return false, fmt.Errorf("failed to upsert bill %s: %w", b.Identifier(), err)
	}
	b.Status = model.BillStatus(stored)

	for i := range graph.Actors {
		graph.Actors[i].BillID = b.ID
		if err := upsertActor(ctx, tx, &graph.Actors[i]); err != nil {
			return false, err
		}
	}

	if graph.Sponsor != nil {
		graph.Sponsor.BillID = b.ID
		if err := demoteOtherSponsors(ctx, tx, b.ID, graph.Sponsor.BioguideID); err != nil {
			return false, err
		}
	}

	for i := range graph.Events {
		graph.Events[i].BillID = b.ID
		if err := upsertEvent(ctx, tx, &graph.Events[i]); err != nil {
			return false, err
		}
	}

	for i := range graph.Versions {
		graph.Versions[i].BillID = b.ID
		if err := upsertVersion(ctx, tx, &graph.Versions[i]); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return created, nil
}

func upsertActor(ctx context.Context, tx *sql.Tx, a *model.BillActor) error {
	query := `
		INSERT INTO bill_actors (bill_id, actor_type, bioguide_id, name, party, state,
		                         district, is_primary, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (bill_id, actor_type, bioguide_id) DO UPDATE SET
			name = EXCLUDED.name,
			party = COALESCE(EXCLUDED.party, bill_actors.party),
			state = COALESCE(EXCLUDED.state, bill_actors.state),
			district = COALESCE(EXCLUDED.district, bill_actors.district),
			is_primary = EXCLUDED.is_primary,
			joined_at = COALESCE(EXCLUDED.joined_at, bill_actors.joined_at)
		RETURNING id
	`

	err := tx.QueryRowContext(ctx, query,
		a.BillID,
		string(a.ActorType),
		a.BioguideID,
		a.Name,
		a.Party,
		a.State,
		a.District,
		a.IsPrimary,
		a.JoinedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", a.ActorType, a.BioguideID, err)
	}
	return nil
}

// demoteOtherSponsors keeps a single primary sponsor per bill.
func demoteOtherSponsors(ctx context.Context, tx *sql.Tx, billID int, primaryBioguideID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bill_actors SET is_primary = FALSE
		WHERE bill_id = $1 AND actor_type = 'sponsor' AND bioguide_id <> $2 AND is_primary
	`, billID, primaryBioguideID)
	if err != nil {
		return fmt.Errorf("failed to demote previous sponsors: %w", err)
	}
	return nil
}

func upsertEvent(ctx context.Context, tx *sql.Tx, e *model.BillEvent) error {
	query := `
		INSERT INTO bill_events (bill_id, event_type, chamber, description, occurred_at,
		                         source, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (bill_id, event_type, occurred_at) DO UPDATE SET
			description = EXCLUDED.description,
			chamber = COALESCE(EXCLUDED.chamber, bill_events.chamber),
			source = EXCLUDED.source
		RETURNING id
	`

	err := tx.QueryRowContext(ctx, query,
		e.BillID,
		string(e.EventType),
		e.Chamber,
		e.Description,
		e.OccurredAt,
		e.Source,
		e.DetectedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert %s event: %w", e.EventType, err)
	}
	return nil
}

func upsertVersion(ctx context.Context, tx *sql.Tx, v *model.BillVersion) error {
	query := `
		INSERT INTO bill_versions (bill_id, version_code, version_name, text_url, published_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (bill_id, version_code) DO UPDATE SET
			version_name = EXCLUDED.version_name,
			text_url = COALESCE(EXCLUDED.text_url, bill_versions.text_url),
			published_at = COALESCE(EXCLUDED.published_at, bill_versions.published_at)
		RETURNING id
	`

	err := tx.QueryRowContext(ctx, query,
		v.BillID,
		v.VersionCode,
		v.VersionName,
		v.TextURL,
		v.PublishedAt,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert version %s: %w", v.VersionCode, err)
	}
	return nil
}

// GetByID retrieves a bill by id. It returns nil when the bill does not exist.
func (s *BillStore) GetByID(ctx context.Context, id int) (*model.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills b WHERE b.id = $1`

	var b model.Bill
	err := scanBill(s.db.QueryRowContext(ctx, query, id), &b)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill %d: %w", id, err)
	}

	return &b, nil
}

// List returns bills matching filter in the filter's sort order, most
// recent action first by default.
func (s *BillStore) List(ctx context.Context, filter BillFilter) ([]model.Bill, error) {
	var conditions []string
	var args []interface{}

	if filter.Congress > 0 {
		args = append(args, filter.Congress)
		conditions = append(conditions, fmt.Sprintf("b.congress_number = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", len(args)))
	}
	if filter.Chamber != "" {
		args = append(args, string(filter.Chamber))
		conditions = append(conditions, fmt.Sprintf("b.chamber = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, likePattern(q))
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(b.title ILIKE $%d OR b.short_title ILIKE $%d OR b.summary ILIKE $%d)", n, n, n))
	}
	if sponsor := strings.TrimSpace(filter.Sponsor); sponsor != "" {
		args = append(args, likePattern(sponsor))
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM bill_actors a
			WHERE a.bill_id = b.id AND a.actor_type = 'sponsor' AND a.name ILIKE $%d)`, len(args)))
	}
	if filter.National != nil {
		args = append(args, *filter.National)
		conditions = append(conditions, fmt.Sprintf("b.is_national = $%d", len(args)))
	}

	order, ok := billOrders[filter.Sort]
	if !ok {
		order = billOrders[SortLastAction]
	}

	query := `SELECT ` + billColumns + ` FROM bills b`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY %s LIMIT $%d OFFSET $%d`, order, len(args)-1, len(args))

	return s.queryBills(ctx, query, args...)
}

// ListStale returns non-terminal bills with no summary or not synced since
// syncedBefore, least recently synced first.
func (s *BillStore) ListStale(ctx context.Context, limit int, syncedBefore time.Time) ([]model.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills b
		WHERE b.status NOT IN ('became_law', 'failed')
		  AND (b.summary IS NULL OR b.summary = ''
		       OR b.last_synced_at IS NULL OR b.last_synced_at < $1)
		ORDER BY b.last_synced_at ASC NULLS FIRST, b.id
		LIMIT $2
	`
	return s.queryBills(ctx, query, syncedBefore, limit)
}

// ListActiveUnsynced returns non-terminal bills not synced since
// syncedBefore, least recently synced first.
func (s *BillStore) ListActiveUnsynced(ctx context.Context, limit int, syncedBefore time.Time) ([]model.Bill, error) {
	query := `
		SELECT ` + billColumns + `
		FROM bills b
		WHERE b.status NOT IN ('became_law', 'failed')
		  AND (b.last_synced_at IS NULL OR b.last_synced_at < $1)
		ORDER BY b.last_synced_at ASC NULLS FIRST, b.id
		LIMIT $2
	`
	return s.queryBills(ctx, query, syncedBefore, limit)
}

func (s *BillStore) queryBills(ctx context.Context, query string, args ...interface{}) ([]model.Bill, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var bills []model.Bill
	for rows.Next() {
		var b model.Bill
		if err := scanBill(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}

	return bills, rows.Err()
}

// UpdateResynced writes the fields refreshed by a stale re-sync.
func (s *BillStore) UpdateResynced(ctx context.Context, b *model.Bill) error {
	query := `
		UPDATE bills SET
			summary = $2,
			short_title = $3,
			status = $4,
			last_action_at = $5,
			last_action_text = $6,
			last_synced_at = $7,
			updated_at = NOW()
		WHERE id = $1
	`

	_, err := s.db.ExecContext(ctx, query,
		b.ID,
		b.Summary,
		b.ShortTitle,
		string(b.Status),
		b.LastActionAt,
		b.LastActionText,
		b.LastSyncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill %d: %w", b.ID, err)
	}

	return nil
}

// GetSponsor returns the primary sponsor of a bill, or nil if none is known.
func (s *BillStore) GetSponsor(ctx context.Context, billID int) (*model.BillActor, error) {
	query := `
		SELECT id, bill_id, actor_type, bioguide_id, name, party, state, district,
		       is_primary, joined_at
		FROM bill_actors
		WHERE bill_id = $1 AND actor_type = 'sponsor' AND is_primary
		LIMIT 1
	`

	var a model.BillActor
	var actorType string
	err := s.db.QueryRowContext(ctx, query, billID).Scan(
		&a.ID,
		&a.BillID,
		&actorType,
		&a.BioguideID,
		&a.Name,
		&a.Party,
		&a.State,
		&a.District,
		&a.IsPrimary,
		&a.JoinedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sponsor for bill %d: %w", billID, err)
	}

	a.ActorType = model.ActorType(actorType)
	return &a, nil
}

// ListEvents returns a bill's events, newest first.
func (s *BillStore) ListEvents(ctx context.Context, billID int) ([]model.BillEvent, error) {
	query := `
		SELECT id, bill_id, event_type, chamber, description, occurred_at, source,
		       detected_at, created_at
		FROM bill_events
		WHERE bill_id = $1
		ORDER BY occurred_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.BillEvent
	for rows.Next() {
		var e model.BillEvent
		var eventType string
		if err := rows.Scan(&e.ID, &e.BillID, &eventType, &e.Chamber, &e.Description,
			&e.OccurredAt, &e.Source, &e.DetectedAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.EventType = model.EventType(eventType)
		events = append(events, e)
	}

	return events, rows.Err()
}

// ListVersions returns a bill's text versions, most recently published first.
func (s *BillStore) ListVersions(ctx context.Context, billID int) ([]model.BillVersion, error) {
	query := `
		SELECT id, bill_id, version_code, version_name, text_url, published_at, created_at
		FROM bill_versions
		WHERE bill_id = $1
		ORDER BY published_at DESC NULLS LAST, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	var versions []model.BillVersion
	for rows.Next() {
		var v model.BillVersion
		if err := rows.Scan(&v.ID, &v.BillID, &v.VersionCode, &v.VersionName,
			&v.TextURL, &v.PublishedAt, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}

	return versions, rows.Err()
}

// LatestVersionID returns the id of the most recently published version.
func (s *BillStore) LatestVersionID(ctx context.Context, billID int) (sql.NullInt64, error) {
	return latestVersionID(ctx, s.db, billID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func latestVersionID(ctx context.Context, q queryRower, billID int) (sql.NullInt64, error) {
	var id sql.NullInt64
	err := q.QueryRowContext(ctx, `
		SELECT id FROM bill_versions
		WHERE bill_id = $1
		ORDER BY published_at DESC NULLS LAST, id DESC
		LIMIT 1
	`, billID).Scan(&id)
	if err == sql.ErrNoRows {
		return sql.NullInt64{}, nil
	}
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("failed to get latest version for bill %d: %w", billID, err)
	}
	return id, nil
}

// ListLocalCandidates returns bills that name the state or district in their
// geographic impact, or whose primary sponsor represents it, most recent
// action first. An empty or at-large district matches any sponsor from the
// state.
func (s *BillStore) ListLocalCandidates(ctx context.Context, state, district string, limit int) ([]model.SponsoredBill, error) {
	query := `
		SELECT ` + billColumns + `,
		       a.id, a.bioguide_id, a.name, a.party, a.state, a.district
		FROM bills b
		LEFT JOIN bill_actors a
		       ON a.bill_id = b.id AND a.actor_type = 'sponsor' AND a.is_primary
		WHERE (NOT b.is_national AND ($1 = ANY(b.affected_states) OR $3 = ANY(b.affected_districts)))
		   OR (UPPER(a.state) = $1
		       AND ($2 IN ('', 'AL') OR LTRIM(a.district, '0') = LTRIM($2, '0')))
		ORDER BY b.last_action_at DESC NULLS LAST, b.id DESC
		LIMIT $4
	`

	full := state + "-" + district
	rows, err := s.db.QueryContext(ctx, query, state, district, full, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query local bills: %w", err)
	}
	defer rows.Close()

	var results []model.SponsoredBill
	for rows.Next() {
		var item model.SponsoredBill
		var (
			actorID    sql.NullInt64
			bioguideID sql.NullString
			name       sql.NullString
			sponsor    model.BillActor
		)

		if err := scanBill(rows, &item.Bill, &actorID, &bioguideID, &name,
			&sponsor.Party, &sponsor.State, &sponsor.District); err != nil {
			return nil, fmt.Errorf("failed to scan local bill: %w", err)
		}

		if actorID.Valid {
			sponsor.ID = int(actorID.Int64)
			sponsor.BillID = item.Bill.ID
			sponsor.ActorType = model.ActorSponsor
			sponsor.BioguideID = bioguideID.String
			sponsor.Name = name.String
			sponsor.IsPrimary = true
			item.Sponsor = &sponsor
		}

		results = append(results, item)
	}

	return results, rows.Err()
}

// CountRows reports the row count of each bill table.
func (s *BillStore) CountRows(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"bills", "bill_actors", "bill_events", "bill_versions"} {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
