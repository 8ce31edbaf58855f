package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jjenkins/billpulse/internal/congress"
	"github.com/jjenkins/billpulse/internal/logger"
	"github.com/jjenkins/billpulse/internal/model"
)

// BillSource is the upstream bill feed. Methods return nil results when the
// data is not available yet.
type BillSource interface {
	ListBills(ctx context.Context, congressNumber int, billType string, offset, limit int) (*congress.BillList, error)
	GetBill(ctx context.Context, congressNumber int, billType string, number int) (*congress.BillDetail, error)
	GetSummaries(ctx context.Context, congressNumber int, billType string, number int) ([]congress.Summary, error)
	GetActions(ctx context.Context, congressNumber int, billType string, number int) ([]congress.Action, error)
	GetCosponsors(ctx context.Context, congressNumber int, billType string, number int) ([]congress.Member, error)
	GetTextVersions(ctx context.Context, congressNumber int, billType string, number int) ([]congress.TextVersion, error)
	GetCommittees(ctx context.Context, congressNumber int, billType string, number int) ([]congress.Committee, error)
	GetSubjects(ctx context.Context, congressNumber int, billType string, number int) (*congress.Subjects, error)
	Delay() time.Duration
}

// BillRepository persists synced bills.
type BillRepository interface {
	// SaveBillGraph upserts the bill and its sub-entities and sets
	// graph.Bill.ID. created is true when the bill row was new.
	SaveBillGraph(ctx context.Context, graph *model.BillGraph) (created bool, err error)
	ListStale(ctx context.Context, limit int, syncedBefore time.Time) ([]model.Bill, error)
	ListActiveUnsynced(ctx context.Context, limit int, syncedBefore time.Time) ([]model.Bill, error)
	UpdateResynced(ctx context.Context, bill *model.Bill) error
}

// FollowerRepository reads and stamps bill followers for change notices.
type FollowerRepository interface {
	ListForBill(ctx context.Context, billID int) ([]model.BillFollower, error)
	MarkNotified(ctx context.Context, followerID int, at time.Time) error
}

// SyncStats tracks synchronization statistics.
type SyncStats struct {
	Total         int
	Created       int
	Updated       int
	Unchanged     int
	Skipped       int
	Failed        int
	StatusChanged int
	Notified      int
}

// Synced is the number of bills written, new or existing.
func (s *SyncStats) Synced() int {
	return s.Created + s.Updated + s.Unchanged
}

// Merge adds other's counts to s.
func (s *SyncStats) Merge(other *SyncStats) {
	if other == nil {
		return
	}
	s.Total += other.Total
	s.Created += other.Created
	s.Updated += other.Updated
	s.Unchanged += other.Unchanged
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.StatusChanged += other.StatusChanged
	s.Notified += other.Notified
}

// Synchronizer keeps local bills consistent with the upstream feed.
type Synchronizer struct {
	source    BillSource
	bills     BillRepository
	followers FollowerRepository
	log       *logger.Logger
	now       func() time.Time
}

// NewSynchronizer creates a Synchronizer. followers may be nil when change
// notices are not needed.
func NewSynchronizer(source BillSource, bills BillRepository, followers FollowerRepository, log *logger.Logger) *Synchronizer {
	return &Synchronizer{
		source:    source,
		bills:     bills,
		followers: followers,
		log:       log,
		now:       time.Now,
	}
}

// SyncBatch syncs one page of bills for a congress. billType may be empty to
// list every type. Per-bill failures are logged and counted; only a failed
// list fetch or a canceled context fails the batch.
func (s *Synchronizer) SyncBatch(ctx context.Context, congressNumber int, billType string, limit, offset int) (*SyncStats, error) {
	stats := &SyncStats{}

	s.log.Info("Fetching bill list", map[string]interface{}{
		"congress": congressNumber,
		"type":     billType,
		"limit":    limit,
		"offset":   offset,
	})

	list, err := s.source.ListBills(ctx, congressNumber, billType, offset, limit)
	if err != nil {
		s.log.Error("Bill list fetch failed", err, map[string]interface{}{"congress": congressNumber})
		return nil, fmt.Errorf("failed to fetch bill list: %w", err)
	}
	if list == nil {
		s.log.Warn("No bills returned from source", map[string]interface{}{"congress": congressNumber})
		return stats, nil
	}

	stats.Total = len(list.Bills)

	for idx, item := range list.Bills {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		progress := fmt.Sprintf("[%d/%d]", idx+1, stats.Total)

		if isReservedTitle(item.Title) {
			s.log.Debug("Skipping reserved bill", map[string]interface{}{
				"progress": progress,
				"type":     item.Type,
				"number":   string(item.Number),
			})
			stats.Skipped++
			continue
		}

		if err := s.syncListed(ctx, congressNumber, item, progress, stats); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			s.log.Error("Failed to sync bill", err, map[string]interface{}{
				"progress": progress,
				"congress": congressNumber,
				"type":     item.Type,
				"number":   string(item.Number),
			})
			stats.Failed++
		}

		if idx < len(list.Bills)-1 {
			if err := s.pause(ctx, s.source.Delay()); err != nil {
				return stats, err
			}
		}
	}

	return stats, nil
}

func (s *Synchronizer) syncListed(ctx context.Context, congressNumber int, item congress.BillListItem, progress string, stats *SyncStats) error {
	number, err := item.BillNumber()
	if err != nil {
		return fmt.Errorf("invalid bill number %q: %w", string(item.Number), err)
	}
	if item.Congress > 0 {
		congressNumber = item.Congress
	}
	billType := strings.ToLower(item.Type)

	graph, err := s.fetchGraph(ctx, congressNumber, billType, number, &item)
	if err != nil {
		return err
	}
	if graph == nil {
		s.log.Warn("Bill detail unavailable, skipping", map[string]interface{}{
			"progress": progress,
			"bill":     fmt.Sprintf("%s-%d", billType, number),
		})
		stats.Skipped++
		return nil
	}

	created, err := s.bills.SaveBillGraph(ctx, graph)
	if err != nil {
		return fmt.Errorf("failed to save bill: %w", err)
	}

	if created {
		stats.Created++
	} else {
		stats.Updated++
	}

	s.log.Info("Synced bill", map[string]interface{}{
		"progress": progress,
		"bill":     graph.Bill.Identifier(),
		"status":   graph.Bill.Status,
		"created":  created,
		"actors":   len(graph.Actors),
		"events":   len(graph.Events),
		"versions": len(graph.Versions),
	})

	return nil
}

// fetchGraph fetches a bill's detail and then its sub-resources
// concurrently. A missing sub-resource leaves its part of the graph empty.
// It returns nil when the detail itself is unavailable.
func (s *Synchronizer) fetchGraph(ctx context.Context, congressNumber int, billType string, number int, item *congress.BillListItem) (*model.BillGraph, error) {
	detail, err := s.source.GetBill(ctx, congressNumber, billType, number)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, nil
	}

	var (
		summaries  []congress.Summary
		committees []congress.Committee
		subjects   *congress.Subjects
		actions    []congress.Action
		cosponsors []congress.Member
		versions   []congress.TextVersion
	)

	bill := fmt.Sprintf("%d/%s/%d", congressNumber, billType, number)
	g, gctx := errgroup.WithContext(ctx)
	optional := func(resource string, fetch func() error) {
		g.Go(func() error {
			if err := fetch(); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.Warn("Sub-resource unavailable", map[string]interface{}{
					"bill":     bill,
					"resource": resource,
					"error":    err.Error(),
				})
			}
			return nil
		})
	}

	optional("summaries", func() (err error) {
		summaries, err = s.source.GetSummaries(gctx, congressNumber, billType, number)
		return err
	})
	optional("committees", func() (err error) {
		committees, err = s.source.GetCommittees(gctx, congressNumber, billType, number)
		return err
	})
	optional("subjects", func() (err error) {
		subjects, err = s.source.GetSubjects(gctx, congressNumber, billType, number)
		return err
	})
	optional("actions", func() (err error) {
		actions, err = s.source.GetActions(gctx, congressNumber, billType, number)
		return err
	})
	optional("cosponsors", func() (err error) {
		cosponsors, err = s.source.GetCosponsors(gctx, congressNumber, billType, number)
		return err
	})
	optional("text", func() (err error) {
		versions, err = s.source.GetTextVersions(gctx, congressNumber, billType, number)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	graph := &model.BillGraph{
		Bill: buildBill(congressNumber, billType, number, item, detail, summaries, committees, subjects, now),
	}

	if len(detail.Sponsors) > 0 && detail.Sponsors[0].BioguideID != "" {
		sponsor := buildActor(detail.Sponsors[0], model.ActorSponsor)
		sponsor.IsPrimary = true
		graph.Sponsor = &sponsor
		graph.Actors = append(graph.Actors, sponsor)
	}
	for _, member := range cosponsors {
		if member.BioguideID == "" {
			continue
		}
		cosponsor := buildActor(member, model.ActorCosponsor)
		cosponsor.JoinedAt = parseDate(member.SponsorshipDate)
		graph.Actors = append(graph.Actors, cosponsor)
	}

	graph.Events = buildEvents(actions, now)
	graph.Versions = buildVersions(versions)

	return graph, nil
}

func buildBill(congressNumber int, billType string, number int, item *congress.BillListItem, detail *congress.BillDetail,
	summaries []congress.Summary, committees []congress.Committee, subjects *congress.Subjects, now time.Time) *model.Bill {

	bill := &model.Bill{
		CongressNumber:                   congressNumber,
		Chamber:                          model.ChamberForType(billType),
		BillType:                         billType,
		BillNumber:                       number,
		Title:                            detail.Title,
		ShortTitle:                       nullString(shortTitle(detail.Titles)),
		ConstitutionalAuthorityStatement: nullString(detail.ConstitutionalAuthorityStatementText),
		PolicyArea:                       nullString(subjects.PolicyAreaName()),
		Subjects:                         subjects.Names(),
		IntroducedDate:                   parseDate(detail.IntroducedDate),
		CongressGovURL:                   nullString(detail.URL),
		IsNational:                       true,
		SyncSource:                       "api",
		ConfidenceScore:                  100,
		LastSyncedAt:                     sql.NullTime{Time: now, Valid: true},
	}

	if item != nil {
		if bill.Title == "" {
			bill.Title = item.Title
		}
		if !bill.IntroducedDate.Valid {
			bill.IntroducedDate = parseDate(item.IntroducedDate)
		}
		if !bill.CongressGovURL.Valid {
			bill.CongressGovURL = nullString(item.URL)
		}
	}

	if len(summaries) > 0 {
		bill.Summary = nullString(summaries[0].Text)
	}

	if detail.LatestAction != nil {
		bill.Status = ClassifyStatus(detail.LatestAction.Text)
		bill.LastActionAt = parseDate(detail.LatestAction.ActionDate)
		bill.LastActionText = nullString(detail.LatestAction.Text)
	}

	for _, c := range committees {
		if c.Name == "" {
			continue
		}
		bill.Committees = append(bill.Committees, model.Committee{
			Name:    c.Name,
			Chamber: c.Chamber,
			Type:    c.Type,
		})
	}

	return bill
}

func buildActor(member congress.Member, actorType model.ActorType) model.BillActor {
	return model.BillActor{
		ActorType:  actorType,
		BioguideID: member.BioguideID,
		Name:       member.Name(),
		Party:      nullString(member.Party),
		State:      nullString(member.State),
		District:   nullString(member.DistrictCode()),
	}
}

func buildEvents(actions []congress.Action, now time.Time) []model.BillEvent {
	events := make([]model.BillEvent, 0, len(actions))
	for _, action := range actions {
		occurred := parseDate(action.ActionDate)
		if !occurred.Valid {
			continue
		}

		description := strings.TrimSpace(action.Text)
		if description == "" {
			description = "No description"
		}

		events = append(events, model.BillEvent{
			EventType:   ClassifyEventType(action.Text),
			Chamber:     nullString(action.Chamber()),
			Description: description,
			OccurredAt:  occurred.Time,
			Source:      "api",
			DetectedAt:  now,
		})
	}
	return events
}

func buildVersions(texts []congress.TextVersion) []model.BillVersion {
	versions := make([]model.BillVersion, 0, len(texts))
	for _, text := range texts {
		if text.Type == "" {
			continue
		}

		name := text.Name
		if name == "" {
			name = text.Type
		}

		version := model.BillVersion{
			VersionCode: text.Type,
			VersionName: name,
			PublishedAt: parseDate(text.Date),
		}
		if len(text.Formats) > 0 {
			version.TextURL = nullString(text.Formats[0].URL)
		}
		versions = append(versions, version)
	}
	return versions
}

// shortTitle prefers the short title as introduced. Otherwise the last
// plain short title wins.
func shortTitle(titles []congress.Title) string {
	short := ""
	for _, title := range titles {
		switch title.TitleType {
		case "Short Title(s) as Introduced":
			return title.Title
		case "Short Title(s)":
			short = title.Title
		}
	}
	return short
}

// firstShortTitle returns the first short title of either kind.
func firstShortTitle(titles []congress.Title) string {
	for _, title := range titles {
		if title.TitleType == "Short Title(s) as Introduced" || title.TitleType == "Short Title(s)" {
			return title.Title
		}
	}
	return ""
}

// ResyncStale refreshes the detail and summary of bills that were never
// synced, have no summary, or were last synced before hoursStale ago.
// Terminal bills are left alone. last_synced_at is stamped even when nothing
// changed.
func (s *Synchronizer) ResyncStale(ctx context.Context, limit, hoursStale int) (*SyncStats, error) {
	stats := &SyncStats{}
	cutoff := s.now().Add(-time.Duration(hoursStale) * time.Hour)

	bills, err := s.bills.ListStale(ctx, limit, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale bills: %w", err)
	}

	stats.Total = len(bills)
	s.log.Info("Re-syncing stale bills", map[string]interface{}{
		"count":       stats.Total,
		"hours_stale": hoursStale,
	})

	for idx := range bills {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		bill := &bills[idx]
		progress := fmt.Sprintf("[%d/%d]", idx+1, stats.Total)

		changed, found, err := s.resyncBill(ctx, bill)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			s.log.Error("Error re-syncing bill", err, map[string]interface{}{
				"progress":   progress,
				"bill_id":    bill.ID,
				"identifier": bill.Identifier(),
			})
			stats.Failed++
		case !found:
			s.log.Warn("Could not fetch bill details for re-sync", map[string]interface{}{
				"progress":   progress,
				"bill_id":    bill.ID,
				"identifier": bill.Identifier(),
			})
			stats.Skipped++
		case changed:
			stats.Updated++
		default:
			stats.Unchanged++
		}

		if idx < len(bills)-1 {
			if err := s.pause(ctx, s.source.Delay()); err != nil {
				return stats, err
			}
		}
	}

	return stats, nil
}

func (s *Synchronizer) resyncBill(ctx context.Context, bill *model.Bill) (changed, found bool, err error) {
	billType := strings.ToLower(bill.BillType)

	detail, err := s.source.GetBill(ctx, bill.CongressNumber, billType, bill.BillNumber)
	if err != nil {
		return false, false, err
	}
	if detail == nil {
		return false, false, nil
	}

	summaries, err := s.source.GetSummaries(ctx, bill.CongressNumber, billType, bill.BillNumber)
	if err != nil {
		return false, true, err
	}

	changed = applyResync(bill, detail, summaries)
	bill.LastSyncedAt = sql.NullTime{Time: s.now(), Valid: true}

	if err := s.bills.UpdateResynced(ctx, bill); err != nil {
		return false, true, fmt.Errorf("failed to update bill: %w", err)
	}

	if changed {
		s.log.Info("Updated stale bill", map[string]interface{}{
			"bill_id":    bill.ID,
			"identifier": bill.Identifier(),
			"status":     bill.Status,
		})
	}

	return changed, true, nil
}

// applyResync copies the refreshed fields into bill and reports whether any
// of them changed value.
func applyResync(bill *model.Bill, detail *congress.BillDetail, summaries []congress.Summary) bool {
	changed := false

	if len(summaries) > 0 {
		if summary := nullString(summaries[0].Text); summary.Valid && summary != bill.Summary {
			bill.Summary = summary
			changed = true
		}
	}

	if short := nullString(firstShortTitle(detail.Titles)); short.Valid && short != bill.ShortTitle {
		bill.ShortTitle = short
		changed = true
	}

	if detail.LatestAction != nil {
		if status := ClassifyStatus(detail.LatestAction.Text); status != bill.Status {
			bill.Status = status
			changed = true
		}

		if at := parseDate(detail.LatestAction.ActionDate); at.Valid {
			if !bill.LastActionAt.Valid || !bill.LastActionAt.Time.Equal(at.Time) {
				bill.LastActionAt = at
				changed = true
			}
			if text := nullString(detail.LatestAction.Text); text != bill.LastActionText {
				bill.LastActionText = text
				changed = true
			}
		}
	}

	return changed
}

// SyncAll walks every page of a congress's bill list in batches of
// batchSize, waiting delay between batches.
func (s *Synchronizer) SyncAll(ctx context.Context, congressNumber, batchSize int, delay time.Duration) (*SyncStats, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	first, err := s.source.ListBills(ctx, congressNumber, "", 0, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bill count: %w", err)
	}
	if first == nil || first.Count == 0 {
		s.log.Warn("No bills available for congress", map[string]interface{}{"congress": congressNumber})
		return &SyncStats{}, nil
	}

	total := first.Count
	batches := (total + batchSize - 1) / batchSize
	s.log.Info("Starting full sync", map[string]interface{}{
		"congress": congressNumber,
		"bills":    total,
		"batches":  batches,
	})

	stats := &SyncStats{}
	for batch, offset := 0, 0; offset < total; batch, offset = batch+1, offset+batchSize {
		s.log.Info("Syncing batch", map[string]interface{}{
			"progress": fmt.Sprintf("[%d/%d]", batch+1, batches),
			"offset":   offset,
		})

		batchStats, err := s.SyncBatch(ctx, congressNumber, "", batchSize, offset)
		stats.Merge(batchStats)
		if err != nil {
			return stats, err
		}

		if offset+batchSize < total {
			if err := s.pause(ctx, delay); err != nil {
				return stats, err
			}
		}
	}

	return stats, nil
}

// DetectChanges fully re-syncs active bills not synced since hoursStale ago
// and stamps followers who asked to hear about status changes.
func (s *Synchronizer) DetectChanges(ctx context.Context, limit, hoursStale int) (*SyncStats, error) {
	stats := &SyncStats{}
	cutoff := s.now().Add(-time.Duration(hoursStale) * time.Hour)

	bills, err := s.bills.ListActiveUnsynced(ctx, limit, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills for change detection: %w", err)
	}

	stats.Total = len(bills)
	s.log.Info("Checking bills for changes", map[string]interface{}{"count": stats.Total})

	for idx := range bills {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		bill := bills[idx]
		progress := fmt.Sprintf("[%d/%d]", idx+1, stats.Total)

		if err := s.detectBill(ctx, bill, progress, stats); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			s.log.Error("Failed to check bill for changes", err, map[string]interface{}{
				"progress":   progress,
				"bill_id":    bill.ID,
				"identifier": bill.Identifier(),
			})
			stats.Failed++
		}

		if idx < len(bills)-1 {
			if err := s.pause(ctx, s.source.Delay()); err != nil {
				return stats, err
			}
		}
	}

	return stats, nil
}

func (s *Synchronizer) detectBill(ctx context.Context, bill model.Bill, progress string, stats *SyncStats) error {
	billType := strings.ToLower(bill.BillType)

	graph, err := s.fetchGraph(ctx, bill.CongressNumber, billType, bill.BillNumber, nil)
	if err != nil {
		return err
	}
	if graph == nil {
		stats.Skipped++
		return nil
	}

	if _, err := s.bills.SaveBillGraph(ctx, graph); err != nil {
		return fmt.Errorf("failed to save bill: %w", err)
	}

	if graph.Bill.Status == "" || graph.Bill.Status == bill.Status {
		stats.Unchanged++
		return nil
	}

	stats.Updated++
	stats.StatusChanged++
	s.log.Info("Bill status changed", map[string]interface{}{
		"progress":   progress,
		"identifier": bill.Identifier(),
		"from":       bill.Status,
		"to":         graph.Bill.Status,
	})

	notified, err := s.notifyFollowers(ctx, graph.Bill.ID)
	stats.Notified += notified
	return err
}

// notifyFollowers stamps every follower who opted into status-change notices
// and is outside the notification window. Delivery happens elsewhere.
func (s *Synchronizer) notifyFollowers(ctx context.Context, billID int) (int, error) {
	if s.followers == nil {
		return 0, nil
	}

	followers, err := s.followers.ListForBill(ctx, billID)
	if err != nil {
		return 0, fmt.Errorf("failed to list followers: %w", err)
	}

	now := s.now()
	notified := 0
	for _, follower := range followers {
		if !follower.Preferences.OnStatusChange || !follower.CanSendNotification(now) {
			continue
		}
		if err := s.followers.MarkNotified(ctx, follower.ID, now); err != nil {
			return notified, fmt.Errorf("failed to mark follower %d notified: %w", follower.ID, err)
		}
		notified++
	}

	return notified, nil
}

// PrintSummary logs the sync statistics.
func (s *Synchronizer) PrintSummary(operation string, stats *SyncStats) {
	fields := map[string]interface{}{
		"total":     stats.Total,
		"created":   stats.Created,
		"updated":   stats.Updated,
		"unchanged": stats.Unchanged,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
	}
	if stats.StatusChanged > 0 || stats.Notified > 0 {
		fields["status_changed"] = stats.StatusChanged
		fields["notified"] = stats.Notified
	}
	if attempted := stats.Total - stats.Skipped; attempted > 0 {
		fields["success_rate"] = fmt.Sprintf("%.1f%%", float64(stats.Synced())/float64(attempted)*100)
	}

	s.log.Info(operation+" summary", fields)
}

func (s *Synchronizer) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func isReservedTitle(title string) bool {
	return strings.Contains(strings.ToLower(title), "reserved for")
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(value string) sql.NullTime {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullTime{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
	}
	return sql.NullTime{}
}
