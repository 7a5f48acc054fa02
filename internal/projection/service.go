package projection

import (
	"context"
	"fmt"
	"sort"
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	coreagg "github.com/aevon-lab/vahan-pulse/internal/core/aggregation"
	"github.com/aevon-lab/vahan-pulse/internal/core/filter"
	"github.com/aevon-lab/vahan-pulse/internal/dataset"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTopManufacturers = 12
	defaultShareTop         = 8
)

// SnapshotProvider returns the active dataset snapshot.
type SnapshotProvider interface {
	Current() (*dataset.Snapshot, error)
}

// QueryObserver records per-endpoint latency. *metrics.Metrics satisfies it.
type QueryObserver interface {
	ObserveQuery(endpoint string, d time.Duration)
}

// Options tunes the analytics responses.
type Options struct {
	YoYLag           int // lag used by topline; views carry their own
	TopManufacturers int // manufacturers kept in trends when none is selected
	ShareTop         int // manufacturers kept in share responses
	Metrics          QueryObserver
}

// Service implements the analytics query layer over the active snapshot.
// Every request filters and aggregates one snapshot; nothing is cached between requests.
type Service struct {
	snapshots SnapshotProvider
	views     map[string]coreagg.ViewDefinition
	opts      Options
}

// NewService creates a new projection service.
func NewService(snapshots SnapshotProvider, views []coreagg.ViewDefinition, opts Options) *Service {
	if len(views) == 0 {
		views = coreagg.DefaultViews()
	}
	viewMap := make(map[string]coreagg.ViewDefinition, len(views))
	for _, v := range views {
		viewMap[v.Name] = v
	}

	if opts.YoYLag <= 0 {
		opts.YoYLag = coreagg.DefaultYoYLag
	}
	if opts.TopManufacturers <= 0 {
		opts.TopManufacturers = defaultTopManufacturers
	}
	if opts.ShareTop <= 0 {
		opts.ShareTop = defaultShareTop
	}

	return &Service{
		snapshots: snapshots,
		views:     viewMap,
		opts:      opts,
	}
}

// Views returns the configured views ordered by name.
func (s *Service) Views() []coreagg.ViewDefinition {
	out := make([]coreagg.ViewDefinition, 0, len(s.views))
	for _, v := range s.views {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Filters lists the date bounds and distinct dimension values of the whole snapshot.
// States start with the All India sentinel. Empty values are not offered.
func (s *Service) Filters(ctx context.Context) (*FiltersResponse, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	var minDate, maxDate time.Time
	classes := make(map[string]bool)
	manufacturers := make(map[string]bool)
	states := make(map[string]bool)
	for i, r := range snap.Records {
		if i == 0 || r.Date.Before(minDate) {
			minDate = r.Date
		}
		if i == 0 || r.Date.After(maxDate) {
			maxDate = r.Date
		}
		classes[r.VehicleClass] = true
		manufacturers[r.Manufacturer] = true
		states[r.State] = true
	}

	return &FiltersResponse{
		Meta:           newMeta(snap, len(snap.Records)),
		DateMin:        formatDate(minDate),
		DateMax:        formatDate(maxDate),
		VehicleClasses: sortedKeys(classes),
		Manufacturers:  sortedKeys(manufacturers),
		States:         append([]string{filter.AllIndia}, sortedKeys(states)...),
	}, nil
}

// Registrations returns the filtered rows in date order.
func (s *Service) Registrations(ctx context.Context, c filter.Criteria) (*RegistrationsResponse, error) {
	snap, filtered, err := s.filtered(c)
	if err != nil {
		return nil, err
	}
	return &RegistrationsResponse{Meta: newMeta(snap, len(filtered)), Rows: filtered}, nil
}

// Trends returns monthly rows with YoY and QoQ growth for a named view.
func (s *Service) Trends(ctx context.Context, viewName string, c filter.Criteria) (*TrendsResponse, error) {
	view, ok := s.views[viewName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, viewName)
	}
	snap, filtered, err := s.filtered(c)
	if err != nil {
		return nil, err
	}
	resp := s.trends(view, filtered, c)
	resp.Meta = newMeta(snap, len(filtered))
	return resp, nil
}

// Quarters returns quarterly rollups with QoQ growth for a named view.
func (s *Service) Quarters(ctx context.Context, viewName string, c filter.Criteria) (*QuartersResponse, error) {
	view, ok := s.views[viewName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, viewName)
	}
	snap, filtered, err := s.filtered(c)
	if err != nil {
		return nil, err
	}
	monthly := coreagg.Aggregate(filtered, view.KeyColumns)
	return &QuartersResponse{
		Meta:       newMeta(snap, len(filtered)),
		View:       view.Name,
		KeyColumns: view.KeyColumns,
		Rows:       coreagg.Quarterly(monthly, view.KeyColumns),
	}, nil
}

// Topline returns the latest-month card of every selected vehicle class.
func (s *Service) Topline(ctx context.Context, c filter.Criteria) (*ToplineResponse, error) {
	snap, filtered, err := s.filtered(c)
	if err != nil {
		return nil, err
	}
	resp := s.topline(snap.Records, filtered, c)
	resp.Meta = newMeta(snap, len(filtered))
	return resp, nil
}

// Share returns market share rows for the top manufacturers. top overrides
// the configured count; zero keeps every manufacturer.
func (s *Service) Share(ctx context.Context, c filter.Criteria, top int) (*ShareResponse, error) {
	snap, filtered, err := s.filtered(c)
	if err != nil {
		return nil, err
	}
	resp := shareResponse(coreagg.Share(filtered), top)
	resp.Meta = newMeta(snap, len(filtered))
	return resp, nil
}

// LatestShare returns the latest month split into the top manufacturers plus Others.
func (s *Service) LatestShare(ctx context.Context, c filter.Criteria, top int) (*LatestShareResponse, error) {
	snap, filtered, err := s.filtered(c)
	if err != nil {
		return nil, err
	}
	resp := latestShareResponse(coreagg.Share(filtered), top)
	resp.Meta = newMeta(snap, len(filtered))
	return resp, nil
}

// Dashboard computes every section for one filter selection against a single snapshot.
func (s *Service) Dashboard(ctx context.Context, c filter.Criteria) (*DashboardResponse, error) {
	snap, filtered, err := s.filtered(c)
	if err != nil {
		return nil, err
	}

	resp := &DashboardResponse{Meta: newMeta(snap, len(filtered))}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		resp.Topline = s.topline(snap.Records, filtered, c)
		return gctx.Err()
	})
	g.Go(func() error {
		resp.Category = s.trends(s.viewOrDefault(coreagg.ViewCategory), filtered, c)
		return gctx.Err()
	})
	g.Go(func() error {
		resp.Manufacturer = s.trends(s.viewOrDefault(coreagg.ViewManufacturer), filtered, c)
		return gctx.Err()
	})
	g.Go(func() error {
		shares := coreagg.Share(filtered)
		resp.Share = shareResponse(shares, s.opts.ShareTop)
		resp.LatestShare = latestShareResponse(shares, s.opts.ShareTop)
		return gctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build dashboard: %w", err)
	}
	return resp, nil
}

func (s *Service) snapshot() (*dataset.Snapshot, error) {
	return s.snapshots.Current()
}

func (s *Service) filtered(c filter.Criteria) (*dataset.Snapshot, []v1.Registration, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, nil, err
	}
	return snap, filter.Apply(snap.Records, c), nil
}

func (s *Service) viewOrDefault(name string) coreagg.ViewDefinition {
	if v, ok := s.views[name]; ok {
		return v
	}
	for _, v := range coreagg.DefaultViews() {
		if v.Name == name {
			return v
		}
	}
	return coreagg.ViewDefinition{}
}

func (s *Service) trends(view coreagg.ViewDefinition, filtered []v1.Registration, c filter.Criteria) *TrendsResponse {
	rows := coreagg.YoYQoQ(filtered, view.KeyColumns, view.YoYLag)

	resp := &TrendsResponse{
		View:        view.Name,
		KeyColumns:  view.KeyColumns,
		Fingerprint: view.Fingerprint,
	}
	if view.GroupsBy(v1.ColumnManufacturer) && len(c.Manufacturers) == 0 {
		resp.TopManufacturers = coreagg.TopByTotal(rows, v1.ColumnManufacturer, s.opts.TopManufacturers)
		rows = coreagg.KeepValues(rows, v1.ColumnManufacturer, resp.TopManufacturers)
	}
	resp.Rows = rows
	resp.Latest = coreagg.Latest(rows, view.LabelColumn)
	return resp
}

// topline shows the selected classes, or every class in the snapshot when none is selected.
func (s *Service) topline(all, filtered []v1.Registration, c filter.Criteria) *ToplineResponse {
	latest := coreagg.Latest(coreagg.Topline(filtered, s.opts.YoYLag), v1.ColumnVehicleClass)

	byClass := make(map[string]coreagg.MonthlyRow, len(latest))
	for _, r := range latest {
		byClass[r.Dimensions[v1.ColumnVehicleClass]] = r
	}

	shown := c.Classes
	if len(shown) == 0 {
		set := make(map[string]bool)
		for _, r := range all {
			set[r.VehicleClass] = true
		}
		shown = sortedKeys(set)
	} else {
		shown = append([]string(nil), shown...)
		sort.Strings(shown)
	}

	resp := &ToplineResponse{Cards: make([]ToplineCard, 0, len(shown))}
	if len(latest) > 0 {
		resp.Date = formatDate(latest[0].Date)
	}
	for _, class := range shown {
		card := ToplineCard{VehicleClass: class}
		if row, ok := byClass[class]; ok {
			n := row.Registrations
			card.Registrations = &n
			card.YoYPct = row.YoYPct
			card.QoQPct = row.QoQPct
		}
		resp.Cards = append(resp.Cards, card)
	}
	return resp
}

// shareResponse keeps the top manufacturers by total registrations; top <= 0 keeps all.
func shareResponse(shares []coreagg.ShareRow, top int) *ShareResponse {
	manufacturers := coreagg.TopShareManufacturers(shares, top)
	keep := make(map[string]bool, len(manufacturers))
	for _, m := range manufacturers {
		keep[m] = true
	}

	rows := make([]coreagg.ShareRow, 0, len(shares))
	for _, r := range shares {
		if keep[r.Manufacturer] {
			rows = append(rows, r)
		}
	}
	return &ShareResponse{Manufacturers: manufacturers, Rows: rows}
}

func latestShareResponse(shares []coreagg.ShareRow, top int) *LatestShareResponse {
	breakdown := coreagg.LatestShare(shares, coreagg.TopShareManufacturers(shares, top))
	return &LatestShareResponse{
		Date:   formatDate(breakdown.Date),
		Slices: breakdown.Slices,
	}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		if k == "" {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
