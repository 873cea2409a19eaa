package availability

import (
	"context"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/bysykkel/bysykkel/internal/gbfs"
)

const instrumentationName = "github.com/bysykkel/bysykkel/internal/availability"

// FeedFetcher retrieves the two GBFS feeds of a network.
type FeedFetcher interface {
	FetchStationInformation(ctx context.Context) (gbfs.StationInformationFeed, error)
	FetchStationStatus(ctx context.Context) (gbfs.StationStatusFeed, error)
}

// ServiceConfig holds configuration for the availability service.
type ServiceConfig struct {
	// Fetcher supplies the feeds.
	Fetcher FeedFetcher

	// Logger for service operations.
	Logger zerolog.Logger

	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// Service runs one fetch-and-correlate pass.
type Service struct {
	fetcher FeedFetcher
	logger  zerolog.Logger
	now     func() time.Time
	metrics *serviceMetrics
}

type serviceMetrics struct {
	feedFetches      metric.Int64Counter
	stationsReported metric.Int64Counter
}

func newServiceMetrics() (*serviceMetrics, error) {
	meter := otel.Meter(instrumentationName)

	feedFetches, err := meter.Int64Counter(
		"bysykkel.feed.fetches",
		metric.WithDescription("GBFS feed fetches by feed and outcome"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	stationsReported, err := meter.Int64Counter(
		"bysykkel.stations.reported",
		metric.WithDescription("Stations included in the availability report"),
		metric.WithUnit("{station}"),
	)
	if err != nil {
		return nil, err
	}

	return &serviceMetrics{
		feedFetches:      feedFetches,
		stationsReported: stationsReported,
	}, nil
}

// NewService creates an availability service.
func NewService(cfg ServiceConfig) (*Service, error) {
	metrics, err := newServiceMetrics()
	if err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		fetcher: cfg.Fetcher,
		logger:  cfg.Logger,
		now:     now,
		metrics: metrics,
	}, nil
}

// Availability fetches both feeds concurrently and correlates them against
// allow. Any fetch or decode error aborts the pass; no partial result is
// returned.
func (s *Service) Availability(ctx context.Context, allow AllowList) ([]StationAvailability, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "availability.Availability")
	defer span.End()

	var (
		info   gbfs.StationInformationFeed
		status gbfs.StationStatusFeed
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		feed, err := s.fetcher.FetchStationInformation(gctx)
		s.recordFetch(ctx, gbfs.FeedStationInformation, err)
		if err != nil {
			return err
		}
		info = feed
		return nil
	})
	g.Go(func() error {
		feed, err := s.fetcher.FetchStationStatus(gctx)
		s.recordFetch(ctx, gbfs.FeedStationStatus, err)
		if err != nil {
			return err
		}
		status = feed
		return nil
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.logFreshness(gbfs.FeedStationInformation, info.Header, len(info.Data.Stations))
	s.logFreshness(gbfs.FeedStationStatus, status.Header, len(status.Data.Stations))

	rows := Correlate(info, status, allow)

	if missing := missingNames(rows, allow); len(missing) > 0 {
		s.logger.Debug().
			Strs("stations", missing).
			Msg("configured stations not in report")
	}

	s.metrics.stationsReported.Add(ctx, int64(len(rows)))
	span.SetAttributes(
		attribute.Int("bysykkel.allow_list.size", len(allow)),
		attribute.Int("bysykkel.stations.reported", len(rows)),
	)

	return rows, nil
}

func (s *Service) recordFetch(ctx context.Context, feed string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.feedFetches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("feed", feed),
		attribute.String("outcome", outcome),
	))
}

func (s *Service) logFreshness(feed string, h gbfs.Header, stations int) {
	updatedAt := h.UpdatedAt()
	s.logger.Debug().
		Str("feed", feed).
		Str("version", h.Version).
		Time("last_updated", updatedAt).
		Str("age", humanize.RelTime(updatedAt, s.now(), "ago", "from now")).
		Int64("ttl", h.TTL).
		Bool("expired", h.Expired(s.now())).
		Int("stations", stations).
		Msg("feed snapshot")
}

// missingNames returns the allow-listed names absent from rows, sorted.
func missingNames(rows []StationAvailability, allow AllowList) []string {
	reported := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		reported[r.Name] = struct{}{}
	}

	var missing []string
	for name := range allow {
		if _, ok := reported[name]; !ok {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	return missing
}
