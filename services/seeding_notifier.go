package services

import (
	"context"
	"encoding/json"
	"time"

	awspkg "dashboard-service/pkg/aws"
	"dashboard-service/seeding"

	"go.uber.org/zap"
)

const (
	EventSeedingCompleted = "seeding_completed"
	EventSeedingFailed    = "seeding_failed"
)

// SeedingEvent is the message published when a seeding session ends.
type SeedingEvent struct {
	Event         string                  `json:"event"`
	Service       string                  `json:"service"`
	State         seeding.State           `json:"state"`
	Percent       int                     `json:"percent"`
	RecordsLoaded int                     `json:"records_loaded"`
	TotalRecords  int                     `json:"total_records"`
	Datasets      []seeding.DatasetStatus `json:"datasets"`
	Error         string                  `json:"error,omitempty"`
	DurationMs    int64                   `json:"duration_ms"`
	Timestamp     time.Time               `json:"timestamp"`
}

// ProgressSource is the read side of a seeding session.
type ProgressSource interface {
	Progress() int
	State() seeding.State
	Done() <-chan struct{}
}

// SeedingNotifier reports a seeding session to CloudWatch and SNS.
type SeedingNotifier struct {
	metrics  *awspkg.MetricsClient
	sns      awspkg.SNSPublisher
	topicArn string
	service  string
	logger   *zap.Logger
}

func NewSeedingNotifier(metrics *awspkg.MetricsClient, sns awspkg.SNSPublisher, topicArn, service string, logger *zap.Logger) *SeedingNotifier {
	return &SeedingNotifier{metrics: metrics, sns: sns, topicArn: topicArn, service: service, logger: logger}
}

// OnFinish records final metrics and publishes the completion event. Skipped
// sessions only record a metric.
func (n *SeedingNotifier) OnFinish(ctx context.Context, snap seeding.Snapshot) {
	dims := map[string]string{"Service": n.service}

	var duration time.Duration
	if snap.StartedAt != nil && snap.FinishedAt != nil {
		duration = snap.FinishedAt.Sub(*snap.StartedAt)
	}
	var loaded, total int
	for _, d := range snap.Datasets {
		loaded += d.RecordsLoaded
		total += d.TotalRecords
	}

	var event string
	switch snap.State {
	case seeding.StateSkipped:
		_ = n.metrics.RecordCount(ctx, awspkg.MetricSeedingSkipped, dims)
		return
	case seeding.StateFailed:
		event = EventSeedingFailed
		_ = n.metrics.RecordCount(ctx, awspkg.MetricSeedingFailed, dims)
	default:
		event = EventSeedingCompleted
	}
	_ = n.metrics.RecordPercent(ctx, awspkg.MetricSeedingProgress, snap.Percent, dims)
	_ = n.metrics.RecordLatency(ctx, awspkg.MetricSeedingDuration, duration, dims)
	_ = n.metrics.RecordValue(ctx, awspkg.MetricSeedingRecords, float64(loaded), dims)

	if n.sns == nil || n.topicArn == "" {
		return
	}
	msg, err := json.Marshal(SeedingEvent{
		Event:         event,
		Service:       n.service,
		State:         snap.State,
		Percent:       snap.Percent,
		RecordsLoaded: loaded,
		TotalRecords:  total,
		Datasets:      snap.Datasets,
		Error:         snap.Error,
		DurationMs:    duration.Milliseconds(),
		Timestamp:     time.Now().UTC(),
	})
	if err != nil {
		n.logger.Error("Failed to encode seeding event", zap.Error(err))
		return
	}
	if err := n.sns.Publish(ctx, n.topicArn, msg); err != nil {
		n.logger.Warn("Failed to publish seeding event", zap.String("event", event), zap.Error(err))
		return
	}
	n.logger.Info("Published seeding event", zap.String("event", event))
}

// ReportProgress samples the session every interval and records the
// percentage as a metric until the session ends or ctx is done.
func (n *SeedingNotifier) ReportProgress(ctx context.Context, src ProgressSource, interval time.Duration) {
	if !n.metrics.IsEnabled() {
		return
	}
	dims := map[string]string{"Service": n.service}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-src.Done():
			return
		case <-ticker.C:
			if src.State() != seeding.StateSeeding {
				continue
			}
			p := src.Progress()
			if p == last {
				continue
			}
			last = p
			if err := n.metrics.RecordPercent(ctx, awspkg.MetricSeedingProgress, p, dims); err != nil {
				n.logger.Debug("Failed to record seeding progress", zap.Error(err))
			}
		}
	}
}
