package metrics

import (
	"fmt"

	"github.com/nervoshalving/countdown-service/entities"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	sourceBlockGauge       prometheus.Gauge
	sourceEpochGauge       prometheus.Gauge
	sourceEpochIndexGauge  prometheus.Gauge
	sourceEpochLengthGauge prometheus.Gauge
	targetEpochGauge       prometheus.Gauge
	targetTimeGauge        prometheus.Gauge
	remainingSecondsGauge  prometheus.Gauge
	pollCount              *prometheus.CounterVec
	pollErrorCount         *prometheus.CounterVec
	staleResponseCount     prometheus.Counter
	consecutiveErrorsGauge prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	m := Metrics{
		// metrics for the polled chain tip
		sourceBlockGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_source_block", namespace),
			Help: "The latest known block number",
		}),
		sourceEpochGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_source_epoch", namespace),
			Help: "The latest known epoch number",
		}),
		sourceEpochIndexGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_source_epoch_index", namespace),
			Help: "The index of the latest known block within its epoch",
		}),
		sourceEpochLengthGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_source_epoch_length", namespace),
			Help: "The length in blocks of the latest known epoch",
		}),
		// metrics for the projection
		targetEpochGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_target_epoch", namespace),
			Help: "The epoch of the next halving",
		}),
		targetTimeGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_target_time_seconds", namespace),
			Help: "The projected unix time of the next halving",
		}),
		remainingSecondsGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_remaining_seconds", namespace),
			Help: "The rendered time until the next halving",
		}),
		// metrics for polling
		pollCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_poll_count", namespace),
			Help: "The total number of node polls",
		}, []string{"mode"}),
		pollErrorCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_poll_error_count", namespace),
			Help: "The total number of failed node polls",
		}, []string{"mode"}),
		staleResponseCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_stale_response_count", namespace),
			Help: "The total number of poll responses dropped because a newer one was applied",
		}),
		consecutiveErrorsGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_consecutive_poll_errors", namespace),
			Help: "The number of failed polls since the last successful one",
		}),
	}
	return &m
}

func (m *Metrics) SetSnapshot(snapshot entities.ChainSnapshot) {
	m.sourceBlockGauge.Set(float64(snapshot.BlockNumber))
	m.sourceEpochGauge.Set(float64(snapshot.Epoch.Number))
	m.sourceEpochIndexGauge.Set(float64(snapshot.Epoch.Index))
	m.sourceEpochLengthGauge.Set(float64(snapshot.Epoch.Length))
}

func (m *Metrics) SetTarget(target entities.HalvingTarget) {
	m.targetEpochGauge.Set(float64(target.TargetEpoch))
	m.targetTimeGauge.Set(float64(target.TargetTime.UnixMilli()) / 1000)
}

func (m *Metrics) SetRemaining(view entities.CountdownView) {
	m.remainingSecondsGauge.Set(float64(max(view.RemainingMillis, 0)) / 1000)
}

func (m *Metrics) IncPolls(mode entities.RefreshMode) {
	m.pollCount.WithLabelValues(mode.String()).Inc()
}

func (m *Metrics) IncPollErrors(mode entities.RefreshMode) {
	m.pollErrorCount.WithLabelValues(mode.String()).Inc()
}

func (m *Metrics) IncStaleResponses() {
	m.staleResponseCount.Inc()
}

func (m *Metrics) SetConsecutiveErrors(count uint) {
	m.consecutiveErrorsGauge.Set(float64(count))
}
