package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pvn/logx"
)

type consensusPromMetrics struct {
	nodeUpUnixSeconds         prometheus.Gauge
	blockHeight               prometheus.Gauge
	difficulty                prometheus.Gauge
	finalizedCheckpointHeight prometheus.Gauge
	voteCount                 prometheus.Counter
	finalizedRoundCount       prometheus.Counter
	rollbackCount             prometheus.Counter
	checkpointDivergenceCount prometheus.Counter
	panicCount                prometheus.Counter
}

var metrics = newConsensusPromMetrics()

func newConsensusPromMetrics() *consensusPromMetrics {
	return &consensusPromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pvn_node_up_unix_seconds",
			Help: "Unix time when the node process came up",
		}),
		blockHeight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pvn_block_height",
			Help: "Latest observed PoW chain height",
		}),
		difficulty: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pvn_difficulty",
			Help: "Difficulty of the latest observed block",
		}),
		finalizedCheckpointHeight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pvn_finalized_checkpoint_height",
			Help: "Height of the latest finalized checkpoint",
		}),
		voteCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pvn_votes_total",
			Help: "Total finality votes processed",
		}),
		finalizedRoundCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pvn_finalized_rounds_total",
			Help: "Total rounds that reached finality",
		}),
		rollbackCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pvn_rollbacks_total",
			Help: "Total finality rollbacks",
		}),
		checkpointDivergenceCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pvn_checkpoint_divergence_total",
			Help: "Total fatal checkpoint divergences detected",
		}),
		panicCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pvn_panic_total",
			Help: "Total panics recovered in background goroutines",
		}),
	}
}

func SetNodeUp() {
	metrics.nodeUpUnixSeconds.Set(float64(time.Now().Unix()))
}

func SetBlockHeight(height uint64) {
	metrics.blockHeight.Set(float64(height))
}

func SetDifficulty(difficulty uint64) {
	metrics.difficulty.Set(float64(difficulty))
}

func SetFinalizedCheckpointHeight(height uint64) {
	metrics.finalizedCheckpointHeight.Set(float64(height))
}

func IncreaseVoteCount() {
	metrics.voteCount.Inc()
}

func IncreaseFinalizedRoundCount() {
	metrics.finalizedRoundCount.Inc()
}

func IncreaseRollbackCount() {
	metrics.rollbackCount.Inc()
}

func IncreaseCheckpointDivergenceCount() {
	metrics.checkpointDivergenceCount.Inc()
}

func IncreasePanicCount() {
	metrics.panicCount.Inc()
}

// Serve exposes /metrics on addr. Blocking; callers run it under
// exception.SafeGo.
func Serve(addr string) {
	SetNodeUp()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logx.Info("MONITORING", "Serving prometheus metrics on ", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logx.Error("MONITORING", "Metrics server stopped: ", err)
	}
}
