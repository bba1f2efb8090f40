// Package metrics exports optimizer progress as prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"suitegen/internal/evo"
	"suitegen/internal/model"
)

const namespace = "suitegen"

// Recorder implements evo.Observer. Collectors are safe for concurrent use,
// so one Recorder can observe parallel explore runs.
type Recorder struct {
	generations     prometheus.Counter
	mutations       *prometheus.CounterVec
	onlookers       prometheus.Counter
	scouts          prometheus.Counter
	bestScore       prometheus.Gauge
	meanScore       prometheus.Gauge
	runs            prometheus.Counter
	finalSuiteSize  prometheus.Histogram
	finalBestScores prometheus.Histogram
}

var _ evo.Observer = (*Recorder)(nil)

// NewRecorder registers the collectors on reg. Use a fresh registry per
// process or per test; registering twice on one registry fails.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		generations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Optimizer generations completed",
		}),
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Mutation attempts by outcome",
		}, []string{"outcome"}),
		onlookers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "onlooker_additions_total",
			Help:      "Members added to the mutation pool by onlooker selection",
		}),
		scouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scout_replacements_total",
			Help:      "Weak cases replaced in place by the scout phase",
		}),
		bestScore: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_best_score",
			Help:      "Best score of the most recent generation",
		}),
		meanScore: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_mean_score",
			Help:      "Mean score of the most recent generation",
		}),
		runs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed optimizer runs",
		}),
		finalSuiteSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_suite_size",
			Help:      "Number of cases in the final suite",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
		}),
		finalBestScores: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_best_score",
			Help:      "Best case score of the final suite",
			Buckets:   prometheus.LinearBuckets(0, 50, 10),
		}),
	}
}

func (r *Recorder) ObserveGeneration(diag model.GenerationDiagnostics) {
	r.generations.Inc()
	r.mutations.WithLabelValues("accepted").Add(float64(diag.MutationsAccepted))
	r.mutations.WithLabelValues("rejected").Add(float64(diag.MutationsRejected))
	r.mutations.WithLabelValues("duplicate").Add(float64(diag.MutationsDuplicate))
	r.onlookers.Add(float64(diag.OnlookersAdded))
	r.scouts.Add(float64(diag.ScoutsReplaced))
	r.bestScore.Set(diag.BestScore)
	r.meanScore.Set(diag.MeanScore)
}

func (r *Recorder) ObserveRun(result evo.RunResult) {
	r.runs.Inc()
	r.finalSuiteSize.Observe(float64(len(result.Final)))
	r.finalBestScores.Observe(result.BestScore())
}
