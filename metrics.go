package hillclimb

import (
	"fmt"
	"sort"
	"sync"
)

// Polarity tells whether a larger metric value means a better performance.
type Polarity int

const (
	// HigherIsBetter is used for accuracies, scores and agreement statistics.
	HigherIsBetter Polarity = iota

	// LowerIsBetter is used for losses, errors and distances.
	LowerIsBetter
)

// String implements fmt.Stringer.
func (p Polarity) String() string {
	switch p {
	case HigherIsBetter:
		return "higher_is_better"
	case LowerIsBetter:
		return "lower_is_better"
	default:
		return fmt.Sprintf("polarity(%d)", int(p))
	}
}

// Built-in metric ids.
const (
	MetricAccuracy  = "accuracy"
	MetricCorrect   = "correct"
	MetricKappa     = "kappa"
	MetricPrecision = "precision"
	MetricRecall    = "recall"
	MetricFMeasure  = "fmeasure"
	MetricAUC       = "auc"
	MetricPRC       = "prc"
	MetricMCC       = "mcc"
	MetricErrorRate = "error_rate"
	MetricIncorrect = "incorrect"
	MetricMAE       = "mae"
	MetricRMSE      = "rmse"
	MetricRAE       = "rae"
	MetricRRSE      = "rrse"
	MetricLogLoss   = "log_loss"
)

// MetricDefinition describes a named measurement and its polarity.
type MetricDefinition struct {
	ID          string   `json:"id" yaml:"id"`
	Description string   `json:"description" yaml:"description"`
	Polarity    Polarity `json:"polarity" yaml:"polarity"`
}

// MetricTable holds the static polarity of every metric the search may
// optimise. Polarity is configuration, never inferred from values.
type MetricTable struct {
	mu      sync.RWMutex
	metrics map[string]MetricDefinition
}

// NewMetricTable creates an empty table.
func NewMetricTable() *MetricTable {
	return &MetricTable{metrics: make(map[string]MetricDefinition)}
}

// Register adds def, replacing any definition with the same id.
func (t *MetricTable) Register(def MetricDefinition) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics[def.ID] = def
}

// Get returns the definition of id.
func (t *MetricTable) Get(id string) (MetricDefinition, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	def, ok := t.metrics[id]

	return def, ok
}

// Polarity returns the polarity of id, or an error for unknown metrics.
func (t *MetricTable) Polarity(id string) (Polarity, error) {
	def, ok := t.Get(id)
	if !ok {
		return 0, fmt.Errorf("unknown metric %q", id)
	}

	return def.Polarity, nil
}

// List returns every definition sorted by id.
func (t *MetricTable) List() []MetricDefinition {
	t.mu.RLock()
	defer t.mu.RUnlock()

	defs := make([]MetricDefinition, 0, len(t.metrics))
	for _, def := range t.metrics {
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })

	return defs
}

// DefaultMetricTable returns a table pre-loaded with the common
// classification and regression measurements.
func DefaultMetricTable() *MetricTable {
	t := NewMetricTable()

	for _, def := range []MetricDefinition{
		{ID: MetricAccuracy, Description: "Percentage of correctly classified instances.", Polarity: HigherIsBetter},
		{ID: MetricCorrect, Description: "Number of correctly classified instances.", Polarity: HigherIsBetter},
		{ID: MetricKappa, Description: "Cohen's kappa statistic.", Polarity: HigherIsBetter},
		{ID: MetricPrecision, Description: "Weighted average precision.", Polarity: HigherIsBetter},
		{ID: MetricRecall, Description: "Weighted average recall.", Polarity: HigherIsBetter},
		{ID: MetricFMeasure, Description: "Weighted average F-measure.", Polarity: HigherIsBetter},
		{ID: MetricAUC, Description: "Weighted area under the ROC curve.", Polarity: HigherIsBetter},
		{ID: MetricPRC, Description: "Weighted area under the precision-recall curve.", Polarity: HigherIsBetter},
		{ID: MetricMCC, Description: "Weighted Matthews correlation coefficient.", Polarity: HigherIsBetter},
		{ID: MetricErrorRate, Description: "Percentage of incorrectly classified instances.", Polarity: LowerIsBetter},
		{ID: MetricIncorrect, Description: "Number of incorrectly classified instances.", Polarity: LowerIsBetter},
		{ID: MetricMAE, Description: "Mean absolute error.", Polarity: LowerIsBetter},
		{ID: MetricRMSE, Description: "Root mean squared error.", Polarity: LowerIsBetter},
		{ID: MetricRAE, Description: "Relative absolute error.", Polarity: LowerIsBetter},
		{ID: MetricRRSE, Description: "Root relative squared error.", Polarity: LowerIsBetter},
		{ID: MetricLogLoss, Description: "Logarithmic loss.", Polarity: LowerIsBetter},
	} {
		t.Register(def)
	}

	return t
}
