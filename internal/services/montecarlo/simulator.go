package montecarlo

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"EquityPulse/internal/domain/models"
)

const (
	// MinObservations is the fewest trailing closes drift and volatility
	// can be estimated from.
	MinObservations = 60
	// TradingDaysPerYear annualizes the daily volatility estimate.
	TradingDaysPerYear = 252

	DefaultHorizonDays = 252
	DefaultPaths       = 10000

	defaultBins = 20
)

// InsufficientHistoryError is the simulator's one hard failure: too few
// trailing observations to estimate drift and volatility from. There is
// no statistically sound fallback, so the caller must supply a longer
// history or skip the projection.
type InsufficientHistoryError struct {
	Observations int
	Required     int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient price history: only %d observations available (need at least %d)",
		e.Observations, e.Required)
}

type simConfig struct {
	seed *int64
	bins int
}

// Option tunes a single simulation run.
type Option func(*simConfig)

// WithSeed pins the shock source for bit-reproducible output.
func WithSeed(seed int64) Option {
	return func(c *simConfig) { c.seed = &seed }
}

// WithBins overrides the histogram bin count.
func WithBins(n int) Option {
	return func(c *simConfig) {
		if n > 0 {
			c.bins = n
		}
	}
}

// Simulator projects price paths by drawing daily log-return shocks from
// a normal fit of the trailing history.
type Simulator struct{}

func NewSimulator() *Simulator { return &Simulator{} }

// Simulate draws an nPaths by horizonDays shock matrix in one batch,
// turns it into cumulative path multipliers, and summarizes the terminal
// distribution. Non-positive closes are dropped before fitting.
func (s *Simulator) Simulate(prices []float64, horizonDays, nPaths int, opts ...Option) (*models.ProjectionResult, error) {
	cfg := simConfig{bins: defaultBins}
	for _, o := range opts {
		o(&cfg)
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	if nPaths <= 0 {
		nPaths = DefaultPaths
	}

	usable := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p > 0 {
			usable = append(usable, p)
		}
	}
	if len(usable) < MinObservations {
		return nil, &InsufficientHistoryError{Observations: len(usable), Required: MinObservations}
	}
	current := usable[len(usable)-1]

	logReturns := make([]float64, len(usable)-1)
	for i := 1; i < len(usable); i++ {
		logReturns[i-1] = math.Log(usable[i] / usable[i-1])
	}

	mu := stat.Mean(logReturns, nil)
	sigma := stat.StdDev(logReturns, nil)

	dist := distuv.Normal{Mu: mu, Sigma: sigma}
	if cfg.seed != nil {
		dist.Src = rand.NewSource(uint64(*cfg.seed))
	}
	shocks := make([]float64, nPaths*horizonDays)
	for i := range shocks {
		shocks[i] = dist.Rand()
	}

	// One dense shock matrix for the whole run: exp turns log-return
	// shocks into daily multipliers, then a running product along each
	// row accumulates the path multiplier in place.
	paths := mat.NewDense(nPaths, horizonDays, shocks)
	paths.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, paths)
	raw := paths.RawMatrix()
	for r := 0; r < raw.Rows; r++ {
		row := raw.Data[r*raw.Stride : r*raw.Stride+raw.Cols]
		for c := 1; c < len(row); c++ {
			row[c] *= row[c-1]
		}
	}

	terminals := make([]float64, nPaths)
	mat.Col(terminals, horizonDays-1, paths)
	for i := range terminals {
		terminals[i] *= current
	}
	sort.Float64s(terminals)

	losses := sort.SearchFloat64s(terminals, current)
	p05 := stat.Quantile(0.05, stat.Empirical, terminals, nil)

	res := &models.ProjectionResult{
		CurrentPrice:         current,
		HorizonDays:          horizonDays,
		Paths:                nPaths,
		P10:                  stat.Quantile(0.10, stat.Empirical, terminals, nil),
		P50:                  stat.Quantile(0.50, stat.Empirical, terminals, nil),
		P90:                  stat.Quantile(0.90, stat.Empirical, terminals, nil),
		ProbabilityOfLoss:    float64(losses) / float64(nPaths),
		ValueAtRisk95:        math.Max(0, 1-p05/current),
		ExpectedReturn:       stat.Mean(terminals, nil)/current - 1,
		AnnualizedVolatility: sigma * math.Sqrt(TradingDaysPerYear),
		DailyMu:              mu,
		DailySigma:           sigma,
		Histogram:            returnHistogram(terminals, current, cfg.bins),
	}
	return res, nil
}

// returnHistogram buckets per-path returns into fixed-width bins.
// terminals must be sorted ascending.
func returnHistogram(terminals []float64, current float64, bins int) []models.HistogramBin {
	returns := make([]float64, len(terminals))
	for i, v := range terminals {
		returns[i] = v/current - 1
	}
	lo, hi := returns[0], returns[len(returns)-1]
	if hi <= lo {
		return []models.HistogramBin{{Low: lo, High: hi, Count: len(returns)}}
	}

	// stat.Histogram needs the max value strictly below the top divider.
	dividers := make([]float64, bins+1)
	width := (hi - lo) / float64(bins)
	for i := range dividers {
		dividers[i] = lo + float64(i)*width
	}
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, returns, nil)

	out := make([]models.HistogramBin, bins)
	for i, c := range counts {
		out[i] = models.HistogramBin{Low: dividers[i], High: dividers[i+1], Count: int(c)}
	}
	out[bins-1].High = hi
	return out
}
