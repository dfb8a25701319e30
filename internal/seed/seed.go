// Package seed generates a believable journal for demos and local testing:
// a handful of beans, each dialed in over a run of shots that converges on a
// hidden sweet spot by following the grind recommender.
package seed

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/dialin/internal/analysis"
	"github.com/ZanzyTHEbar/dialin/internal/types"
	"github.com/ZanzyTHEbar/dialin/internal/validation"
)

// secondsPerStep is how much one grinder step moves the simulated pour time
const secondsPerStep = 2.5

var beanNames = []string{
	"Ethiopia Yirgacheffe", "Colombia Huila", "Brazil Cerrado", "Kenya Nyeri AA",
	"Guatemala Antigua", "Sumatra Mandheling", "Costa Rica Tarrazu", "Rwanda Huye",
	"Panama Boquete", "Burundi Kayanza", "Honduras Marcala", "Peru Cajamarca",
}

// BeanCreator persists generated beans
type BeanCreator interface {
	Create(ctx context.Context, req types.CreateBeanRequest) (*types.Bean, error)
}

// ShotRecorder persists generated shots
type ShotRecorder interface {
	Record(ctx context.Context, req types.RecordShotRequest) (*types.Shot, error)
}

// Options controls how much data is generated
type Options struct {
	Beans        int
	ShotsPerBean int
	Seed         uint64
}

// Result counts what was written
type Result struct {
	Beans int `json:"beans"`
	Shots int `json:"shots"`
}

// Generator produces deterministic journals for a given seed
type Generator struct {
	rng      *rand.Rand
	analyzer *analysis.Analyzer
	grinder  types.GrinderConfiguration
	basket   types.BasketConfiguration
	now      time.Time
}

// NewGenerator creates a generator. The same seed and now give the same output.
func NewGenerator(seed uint64, analyzer *analysis.Analyzer, grinder types.GrinderConfiguration, basket types.BasketConfiguration, now time.Time) *Generator {
	return &Generator{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		analyzer: analyzer,
		grinder:  grinder,
		basket:   basket,
		now:      now.UTC(),
	}
}

// Bean builds a bean request roasted between 2 and 40 days ago
func (g *Generator) Bean(i int) types.CreateBeanRequest {
	name := beanNames[i%len(beanNames)]
	if i >= len(beanNames) {
		name = fmt.Sprintf("%s #%d", name, i/len(beanNames)+1)
	}
	roast := g.now.AddDate(0, 0, -(2 + g.rng.IntN(39)))
	return types.CreateBeanRequest{
		Name:      name,
		RoastDate: roast.Format(validation.RoastDateLayout),
		Notes:     "generated",
	}
}

// Shots simulates a dial-in session of n shots for the bean, oldest first.
// Each shot's grind follows the recommendation made for the one before it.
func (g *Generator) Shots(bean types.Bean, n int) []types.RecordShotRequest {
	if n <= 0 {
		return nil
	}

	target := g.analyzer.Calibration().TargetTime()
	step := g.grinder.StepSize
	if step <= 0 {
		step = 1
	}

	span := g.grinder.ScaleMax - g.grinder.ScaleMin
	sweet := g.snap(g.grinder.ScaleMin + span*(0.3+0.4*g.rng.Float64()))
	setting := g.snap(sweet + float64(g.rng.IntN(9)-4)*step)

	dose := g.clampIn(18 + math.Round((g.rng.Float64()-0.5)*10)/10)
	times := g.timestamps(bean.RoastDate, n)

	shots := make([]types.RecordShotRequest, 0, n)
	for i := 0; i < n; i++ {
		offSteps := (sweet - setting) / step
		seconds := int(math.Round(target + offSteps*secondsPerStep + g.rng.NormFloat64()*1.5))
		seconds = min(max(seconds, validation.MinExtractionTime), validation.MaxExtractionTime)

		ratio := 1.9 + g.rng.Float64()*0.4
		out := g.clampOut(math.Round(dose*ratio*10) / 10)

		ts := times[i]
		req := types.RecordShotRequest{
			BeanID:                bean.ID,
			CoffeeWeightIn:        dose,
			CoffeeWeightOut:       out,
			ExtractionTimeSeconds: seconds,
			GrinderSetting:        g.format(setting),
			Timestamp:             &ts,
		}

		// One in five shots goes untasted
		if g.rng.IntN(5) > 0 {
			taste := tasteFor(g.analyzer.TimeDeviation(seconds))
			req.TastePrimary = &taste
		}
		shots = append(shots, req)

		rec := g.analyzer.Recommend(req.GrinderSetting, g.analyzer.TimeDeviation(seconds), req.TastePrimary, g.grinder)
		if next, err := strconv.ParseFloat(rec.SuggestedSetting, 64); err == nil {
			setting = next
		}
	}

	return shots
}

// Run generates and stores opts.Beans beans with opts.ShotsPerBean shots each
func (g *Generator) Run(ctx context.Context, beans BeanCreator, shots ShotRecorder, opts Options) (*Result, error) {
	res := &Result{}
	for i := 0; i < opts.Beans; i++ {
		bean, err := beans.Create(ctx, g.Bean(i))
		if err != nil {
			return res, fmt.Errorf("creating bean %d: %w", i+1, err)
		}
		res.Beans++

		for _, req := range g.Shots(*bean, opts.ShotsPerBean) {
			if _, err := shots.Record(ctx, req); err != nil {
				return res, fmt.Errorf("recording shot for %s: %w", bean.Name, err)
			}
			res.Shots++
		}
	}
	return res, nil
}

// timestamps spreads n morning pulls between the day after roasting and now
func (g *Generator) timestamps(roast time.Time, n int) []time.Time {
	start := time.Date(roast.Year(), roast.Month(), roast.Day(), 7, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	end := g.now.Add(-time.Hour)
	if !start.Before(end) {
		start = end.Add(-time.Duration(n) * time.Minute)
	}

	span := end.Sub(start)
	out := make([]time.Time, n)
	for i := range out {
		jitter := time.Duration(g.rng.IntN(20)) * time.Second
		out[i] = start.Add(span * time.Duration(i) / time.Duration(n)).Add(jitter).Truncate(time.Second)
	}
	return out
}

func tasteFor(deviation int) types.TastePrimary {
	switch {
	case deviation < -6:
		return types.TasteSour
	case deviation < -3:
		return types.TasteSlightlySour
	case deviation <= 3:
		return types.TastePerfect
	case deviation <= 6:
		return types.TasteSlightlyBitter
	default:
		return types.TasteBitter
	}
}

func (g *Generator) snap(v float64) float64 {
	step := g.grinder.StepSize
	if step > 0 {
		v = g.grinder.ScaleMin + math.Round((v-g.grinder.ScaleMin)/step)*step
	}
	return math.Min(math.Max(v, g.grinder.ScaleMin), g.grinder.ScaleMax)
}

func (g *Generator) format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (g *Generator) clampIn(v float64) float64 {
	return math.Min(math.Max(v, g.basket.CoffeeInMin), g.basket.CoffeeInMax)
}

func (g *Generator) clampOut(v float64) float64 {
	return math.Min(math.Max(v, g.basket.CoffeeOutMin), g.basket.CoffeeOutMax)
}
