package seed

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/dialin/internal/analysis"
	"github.com/ZanzyTHEbar/dialin/internal/types"
	"github.com/ZanzyTHEbar/dialin/internal/validation"
)

var seedNow = time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC)

func newTestGenerator(seed uint64) *Generator {
	return NewGenerator(seed, analysis.NewAnalyzer(analysis.DefaultCalibration()),
		types.DefaultGrinderConfiguration(), types.DefaultBasketConfiguration(), seedNow)
}

func testBean() types.Bean {
	return types.Bean{ID: "bean-1", Name: "Kenya Nyeri AA", RoastDate: seedNow.AddDate(0, 0, -10), IsActive: true}
}

func TestShots_Deterministic(t *testing.T) {
	a := newTestGenerator(42).Shots(testBean(), 10)
	b := newTestGenerator(42).Shots(testBean(), 10)
	assert.Equal(t, a, b)

	c := newTestGenerator(7).Shots(testBean(), 10)
	assert.NotEqual(t, a, c)
}

func TestShots_PassValidation(t *testing.T) {
	bean := testBean()
	grinder := types.DefaultGrinderConfiguration()
	basket := types.DefaultBasketConfiguration()

	for _, seed := range []uint64{1, 2, 3, 99, 12345} {
		shots := newTestGenerator(seed).Shots(bean, 20)
		require.Len(t, shots, 20)

		for i, req := range shots {
			require.NoError(t, validation.ValidateShot(req, &bean, grinder, basket), "seed %d shot %d", seed, i)
			assert.Equal(t, bean.ID, req.BeanID)
			require.NotNil(t, req.Timestamp)
			assert.True(t, req.Timestamp.Before(seedNow))
			assert.True(t, req.Timestamp.After(bean.RoastDate))
			if i > 0 {
				assert.True(t, req.Timestamp.After(*shots[i-1].Timestamp), "timestamps must ascend")
			}
		}
	}
}

func TestShots_ConvergeOnTarget(t *testing.T) {
	target := analysis.DefaultCalibration().TargetTime()

	for _, seed := range []uint64{1, 2, 3, 4, 5} {
		shots := newTestGenerator(seed).Shots(testBean(), 15)

		var total float64
		for _, s := range shots[10:] {
			total += math.Abs(float64(s.ExtractionTimeSeconds) - target)
		}
		assert.Less(t, total/5, 6.0, "seed %d", seed)
	}
}

func TestShots_Empty(t *testing.T) {
	assert.Nil(t, newTestGenerator(1).Shots(testBean(), 0))
}

func TestBean(t *testing.T) {
	g := newTestGenerator(3)

	for i := 0; i < 30; i++ {
		req := g.Bean(i)
		roast, err := validation.ValidateBean(req, seedNow)
		require.NoError(t, err, "bean %d", i)

		days := types.Bean{RoastDate: roast}.DaysSinceRoast(seedNow)
		assert.GreaterOrEqual(t, days, 2)
		assert.LessOrEqual(t, days, 40)
	}

	assert.Equal(t, beanNames[0], g.Bean(0).Name)
	assert.True(t, strings.HasSuffix(g.Bean(len(beanNames)).Name, "#2"))
}

type fakeStore struct {
	beans    []types.Bean
	shots    []types.RecordShotRequest
	failAt   int
	recorded int
}

func (f *fakeStore) Create(_ context.Context, req types.CreateBeanRequest) (*types.Bean, error) {
	roast, err := time.Parse(validation.RoastDateLayout, req.RoastDate)
	if err != nil {
		return nil, err
	}
	b := types.Bean{ID: req.Name, Name: req.Name, RoastDate: roast, IsActive: true}
	f.beans = append(f.beans, b)
	return &b, nil
}

func (f *fakeStore) Record(_ context.Context, req types.RecordShotRequest) (*types.Shot, error) {
	f.recorded++
	if f.failAt > 0 && f.recorded == f.failAt {
		return nil, errors.New("disk full")
	}
	f.shots = append(f.shots, req)
	return &types.Shot{BeanID: req.BeanID}, nil
}

func TestRun(t *testing.T) {
	store := &fakeStore{}
	res, err := newTestGenerator(5).Run(context.Background(), store, store, Options{Beans: 3, ShotsPerBean: 4})
	require.NoError(t, err)

	assert.Equal(t, &Result{Beans: 3, Shots: 12}, res)
	assert.Len(t, store.beans, 3)
	assert.Len(t, store.shots, 12)
}

func TestRun_StopsOnError(t *testing.T) {
	store := &fakeStore{failAt: 6}
	res, err := newTestGenerator(5).Run(context.Background(), store, store, Options{Beans: 3, ShotsPerBean: 4})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 2, res.Beans)
	assert.Equal(t, 5, res.Shots)
}
