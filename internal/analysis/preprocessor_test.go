package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ZanzyTHEbar/dialin/internal/types"
)

func TestFilter_Matches(t *testing.T) {
	shot := newShot("s1", 18, 36, 27, nil)

	tests := []struct {
		name     string
		filter   Filter
		expected bool
	}{
		{name: "zero filter matches everything", filter: Filter{}, expected: true},
		{name: "same bean", filter: Filter{BeanID: "bean-1"}, expected: true},
		{name: "other bean", filter: Filter{BeanID: "bean-2"}, expected: false},
		{name: "from is inclusive", filter: Filter{From: baseTime}, expected: true},
		{name: "to is inclusive", filter: Filter{To: baseTime}, expected: true},
		{name: "before range", filter: Filter{From: baseTime.Add(time.Minute)}, expected: false},
		{name: "after range", filter: Filter{To: baseTime.Add(-time.Minute)}, expected: false},
		{
			name:     "bean and range together",
			filter:   Filter{BeanID: "bean-1", From: baseTime.Add(-time.Hour), To: baseTime.Add(time.Hour)},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter.Matches(shot))
		})
	}
}

func TestPrepareShots_KeepsShotsWithoutIDs(t *testing.T) {
	a := newShot("", 18, 36, 27, nil)
	b := newShot("", 18, 40, 29, nil)
	b.Timestamp = baseTime.Add(-time.Minute)

	prepared := PrepareShots([]types.Shot{a, b}, Filter{})

	assert.Len(t, prepared, 2)
	assert.Equal(t, 29, prepared[0].ExtractionTimeSeconds)
}

func TestPrepareShots_Empty(t *testing.T) {
	prepared := PrepareShots(nil, Filter{})
	assert.NotNil(t, prepared)
	assert.Empty(t, prepared)
}
