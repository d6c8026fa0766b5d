package catalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoguide/pkg/geo"
	"geoguide/pkg/model"
)

func TestNormalizeRadius(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-3, 0},
		{0, 0},
		{0.04, 0},
		{0.05, 0.1},
		{0.26, 0.3},
		{5, 5},
		{12.345, 12.3},
		{24.96, 25},
		{25, 25},
		{80, 25},
		{math.NaN(), 0},
		{math.Inf(1), 25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeRadius(tt.in), "NormalizeRadius(%v)", tt.in)
	}
}

// ring places n points east of center, 100 m apart. Ids run backwards from
// the nearest one so that distance order differs from id order.
func ring(center geo.Point, n int) []model.Point {
	out := make([]model.Point, n)
	for i := range out {
		out[i] = model.Point{
			ID:               string(rune('a' + n - 1 - i)),
			Title:            "P",
			Location:         geo.DestinationPoint(center, float64(i)*100, 90),
			ActivationRadius: 25,
		}
	}
	return out
}

func TestPaginate(t *testing.T) {
	center := geo.Point{Lat: 50, Lon: 8}
	pts := ring(center, 6) // ids f,e,d,c,b,a at 0,100,...,500 m

	t.Run("OrderedByDistance", func(t *testing.T) {
		got := paginate(pts, Page{Center: center, RadiusKm: 1, Number: 1, Size: 10})
		require.Equal(t, 6, got.Total)
		var ids []string
		for _, p := range got.Points {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []string{"f", "e", "d", "c", "b", "a"}, ids)
	})

	t.Run("RadiusFilter", func(t *testing.T) {
		got := paginate(pts, Page{Center: center, RadiusKm: 0.25, Number: 1, Size: 10})
		assert.Equal(t, 3, got.Total)
	})

	t.Run("Pages", func(t *testing.T) {
		p2 := paginate(pts, Page{Center: center, RadiusKm: 1, Number: 2, Size: 4})
		assert.Equal(t, 6, p2.Total)
		require.Len(t, p2.Points, 2)
		assert.Equal(t, "b", p2.Points[0].ID)

		p3 := paginate(pts, Page{Center: center, RadiusKm: 1, Number: 3, Size: 4})
		assert.Empty(t, p3.Points)
		assert.NotNil(t, p3.Points)
	})

	t.Run("TieBrokenByID", func(t *testing.T) {
		same := []model.Point{
			{ID: "z", Location: center},
			{ID: "m", Location: center},
		}
		got := paginate(same, Page{Center: center, RadiusKm: 1, Number: 1, Size: 10})
		assert.Equal(t, "m", got.Points[0].ID)
	})
}

func TestPage_Normalize(t *testing.T) {
	p := Page{RadiusKm: 30, Number: 0, Size: 0}.normalize(50)
	assert.Equal(t, 25.0, p.RadiusKm)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 50, p.Size)

	p = Page{Size: 10000}.normalize(50)
	assert.Equal(t, MaxPageSize, p.Size)
}

func TestLonRanges(t *testing.T) {
	assert.Equal(t, [][2]float64{{10, 20}}, lonRanges(10, 20))
	assert.Equal(t, [][2]float64{{179, 180}, {-180, -179}}, lonRanges(179, 181))
	assert.Equal(t, [][2]float64{{179, 180}, {-180, -179}}, lonRanges(-181, -179))
	assert.Equal(t, [][2]float64{{-180, 180}}, lonRanges(-200, 200))
}
