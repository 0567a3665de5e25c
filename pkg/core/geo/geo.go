// Package geo places properties on the dashboard map. Positions are an
// approximation: a city or prefecture centre found in the address plus a
// small deterministic offset, never a geocoded point.
package geo

import (
	"hash/fnv"
	"strings"

	"github.com/shopspring/decimal"

	"rental_valuation/pkg/models"
)

// Point is a latitude/longitude pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// KansaiCenter is used when nothing in the address is recognised.
var KansaiCenter = Point{Lat: 34.8, Lng: 135.5}

// jitterSpan is the half-width, in degrees, of the offset added to table
// positions so properties in the same city do not overlap.
const jitterSpan = 0.03

// MapLocation is one marker.
type MapLocation struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Lat   float64         `json:"lat"`
	Lng   float64         `json:"lng"`
	Value decimal.Decimal `json:"value"`
}

// Known supplies exact positions for some companies.
type Known interface {
	Coordinates(companyName string) ([]Point, bool)
}

type place struct {
	key string
	pos Point
}

// places is searched in order; cities come before their prefecture.
var places = []place{
	{"大阪市北区", Point{34.70, 135.50}},
	{"大阪市中央区", Point{34.68, 135.51}},
	{"大阪市", Point{34.69, 135.50}},
	{"京都市", Point{35.01, 135.77}},
	{"神戸市", Point{34.69, 135.20}},
	{"大津市", Point{35.00, 135.87}},
	{"奈良市", Point{34.69, 135.80}},
	{"和歌山市", Point{34.23, 135.17}},
	{"千代田区", Point{35.69, 139.75}},
	{"中央区", Point{35.67, 139.77}},
	{"港区", Point{35.66, 139.75}},
	{"新宿区", Point{35.69, 139.70}},
	{"渋谷区", Point{35.66, 139.70}},
	{"横浜市", Point{35.45, 139.64}},
	{"川崎市", Point{35.53, 139.70}},
	{"さいたま市", Point{35.86, 139.65}},
	{"千葉市", Point{35.61, 140.12}},
	{"名古屋市", Point{35.18, 136.91}},
	{"札幌市", Point{43.06, 141.35}},
	{"仙台市", Point{38.27, 140.87}},
	{"広島市", Point{34.39, 132.46}},
	{"福岡市", Point{33.59, 130.40}},
	{"那覇市", Point{26.21, 127.68}},
	{"大阪", Point{34.69, 135.52}},
	{"京都", Point{35.02, 135.76}},
	{"兵庫", Point{34.69, 135.18}},
	{"滋賀", Point{35.00, 135.87}},
	{"奈良", Point{34.69, 135.83}},
	{"和歌山", Point{34.23, 135.17}},
	{"東京", Point{35.68, 139.69}},
	{"神奈川", Point{35.45, 139.64}},
	{"埼玉", Point{35.86, 139.65}},
	{"千葉", Point{35.61, 140.12}},
	{"愛知", Point{35.18, 136.91}},
	{"北海道", Point{43.06, 141.35}},
	{"宮城", Point{38.27, 140.87}},
	{"広島", Point{34.40, 132.46}},
	{"福岡", Point{33.61, 130.42}},
	{"沖縄", Point{26.21, 127.68}},
}

// Guess returns the table position for an address and whether it matched.
func Guess(location string) (Point, bool) {
	for _, p := range places {
		if strings.Contains(location, p.key) {
			return p.pos, true
		}
	}
	return KansaiCenter, false
}

// Jitter offsets p by up to jitterSpan degrees, derived from seed.
func Jitter(p Point, seed string) Point {
	h := fnv.New64a()
	h.Write([]byte(seed))
	sum := h.Sum64()
	dx := float64(sum&0xffff)/0xffff*2 - 1
	dy := float64((sum>>16)&0xffff)/0xffff*2 - 1
	return Point{Lat: p.Lat + dy*jitterSpan, Lng: p.Lng + dx*jitterSpan}
}

type Locator struct {
	known Known
}

// NewLocator accepts a nil Known.
func NewLocator(known Known) *Locator {
	return &Locator{known: known}
}

// Locate builds one marker per property of rec.
func (l *Locator) Locate(rec *models.FinancialRecord) []MapLocation {
	if rec == nil {
		return []MapLocation{}
	}
	var known []Point
	if l.known != nil {
		known, _ = l.known.Coordinates(rec.CompanyName)
	}

	out := make([]MapLocation, 0, len(rec.Properties))
	for i, p := range rec.Properties {
		var pos Point
		if i < len(known) {
			pos = known[i]
		} else {
			guess, _ := Guess(p.Location)
			pos = Jitter(guess, p.ID+p.Name)
		}
		out = append(out, MapLocation{
			ID:    p.ID,
			Name:  p.Name,
			Lat:   pos.Lat,
			Lng:   pos.Lng,
			Value: p.MarketValue,
		})
	}
	return out
}
