package geo

import (
	"net/http"
	"strconv"
	"strings"
)

// Headers the edge proxy is expected to set. Lat/lon are optional; country
// and connecting IP are what Cloudflare-style edges provide out of the box.
const (
	HeaderConnectingIP = "CF-Connecting-IP"
	HeaderCountry      = "CF-IPCountry"
	HeaderLatitude     = "CF-IPLatitude"
	HeaderLongitude    = "CF-IPLongitude"
)

// UnknownCountry is recorded when the edge supplies no country code.
const UnknownCountry = "??"

// Location is a resolved request-time geolocation. Lat/Lon are nil when
// neither the edge nor the centroid table could place the client.
type Location struct {
	IP      string
	Country string
	Lat     *float64
	Lon     *float64
}

// Resolver derives a Location from request headers, falling back from
// edge-provided coordinates to the country-centroid table.
type Resolver struct{}

// Resolve reads the edge headers. remoteIP is used when the edge did not
// forward a connecting-IP header.
func (Resolver) Resolve(h http.Header, remoteIP string) Location {
	loc := Location{
		IP:      h.Get(HeaderConnectingIP),
		Country: strings.ToUpper(h.Get(HeaderCountry)),
	}
	if loc.IP == "" {
		loc.IP = remoteIP
	}
	if loc.Country == "" {
		loc.Country = UnknownCountry
	}

	lat, okLat := parseCoord(h.Get(HeaderLatitude))
	lon, okLon := parseCoord(h.Get(HeaderLongitude))
	if okLat && okLon {
		loc.Lat, loc.Lon = &lat, &lon
		return loc
	}

	if c, ok := Centroid(loc.Country); ok {
		clat, clon := c[0], c[1]
		loc.Lat, loc.Lon = &clat, &clon
	}

	return loc
}

func parseCoord(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Centroid returns the coarse [lat, lon] centroid for an ISO country code.
func Centroid(country string) ([2]float64, bool) {
	c, ok := centroids[strings.ToUpper(country)]
	return c, ok
}

// Coarse country centroids, used when the edge supplies no coordinates.
var centroids = map[string][2]float64{
	"AR": {-34, -64},
	"AT": {47.5, 14.5},
	"AU": {-27, 133},
	"BD": {24, 90},
	"BE": {50.8, 4.5},
	"BR": {-14, -52},
	"CA": {60, -95},
	"CH": {47, 8},
	"CL": {-30, -71},
	"CN": {35, 105},
	"CO": {4, -72},
	"CZ": {49.8, 15.5},
	"DE": {51, 10},
	"DK": {56, 10},
	"EG": {27, 30},
	"ES": {40, -4},
	"FI": {64, 26},
	"FR": {46, 2},
	"GB": {54, -2},
	"GR": {39, 22},
	"HK": {22.3, 114.2},
	"HU": {47, 20},
	"ID": {-5, 120},
	"IE": {53, -8},
	"IL": {31.5, 34.8},
	"IN": {22, 79},
	"IT": {42.8, 12.8},
	"JP": {36, 138},
	"KE": {1, 38},
	"KR": {36, 127.5},
	"MX": {23, -102},
	"MY": {2.5, 112.5},
	"NG": {10, 8},
	"NL": {52.5, 5.75},
	"NO": {62, 10},
	"NZ": {-41, 174},
	"PE": {-10, -76},
	"PH": {13, 122},
	"PK": {30, 70},
	"PL": {52, 20},
	"PT": {39.5, -8},
	"RO": {46, 25},
	"RU": {60, 100},
	"SA": {25, 45},
	"SE": {62, 15},
	"SG": {1.37, 103.8},
	"TH": {15, 100},
	"TR": {39, 35},
	"TW": {23.5, 121},
	"UA": {49, 32},
	"US": {37, -95},
	"VN": {16, 106},
	"ZA": {-29, 24},
}
