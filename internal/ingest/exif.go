package ingest

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// DefaultDilutionOfPrecision is reported for photos whose GPS block lacks
// a GPSDOP tag.
const DefaultDilutionOfPrecision = "23000/1000"

// Reasons a photo produced no fix.
const (
	PhotoErrNoGPS       = "GPS data is not present"
	PhotoErrNoTimestamp = "GPS timestamp is not present"
)

// PhotoFix is a fix read from a photo's EXIF GPS block. Photos without
// usable GPS data are still reported, with Error set, so the JSON lines
// output lists every input file.
type PhotoFix struct {
	Record
	DilutionOfPrecision string `json:"dilution_of_precision"`
	Filename            string `json:"filename"`
	Error               string `json:"error"`
}

// ReadEXIF extracts the GPS position and GPS UTC timestamp of a photo.
func ReadEXIF(r io.Reader, filename string) PhotoFix {
	fix := PhotoFix{Filename: filename, Error: PhotoErrNoGPS}

	x, err := exif.Decode(r)
	if err != nil {
		return fix
	}
	lat, lon, err := x.LatLong()
	if err != nil {
		return fix
	}
	moment, err := gpsTimestamp(x)
	if err != nil {
		fix.Error = PhotoErrNoTimestamp
		return fix
	}

	fix.Latitude = roundTo6(lat)
	fix.Longitude = roundTo6(lon)
	fix.TimestampUTC = moment.Unix()
	fix.DilutionOfPrecision = dilutionOfPrecision(x)
	fix.Error = ""
	return fix
}

// gpsTimestamp combines GPSDateStamp ("2016:07:07") and GPSTimeStamp
// (hours, minutes, seconds as rationals) into a UTC time.
func gpsTimestamp(x *exif.Exif) (time.Time, error) {
	dateTag, err := x.Get(exif.GPSDateStamp)
	if err != nil {
		return time.Time{}, err
	}
	date, err := dateTag.StringVal()
	if err != nil {
		return time.Time{}, err
	}
	day, err := time.ParseInLocation("2006:01:02", strings.TrimSpace(strings.TrimRight(date, "\x00")), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid GPSDateStamp %q: %w", date, err)
	}

	timeTag, err := x.Get(exif.GPSTimeStamp)
	if err != nil {
		return time.Time{}, err
	}
	var hms [3]int
	for i := range hms {
		num, den, err := timeTag.Rat2(i)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid GPSTimeStamp: %w", err)
		}
		if den == 0 {
			return time.Time{}, fmt.Errorf("invalid GPSTimeStamp: zero denominator")
		}
		hms[i] = int(num / den)
	}
	return day.Add(time.Duration(hms[0])*time.Hour +
		time.Duration(hms[1])*time.Minute +
		time.Duration(hms[2])*time.Second), nil
}

func dilutionOfPrecision(x *exif.Exif) string {
	tag, err := x.Get(exif.GPSDOP)
	if err != nil {
		return DefaultDilutionOfPrecision
	}
	num, den, err := tag.Rat2(0)
	if err != nil {
		return DefaultDilutionOfPrecision
	}
	return fmt.Sprintf("%d/%d", num, den)
}

func roundTo6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// WritePhotoFixes writes one JSON object per photo.
func WritePhotoFixes(w io.Writer, fixes []PhotoFix) error {
	for _, f := range fixes {
		if err := writeJSONLine(w, f); err != nil {
			return err
		}
	}
	return nil
}
