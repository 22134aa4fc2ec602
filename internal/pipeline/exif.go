package pipeline

import (
	"fmt"
	"math"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/exifmeta"
)

// Tags read by the exif and geolocation steps. Values come through
// without print conversion, so numeric tags arrive numeric.
const (
	tagGPSLatitude  = "Composite:GPSLatitude"
	tagGPSLongitude = "Composite:GPSLongitude"

	tagFNumber      = "EXIF:FNumber"
	tagExposureTime = "EXIF:ExposureTime"
	tagFocalLength  = "EXIF:FocalLength"
	tagISO          = "EXIF:ISO"
	tagCameraModel  = "EXIF:Model"
	tagLensModel    = "EXIF:LensModel"
	tagImageWidth   = "File:ImageWidth"
	tagImageHeight  = "File:ImageHeight"
	tagDuration     = "QuickTime:Duration"
	tagRating       = "XMP:Rating"
)

// stepExif copies the camera metadata onto the photo. Each field accepts
// only its expected numeric type; anything else stays unset.
func (p *Pipeline) stepExif(photo *database.Photo, source *exifmeta.Source) error {
	if source == nil {
		return nil
	}

	if f, ok := source.GetFloat(tagFNumber); ok {
		photo.FStop = &f
	}
	if f, ok := source.GetFloat(tagFocalLength); ok {
		photo.FocalLength = &f
	}
	if n, ok := source.GetInt(tagISO); ok {
		photo.ISO = &n
	}
	if f, ok := source.GetFloat(tagExposureTime); ok && f > 0 {
		photo.ShutterSpeed = shutterFraction(f)
	}
	if s, ok := source.GetString(tagCameraModel); ok {
		photo.Camera = s
	}
	if s, ok := source.GetString(tagLensModel); ok {
		photo.Lens = s
	}
	if n, ok := source.GetInt(tagImageWidth); ok {
		photo.Width = n
	}
	if n, ok := source.GetInt(tagImageHeight); ok {
		photo.Height = n
	}
	if n, ok := source.GetInt(tagRating); ok {
		photo.Rating = n
	}
	if photo.MainFile != nil && photo.MainFile.Type == database.MediaTypeVideo {
		if f, ok := source.GetFloat(tagDuration); ok {
			photo.VideoLength = &f
		}
	}
	return nil
}

// shutterFraction renders an exposure time in seconds as the closest
// fraction with a denominator of at most 1000, e.g. 0.004 -> "1/250".
func shutterFraction(seconds float64) string {
	num, den := limitDenominator(seconds, 1000)
	if den == 1 {
		return fmt.Sprintf("%d", num)
	}
	return fmt.Sprintf("%d/%d", num, den)
}

// limitDenominator finds the best rational approximation of x with a
// denominator of at most maxDen, walking the continued fraction
// convergents.
func limitDenominator(x float64, maxDen int) (int, int) {
	if x == 0 {
		return 0, 1
	}
	sign := 1
	if x < 0 {
		sign = -1
		x = -x
	}

	// Convergents p/q of the continued fraction expansion of x.
	p0, q0 := 0, 1
	p1, q1 := 1, 0
	rem := x
	for i := 0; i < 64; i++ {
		a := int(math.Floor(rem))
		p2 := a*p1 + p0
		q2 := a*q1 + q0
		if q2 > maxDen {
			// The semiconvergent with the largest admissible coefficient
			// may still beat the previous convergent.
			k := (maxDen - q0) / q1
			pSemi, qSemi := k*p1+p0, k*q1+q0
			if qSemi > 0 && math.Abs(float64(pSemi)/float64(qSemi)-x) < math.Abs(float64(p1)/float64(q1)-x) {
				return sign * pSemi, qSemi
			}
			return sign * p1, q1
		}
		p0, q0 = p1, q1
		p1, q1 = p2, q2

		frac := rem - float64(a)
		if frac < 1e-12 {
			break
		}
		rem = 1 / frac
	}
	return sign * p1, q1
}
