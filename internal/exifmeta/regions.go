package exifmeta

// XMP-mwg-rs region structs, as emitted by exiftool structured output.

const (
	TagRegionInfo  = "XMP:RegionInfo"
	TagOrientation = "EXIF:Orientation"
)

// RegionArea is a face box in the coordinate system given by Unit
// ("normalized" fractions of the applied dimensions, or raw pixels).
type RegionArea struct {
	X, Y, W, H float64
	Unit       string
}

// Region is one tagged area. Type is "Face" for the regions we care about;
// Name carries the person label the tagging software stored.
type Region struct {
	Name string
	Type string
	Area RegionArea
}

// RegionInfo is the full mwg-rs block of a file.
type RegionInfo struct {
	AppliedToWidth  float64
	AppliedToHeight float64
	AppliedToUnit   string
	Regions         []Region
}

// GetRegionInfo parses the XMP region block when present. Malformed or
// partially numeric entries are kept; validation of the coordinates is the
// caller's business since it depends on the unit.
func (s *Source) GetRegionInfo() (*RegionInfo, bool) {
	raw, ok := s.lookup(TagRegionInfo)
	if !ok {
		return nil, false
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}

	info := &RegionInfo{}
	if dims, ok := m["AppliedToDimensions"].(map[string]any); ok {
		info.AppliedToWidth, _ = asFloat(dims["W"])
		info.AppliedToHeight, _ = asFloat(dims["H"])
		info.AppliedToUnit, _ = dims["Unit"].(string)
	}
	list, ok := m["RegionList"].([]any)
	if !ok {
		// A single region may be emitted without the enclosing list.
		if one, okOne := m["RegionList"].(map[string]any); okOne {
			list = []any{one}
		} else {
			return nil, false
		}
	}
	for _, item := range list {
		rm, ok := item.(map[string]any)
		if !ok {
			continue
		}
		region := Region{}
		region.Name, _ = rm["Name"].(string)
		region.Type, _ = rm["Type"].(string)
		if am, ok := rm["Area"].(map[string]any); ok {
			region.Area.X, _ = asFloat(am["X"])
			region.Area.Y, _ = asFloat(am["Y"])
			region.Area.W, _ = asFloat(am["W"])
			region.Area.H, _ = asFloat(am["H"])
			region.Area.Unit, _ = am["Unit"].(string)
		}
		info.Regions = append(info.Regions, region)
	}
	return info, true
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}
