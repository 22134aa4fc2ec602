package timestamp

// Rule types. A rule either reads an exif tag, matches a regexp against the
// path, or falls back to filesystem times.
const (
	RuleTypeExif        = "exif"
	RuleTypePath        = "path"
	RuleTypeFilesystem  = "filesystem"
	RuleTypeUserDefined = "user_defined"
)

// Timezone source descriptions accepted by source_tz / report_tz.
const (
	TZUTC         = "utc"
	TZGPSFinder   = "gps_timezonefinder"
	TZUserDefault = "user_default"
	TZNamePrefix  = "name:"
)

// Rule describes one step of the local-time extraction ladder. Rules are
// applied in order; the first applicable rule wins. A rule that cannot fetch
// a time, fails a condition gate, or cannot resolve a required timezone is
// not applicable and the resolver moves on.
type Rule struct {
	ID       int    `json:"id" yaml:"id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	RuleType string `json:"rule_type" yaml:"rule_type"`

	// exif rules
	ExifTag string `json:"exif_tag,omitempty" yaml:"exif_tag,omitempty"`

	// path rules
	PathPart         string `json:"path_part,omitempty" yaml:"path_part,omitempty"`                 // "filename" (default) or "full_path"
	CustomRegexp     string `json:"custom_regexp,omitempty" yaml:"custom_regexp,omitempty"`         // must expose six groups: y m d H M S
	PredefinedRegexp string `json:"predefined_regexp,omitempty" yaml:"predefined_regexp,omitempty"` // "default" or "whatsapp"

	// filesystem rules
	FileProperty string `json:"file_property,omitempty" yaml:"file_property,omitempty"` // "mtime" or "ctime"

	// timezone transform
	TransformTZ bool   `json:"transform_tz,omitempty" yaml:"transform_tz,omitempty"`
	SourceTZ    string `json:"source_tz,omitempty" yaml:"source_tz,omitempty"`
	ReportTZ    string `json:"report_tz,omitempty" yaml:"report_tz,omitempty"`

	// condition gates; all provided conditions must hold
	ConditionPath     string `json:"condition_path,omitempty" yaml:"condition_path,omitempty"`
	ConditionFilename string `json:"condition_filename,omitempty" yaml:"condition_filename,omitempty"`
	ConditionExif     string `json:"condition_exif,omitempty" yaml:"condition_exif,omitempty"` // "<tag>//<regexp>"

	IsDefault bool `json:"is_default,omitempty" yaml:"is_default,omitempty"`
}

// Exif tag names used by the predefined rules.
const (
	TagDateTime            = "EXIF:DateTime"
	TagDateTimeOriginal    = "EXIF:DateTimeOriginal"
	TagQuickTimeCreateDate = "QuickTime:CreateDate"
	TagGPSDateTime         = "Composite:GPSDateTime"
)

// DefaultRules is the rule ladder applied when a user has not configured
// their own. Order matters: DateTimeOriginal, then the QuickTime creation
// date converted from UTC into the GPS timezone, then the filename, then the
// QuickTime creation date reported in the user default timezone.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       1,
			Name:     "Local time from EXIF:DateTimeOriginal exif tag",
			RuleType: RuleTypeExif,
			ExifTag:  TagDateTimeOriginal,
		},
		{
			ID:          2,
			Name:        "Video creation tag in UTC + timezone from GPS coordinates",
			RuleType:    RuleTypeExif,
			ExifTag:     TagQuickTimeCreateDate,
			TransformTZ: true,
			SourceTZ:    TZUTC,
			ReportTZ:    TZGPSFinder,
		},
		{
			ID:       3,
			Name:     "Filename, assuming time is local",
			RuleType: RuleTypePath,
		},
		{
			ID:          4,
			Name:        "Video creation datetime in user default timezone",
			RuleType:    RuleTypeExif,
			ExifTag:     TagQuickTimeCreateDate,
			TransformTZ: true,
			SourceTZ:    TZUTC,
			ReportTZ:    TZUserDefault,
		},
	}
}

// OtherRules are predefined but not applied by default; users can promote
// them into their personal ladder.
func OtherRules() []Rule {
	return []Rule{
		{ID: 5, Name: "Extract date using WhatsApp file name", RuleType: RuleTypePath, PredefinedRegexp: "whatsapp"},
		{ID: 6, Name: "Video creation datetime as literal UTC", RuleType: RuleTypeExif, ExifTag: TagQuickTimeCreateDate},
		{ID: 7, Name: "File modified time in user default timezone", RuleType: RuleTypeFilesystem, FileProperty: "mtime", TransformTZ: true, SourceTZ: TZUTC, ReportTZ: TZUserDefault},
		{ID: 8, Name: "File modified time in UTC", RuleType: RuleTypeFilesystem, FileProperty: "mtime"},
		{ID: 9, Name: "File created time in user default timezone", RuleType: RuleTypeFilesystem, FileProperty: "ctime", TransformTZ: true, SourceTZ: TZUTC, ReportTZ: TZUserDefault},
		{ID: 10, Name: "File created time in UTC", RuleType: RuleTypeFilesystem, FileProperty: "ctime"},
		{ID: 11, Name: "GPS datetime tag + timezone from GPS coordinates", RuleType: RuleTypeExif, ExifTag: TagGPSDateTime, TransformTZ: true, SourceTZ: TZUTC, ReportTZ: TZGPSFinder},
	}
}

// RequiredExifTags returns every exif tag the rule may read, including the
// condition_exif tag, so callers can fetch them in one exiftool pass.
func (r *Rule) RequiredExifTags() []string {
	var tags []string
	if tag, _, ok := r.conditionExif(); ok {
		tags = append(tags, tag)
	}
	if r.RuleType == RuleTypeExif && r.ExifTag != "" {
		tags = append(tags, r.ExifTag)
	}
	return tags
}
