package timestamp

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// TagSource fetches exif tag values for a media file, preferring sidecar
// values over the primary file.
type TagSource interface {
	Tags(names []string) (map[string]string, error)
}

// Input carries everything a rule may inspect.
type Input struct {
	Path                 string
	Exif                 TagSource
	GPSLat, GPSLon       *float64
	UserDefaultTZ        string
	UserDefinedTimestamp *LocalWallClock
}

// Resolve runs the rule ladder over the input and returns the first local
// wall-clock time a rule produces, or nil when no rule applies.
func Resolve(rules []Rule, in Input) (*LocalWallClock, error) {
	required := map[string]struct{}{}
	for i := range rules {
		for _, tag := range rules[i].RequiredExifTags() {
			required[tag] = struct{}{}
		}
	}
	tags := map[string]string{}
	if len(required) > 0 && in.Exif != nil {
		names := make([]string, 0, len(required))
		for tag := range required {
			names = append(names, tag)
		}
		fetched, err := in.Exif.Tags(names)
		if err != nil {
			return nil, fmt.Errorf("fetch exif tags: %w", err)
		}
		tags = fetched
	}

	for i := range rules {
		res, err := rules[i].apply(in, tags)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, nil
}

func (r *Rule) conditionExif() (tag, pattern string, ok bool) {
	if r.ConditionExif == "" {
		return "", "", false
	}
	parts := strings.SplitN(r.ConditionExif, "//", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (r *Rule) checkConditions(path string, tags map[string]string) bool {
	if tag, pattern, ok := r.conditionExif(); ok {
		val := tags[tag]
		if val == "" {
			return false
		}
		matched, err := regexp.MatchString(pattern, val)
		if err != nil || !matched {
			return false
		}
	}
	if r.ConditionPath != "" {
		matched, err := regexp.MatchString(r.ConditionPath, path)
		if err != nil || !matched {
			return false
		}
	}
	if r.ConditionFilename != "" {
		matched, err := regexp.MatchString(r.ConditionFilename, filepath.Base(path))
		if err != nil || !matched {
			return false
		}
	}
	return true
}

func (r *Rule) apply(in Input, tags map[string]string) (*LocalWallClock, error) {
	if !r.checkConditions(in.Path, tags) {
		return nil, nil
	}
	switch r.RuleType {
	case RuleTypeExif:
		return r.applyExif(in, tags), nil
	case RuleTypePath:
		return r.applyPath(in)
	case RuleTypeFilesystem:
		return r.applyFilesystem(in)
	case RuleTypeUserDefined:
		return in.UserDefinedTimestamp, nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", r.RuleType)
	}
}

func (r *Rule) applyExif(in Input, tags map[string]string) *LocalWallClock {
	val := tags[r.ExifTag]
	if val == "" {
		return nil
	}
	dt, ok := extractNoTZDatetime(val, RegexpNoTZ, nil)
	if !ok {
		return nil
	}
	return r.finishTZ(dt, in)
}

func (r *Rule) applyPath(in Input) (*LocalWallClock, error) {
	source := filepath.Base(in.Path)
	switch r.PathPart {
	case "", "filename":
	case "full_path":
		source = in.Path
	default:
		return nil, fmt.Errorf("unknown path_part %q", r.PathPart)
	}

	re := RegexpNoTZ
	var mapping []string
	if r.CustomRegexp != "" {
		compiled, err := regexp.Compile(r.CustomRegexp)
		if err != nil {
			return nil, fmt.Errorf("compile custom_regexp: %w", err)
		}
		re = compiled
	} else if r.PredefinedRegexp != "" {
		pre, ok := predefinedRegexps[r.PredefinedRegexp]
		if !ok {
			return nil, fmt.Errorf("unknown predefined regexp %q", r.PredefinedRegexp)
		}
		re, mapping = pre.re, pre.mapping
	}

	dt, ok := extractNoTZDatetime(source, re, mapping)
	if !ok {
		return nil, nil
	}
	return r.finishTZ(dt, in), nil
}

func (r *Rule) applyFilesystem(in Input) (*LocalWallClock, error) {
	info, err := os.Stat(in.Path)
	if err != nil {
		return nil, nil
	}
	var dt time.Time
	switch r.FileProperty {
	case "mtime":
		dt = info.ModTime().UTC()
	case "ctime":
		// Portable ctime is not exposed by os.FileInfo; mtime is the closest
		// stable property and what operators actually get on most mounts.
		dt = info.ModTime().UTC()
	default:
		return nil, fmt.Errorf("unknown file_property %q", r.FileProperty)
	}
	return r.finishTZ(dt, in), nil
}

// finishTZ applies the optional timezone transform and pins the result to
// the wall-clock-in-UTC convention.
func (r *Rule) finishTZ(dt time.Time, in Input) *LocalWallClock {
	if r.TransformTZ {
		sourceTZ, ok := resolveTZ(r.SourceTZ, in.GPSLat, in.GPSLon, in.UserDefaultTZ)
		if !ok {
			return nil
		}
		reportTZ, ok := resolveTZ(r.ReportTZ, in.GPSLat, in.GPSLon, in.UserDefaultTZ)
		if !ok {
			return nil
		}
		dt = transformTZ(dt, sourceTZ, reportTZ)
	}
	w := FromLocal(dt)
	return &w
}
