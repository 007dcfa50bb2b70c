package viewer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
)

type Tier string

const (
	TierRaw Tier = "raw"
	TierDsp Tier = "dsp"
	TierHit Tier = "hit"
)

// Wildcard selects every period, run or cycle.
const Wildcard = "*"

// FileKey holds the fields embedded in a tier file name:
// <experiment>-<period>-<run>-<datatype>-<timestamp>-tier_<tier>.<ext>
type FileKey struct {
	Experiment string
	Period     string
	Run        string
	DataType   string
	Timestamp  string
	Tier       Tier
	Ext        string
}

func ParseFileKey(path string) (FileKey, error) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == "" {
		return FileKey{}, fmt.Errorf("file name %q has no extension", base)
	}
	fields := strings.Split(strings.TrimSuffix(base, ext), "-")
	if len(fields) != 6 {
		return FileKey{}, fmt.Errorf("file name %q does not have 6 fields", base)
	}
	tier, found := strings.CutPrefix(fields[5], "tier_")
	if !found || tier == "" {
		return FileKey{}, fmt.Errorf("file name %q has no tier field", base)
	}
	return FileKey{
		Experiment: fields[0],
		Period:     fields[1],
		Run:        fields[2],
		DataType:   fields[3],
		Timestamp:  fields[4],
		Tier:       Tier(tier),
		Ext:        strings.TrimPrefix(ext, "."),
	}, nil
}

func (k FileKey) Filename() string {
	return fmt.Sprintf("%s-%s-%s-%s-%s-tier_%s.%s",
		k.Experiment, k.Period, k.Run, k.DataType, k.Timestamp, k.Tier, k.Ext)
}

// Label is the file name without the tier suffix, used in plot titles.
func (k FileKey) Label() string {
	return fmt.Sprintf("%s-%s-%s-%s-%s", k.Experiment, k.Period, k.Run, k.DataType, k.Timestamp)
}

// TierPaths describes the three parallel tier trees:
// <root>/<datatype>/<period>/<run>/<file>
type TierPaths struct {
	Raw        string
	Dsp        string
	Hit        string
	Experiment string
	DataType   string
	Extension  string
}

func (t TierPaths) Root(tier Tier) string {
	switch tier {
	case TierRaw:
		return t.Raw
	case TierDsp:
		return t.Dsp
	default:
		return t.Hit
	}
}

func (t TierPaths) Path(key FileKey) string {
	return filepath.Join(t.Root(key.Tier), key.DataType, key.Period, key.Run, key.Filename())
}

// Substitute maps a hit-tier file onto its counterpart in another tier. Only
// the tier root and the tier_<tier> suffix change.
func (t TierPaths) Substitute(hitPath string, tier Tier) (string, error) {
	rel, err := filepath.Rel(t.Hit, hitPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("file %q is not under the hit tier %q", hitPath, t.Hit)
	}
	key, err := ParseFileKey(hitPath)
	if err != nil {
		return "", err
	}
	if key.Tier != TierHit {
		return "", fmt.Errorf("file %q is not a hit tier file", hitPath)
	}
	key.Tier = tier
	return filepath.Join(t.Root(tier), filepath.Dir(rel), key.Filename()), nil
}

// Pattern builds the glob matching the hit-tier files of a selection. Any of
// period, run and cycle may be Wildcard.
func (t TierPaths) Pattern(period string, run string, cycle string) string {
	key := FileKey{
		Experiment: t.Experiment,
		Period:     period,
		Run:        run,
		DataType:   t.DataType,
		Timestamp:  cycle,
		Tier:       TierHit,
		Ext:        t.Extension,
	}
	return t.Path(key)
}

// Candidates expands the selection against the hit tier and sorts the
// matches by file name, which embeds the timestamp.
func (t TierPaths) Candidates(period string, run string, cycle string) ([]string, error) {
	files, err := filepath.Glob(t.Pattern(period, run, cycle))
	if err != nil {
		return nil, fmt.Errorf("error expanding selection: %w", err)
	}
	slices.SortFunc(files, func(a, b string) int {
		if c := strings.Compare(filepath.Base(a), filepath.Base(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return files, nil
}

func (t TierPaths) ListPeriods() ([]string, error) {
	return listDirs(filepath.Join(t.Hit, t.DataType))
}

func (t TierPaths) ListRuns(period string) ([]string, error) {
	return listDirs(filepath.Join(t.Hit, t.DataType, period))
}

// ListCycles returns the sorted timestamps of the hit-tier files of a run.
func (t TierPaths) ListCycles(period string, run string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(t.Hit, t.DataType, period, run))
	if err != nil {
		return nil, err
	}
	cycles := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, err := ParseFileKey(entry.Name())
		if err != nil || key.Tier != TierHit {
			continue
		}
		cycles = append(cycles, key.Timestamp)
	}
	slices.Sort(cycles)
	return cycles, nil
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}
