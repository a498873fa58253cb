// Package distroinfo resolves Ubuntu release versions to series codenames
// using distro-info data.
package distroinfo

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// SystemDataPath is where the distro-info-data package installs its table.
const SystemDataPath = "/usr/share/distro-info/ubuntu.csv"

//go:embed ubuntu.csv
var embeddedData []byte

var (
	ErrUnknownVersion = errors.New("unknown Ubuntu version")
	ErrNoDevelSeries  = errors.New("no Ubuntu series in development")
)

const dateLayout = "2006-01-02"

// Release is one row of the distro-info table.
type Release struct {
	Version  string // "22.04 LTS"
	Codename string // "Jammy Jellyfish"
	Series   string // "jammy"
	Created  time.Time
	Released time.Time // zero if the release date is unknown
	EOL      time.Time
}

// FullName renders the release the way distro-info does,
// e.g. `Ubuntu 22.04 LTS "Jammy Jellyfish"`.
func (r Release) FullName() string {
	return fmt.Sprintf("Ubuntu %s %q", r.Version, r.Codename)
}

// Table is an ordered list of Ubuntu releases, oldest first.
type Table struct {
	releases []Release
}

// Load reads the system distro-info table, falling back to the copy bundled
// with the binary when distro-info-data is not installed.
func Load() (*Table, error) {
	data, err := os.ReadFile(SystemDataPath)
	if err != nil {
		return Embedded()
	}
	return Parse(bytes.NewReader(data))
}

// Embedded returns the bundled distro-info table.
func Embedded() (*Table, error) {
	return Parse(bytes.NewReader(embeddedData))
}

// Parse reads a distro-info CSV table.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read distro-info header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"version", "codename", "series", "created", "release"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("distro-info table has no %q column", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	table := &Table{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read distro-info row: %w", err)
		}

		rel := Release{
			Version:  field(record, "version"),
			Codename: field(record, "codename"),
			Series:   field(record, "series"),
		}
		if rel.Created, err = parseDate(field(record, "created")); err != nil {
			return nil, fmt.Errorf("release %s: %w", rel.Series, err)
		}
		if rel.Released, err = parseDate(field(record, "release")); err != nil {
			return nil, fmt.Errorf("release %s: %w", rel.Series, err)
		}
		if rel.EOL, err = parseDate(field(record, "eol")); err != nil {
			return nil, fmt.Errorf("release %s: %w", rel.Series, err)
		}
		table.releases = append(table.releases, rel)
	}

	if len(table.releases) == 0 {
		return nil, fmt.Errorf("distro-info table is empty")
	}
	return table, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Releases returns all known releases, oldest first.
func (t *Table) Releases() []Release {
	out := make([]Release, len(t.releases))
	copy(out, t.releases)
	return out
}

// SeriesForVersion returns the series of the first release whose full name
// contains version, e.g. "22.04" resolves to "jammy".
func (t *Table) SeriesForVersion(version string) (string, error) {
	if version == "" {
		return "", fmt.Errorf("%w: empty version", ErrUnknownVersion)
	}
	for _, rel := range t.releases {
		if strings.Contains(rel.FullName(), version) {
			return rel.Series, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownVersion, version)
}

// Devel returns the series currently in development at now: the newest
// release that has been opened but not yet released.
func (t *Table) Devel(now time.Time) (string, error) {
	for i := len(t.releases) - 1; i >= 0; i-- {
		rel := t.releases[i]
		if rel.Created.After(now) {
			continue
		}
		if rel.Released.IsZero() || rel.Released.After(now) {
			return rel.Series, nil
		}
		break
	}
	return "", fmt.Errorf("%w at %s (distro-info data may be outdated)", ErrNoDevelSeries, now.Format(dateLayout))
}
