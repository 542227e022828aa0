// Package version parses and compares extended application version
// strings such as "115.3.1", "128.0a1", and "115.*".
//
// A version is at most four dotted numeric components followed by an
// optional alpha/beta marker ("a" or "b" with an optional number) and an
// optional "pre" marker with an optional single digit. Any numeric
// component may be the wildcard "*", which sorts above every concrete
// number so that "115.*" is the upper bound of the 115 series.
//
// Comparison is lexicographic over a fixed eight-field key. Missing
// numeric components compare as zero, and a missing marker compares above
// any present marker ("115.0" > "115.0b3" > "115.0a1").
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/trackstats/trackstats/pkg/errors"
)

// WildcardPart is the numeric stand-in for a "*" component. It is the
// largest value a component can hold, so wildcards sort above every
// concrete release of the same series.
const WildcardPart = 1<<16 - 1

// noMarker sorts above "a", "b", and "pre" so that final releases compare
// greater than their pre-releases.
const noMarker = "z"

// The pattern is anchored at the start only: registries carry suffixed
// strings like "0.3.4fixed" and "115.0esr", which parse by their longest
// leading match.
var pattern = regexp.MustCompile(
	`^([0-9]+|\*)(?:\.([0-9]+|\*)(?:\.([0-9]+|\*)(?:\.([0-9]+|\*))?)?)?(?:([ab])([0-9]+)?)?(?:(pre)([0-9])?)?`)

// Key is the ordered comparison key of a parsed version string.
// Two versions compare by comparing Keys field by field in declaration
// order.
type Key struct {
	Major        int
	Minor        int
	Micro        int
	Patch        int
	AlphaBeta    string // "a", "b", or noMarker when absent
	AlphaBetaVer int
	Pre          string // "pre" or noMarker when absent
	PreVer       int
}

// Parse converts a version string into its comparison Key.
// Trailing text outside the grammar is ignored, so "0.3.4fixed" keys as
// "0.3.4". It returns an error only when the string has no leading
// numeric or wildcard major component at all. Callers aggregating many
// records should log and skip unparsable versions rather than abort.
func Parse(s string) (Key, error) {
	m := pattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Key{}, apperrors.New(apperrors.ErrCodeInvalidVersion, "invalid version %q", s)
	}

	k := Key{
		Major:     part(m[1]),
		Minor:     part(m[2]),
		Micro:     part(m[3]),
		Patch:     part(m[4]),
		AlphaBeta: noMarker,
		Pre:       noMarker,
	}
	if m[5] != "" {
		k.AlphaBeta = m[5]
		k.AlphaBetaVer = part(m[6])
	}
	if m[7] != "" {
		k.Pre = m[7]
		k.PreVer = part(m[8])
	}
	return k, nil
}

// part converts one matched numeric component. An empty match means the
// component was absent and defaults to zero; "*" maps to WildcardPart.
func part(s string) int {
	if s == "" {
		return 0
	}
	if s == "*" {
		return WildcardPart
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// The pattern only admits digits, so this cannot happen.
		panic(fmt.Sprintf("version: unreachable component %q", s))
	}
	return n
}

// Compare returns -1, 0, or 1 depending on whether k sorts before, equal
// to, or after other.
func (k Key) Compare(other Key) int {
	if c := cmpInt(k.Major, other.Major); c != 0 {
		return c
	}
	if c := cmpInt(k.Minor, other.Minor); c != 0 {
		return c
	}
	if c := cmpInt(k.Micro, other.Micro); c != 0 {
		return c
	}
	if c := cmpInt(k.Patch, other.Patch); c != 0 {
		return c
	}
	if c := strings.Compare(k.AlphaBeta, other.AlphaBeta); c != 0 {
		return c
	}
	if c := cmpInt(k.AlphaBetaVer, other.AlphaBetaVer); c != 0 {
		return c
	}
	if c := strings.Compare(k.Pre, other.Pre); c != 0 {
		return c
	}
	return cmpInt(k.PreVer, other.PreVer)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Less reports whether k sorts strictly before other.
func (k Key) Less(other Key) bool { return k.Compare(other) < 0 }

// Range is an inclusive compatibility range as reported by registry APIs,
// e.g. {"min": "115.0", "max": "115.*"}.
type Range struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// Contains reports whether target falls inside the range, bounds
// included. If either bound fails to parse the range is treated as not
// matching; a broken range never widens compatibility.
func (r Range) Contains(target Key) bool {
	lo, err := Parse(r.Min)
	if err != nil {
		return false
	}
	hi, err := Parse(r.Max)
	if err != nil {
		return false
	}
	return lo.Compare(target) <= 0 && target.Compare(hi) <= 0
}

// Compatible parses target and reports whether it falls inside r.
// Any parse failure, of the target or of either bound, yields false.
func Compatible(target string, r Range) bool {
	ok, err := Check(target, r)
	return err == nil && ok
}

// Check is Compatible with parse failures surfaced: the returned error
// names the first string that failed to parse, so callers aggregating
// many records can log the offending value before counting the record
// as not compatible.
func Check(target string, r Range) (bool, error) {
	k, err := Parse(target)
	if err != nil {
		return false, err
	}
	lo, err := Parse(r.Min)
	if err != nil {
		return false, err
	}
	hi, err := Parse(r.Max)
	if err != nil {
		return false, err
	}
	return lo.Compare(k) <= 0 && k.Compare(hi) <= 0, nil
}
