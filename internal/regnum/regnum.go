// Package regnum validates NERIST registration numbers against the closed
// set of numbers the institute has actually issued.
//
// A registration number is "<prefix>/<serial>", e.g. "225/88". The prefix
// encodes programme and intake year; the serial must fall inside the issued
// ranges for that prefix (a few prefixes issued scattered serials, which
// are listed explicitly). Input is accepted with "/", "-" or space as the
// separator and with leading zeros in the serial.
package regnum

import (
	"sort"
	"strconv"
	"strings"
)

type span struct {
	start, end int
}

// entry is the issued-serial set for one prefix: contiguous spans,
// explicit members, or both.
type entry struct {
	spans   []span
	members []int
}

var issued = map[string]entry{
	"125": {spans: []span{{1, 247}}},
	"225": {spans: []span{{1, 220}}},
	"325": {spans: []span{{1, 85}}},
	"425": {spans: []span{{1, 244}}},
	"525": {spans: []span{{1, 78}}},

	"124": {spans: []span{{1, 211}}},
	"224": {spans: []span{{1, 144}}},
	"324": {spans: []span{{1, 69}}},
	"424": {spans: []span{{1, 207}}},
	"524": {spans: []span{{1, 54}, {501, 519}}},

	"123": {spans: []span{{1, 198}}},
	"223": {spans: []span{{1, 138}}},
	"323": {spans: []span{{1, 67}}},
	"423": {members: []int{58, 136, 123, 106, 76}},
	"523": {spans: []span{{1, 22}}},

	"122": {spans: []span{{1, 186}}},
	"222": {spans: []span{{1, 147}}},
	"322": {spans: []span{{1, 60}}},
	"522": {spans: []span{{1, 26}}},

	"121": {spans: []span{{1, 193}}},
	"221": {members: []int{143, 112, 46, 119, 136, 70, 60, 139, 95, 97, 71, 146, 109, 150}},
	"321": {members: []int{64, 71, 65, 60}},
	"521": {spans: []span{{1, 50}}},

	"120": {spans: []span{{1, 217}}},
	"220": {members: []int{149, 58, 137}},
	"520": {members: []int{21, 8, 3, 6, 16, 19, 24, 15, 28}},

	"119": {spans: []span{{1, 220}}},
}

// Format normalizes a registration number to the canonical "prefix/serial"
// form with leading zeros stripped ("225 088" → "225/88"). It returns
// ("", false) if the input is not two separator-joined parts with a
// positive numeric serial. Format does not check issuance, use Valid.
func Format(reg string) (string, bool) {
	reg = strings.TrimSpace(reg)
	if reg == "" {
		return "", false
	}

	// Exactly one separator; "225/-5" and "225/88/1" are malformed, not
	// sloppy spellings of a valid number.
	const separators = "/- "
	i := strings.IndexAny(reg, separators)
	if i < 0 {
		return "", false
	}
	prefix, rest := reg[:i], reg[i+1:]
	if prefix == "" || rest == "" || strings.ContainsAny(rest, separators) {
		return "", false
	}

	serial, err := strconv.Atoi(rest)
	if err != nil || serial < 1 {
		return "", false
	}

	return prefix + "/" + strconv.Itoa(serial), true
}

// Valid reports whether reg (in any accepted form) names an issued
// registration number.
func Valid(reg string) bool {
	formatted, ok := Format(reg)
	if !ok {
		return false
	}

	parts := strings.SplitN(formatted, "/", 2)
	e, ok := issued[parts[0]]
	if !ok {
		return false
	}
	serial, _ := strconv.Atoi(parts[1])

	for _, s := range e.spans {
		if serial >= s.start && serial <= s.end {
			return true
		}
	}
	for _, m := range e.members {
		if serial == m {
			return true
		}
	}
	return false
}

// Prefixes returns every known prefix, sorted.
func Prefixes() []string {
	out := make([]string, 0, len(issued))
	for p := range issued {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
