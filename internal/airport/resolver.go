// Package airport maps free-form location mentions to FAA or ICAO codes.
//
// Resolution is best effort. The output is read by planners and brokers, not
// by flight-planning systems, and must not be treated as authoritative.
package airport

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

var punctRe = regexp.MustCompile(`[^a-z0-9 ]+`)

// defaultAliases covers the city and airport names that show up most often in
// private charter requests. Extra or overriding entries come from the alias
// file named in config.
var defaultAliases = map[string]string{
	"teterboro":        "TEB",
	"teterborough":     "TEB",
	"new york":         "TEB",
	"nyc":              "TEB",
	"westchester":      "HPN",
	"white plains":     "HPN",
	"jfk":              "JFK",
	"kennedy":          "JFK",
	"laguardia":        "LGA",
	"newark":           "EWR",
	"van nuys":         "VNY",
	"los angeles":      "VNY",
	"la":               "VNY",
	"santa monica":     "SMO",
	"burbank":          "BUR",
	"oakland":          "OAK",
	"san francisco":    "SFO",
	"san jose":         "SJC",
	"palm beach":       "PBI",
	"west palm":        "PBI",
	"west palm beach":  "PBI",
	"miami":            "OPF",
	"opa locka":        "OPF",
	"fort lauderdale":  "FLL",
	"ft lauderdale":    "FLL",
	"aspen":            "ASE",
	"vail":             "EGE",
	"eagle":            "EGE",
	"jackson hole":     "JAC",
	"las vegas":        "LAS",
	"vegas":            "LAS",
	"scottsdale":       "SDL",
	"chicago":          "MDW",
	"midway":           "MDW",
	"dallas":           "DAL",
	"dallas love":      "DAL",
	"houston":          "HOU",
	"boston":           "BED",
	"hanscom":          "BED",
	"nantucket":        "ACK",
	"marthas vineyard": "MVY",
	"east hampton":     "JPX",
	"the hamptons":     "JPX",
	"hamptons":         "JPX",
	"washington":       "IAD",
	"dulles":           "IAD",
	"atlanta":          "PDK",
	"peachtree":        "PDK",
	"nashville":        "BNA",
	"austin":           "AUS",
	"denver":           "APA",
	"centennial":       "APA",
	"seattle":          "BFI",
	"boeing field":     "BFI",
	"cabo":             "MMSD",
	"cabo san lucas":   "MMSD",
	"los cabos":        "MMSD",
	"london":           "EGGW",
	"luton":            "EGGW",
	"farnborough":      "EGLF",
	"paris":            "LFPB",
	"le bourget":       "LFPB",
	"nice":             "LFMN",
	"geneva":           "LSGG",
	"st barts":         "TFFJ",
	"st barths":        "TFFJ",
	"saint barthelemy": "TFFJ",
	"nassau":           "MYNN",
	"toronto":          "CYYZ",
	"mexico city":      "MMMX",
	"san juan":         "TJSJ",
	"honolulu":         "PHNL",
	"anchorage":        "PANC",
	"sun valley":       "SUN",
	"napa":             "APC",
	"palm springs":     "PSP",
}

// Resolver maps mentions to codes using an alias table.
type Resolver struct {
	aliases map[string]string
	codes   map[string]bool
}

// New builds a Resolver from the built-in aliases overlaid with extra.
// Entries in extra with an empty code remove the built-in alias.
func New(extra map[string]string) *Resolver {
	r := &Resolver{
		aliases: make(map[string]string, len(defaultAliases)+len(extra)),
		codes:   make(map[string]bool),
	}
	for k, v := range defaultAliases {
		r.set(k, v)
	}
	for k, v := range extra {
		r.set(k, v)
	}
	return r
}

func (r *Resolver) set(name, code string) {
	key := normalizeName(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		delete(r.aliases, key)
		return
	}
	r.aliases[key] = code
	r.codes[code] = true
}

// Resolve returns a best-guess code for mention. It never fails: unknown
// mentions come back trimmed and uppercased.
func (r *Resolver) Resolve(mention string) string {
	trimmed := strings.TrimSpace(mention)
	if trimmed == "" {
		return ""
	}
	upper := strings.ToUpper(trimmed)
	if r.codes[upper] {
		return upper
	}
	if code, ok := r.aliases[normalizeName(trimmed)]; ok {
		return code
	}
	return upper
}

// Len returns the number of aliases known to the resolver.
func (r *Resolver) Len() int {
	return len(r.aliases)
}

type aliasFile struct {
	Aliases map[string]string `toml:"aliases"`
}

// LoadAliasFile reads an [aliases] table from a TOML file. A missing path or
// file yields no aliases and no error.
func LoadAliasFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var f aliasFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decoding alias file %s: %w", path, err)
	}
	return f.Aliases, nil
}

func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "'", "")
	name = strings.ReplaceAll(name, ".", "")
	name = punctRe.ReplaceAllString(name, " ")
	return strings.Join(strings.Fields(name), " ")
}
