// Package slug derives URL-safe identifiers for clinics and dentists.
package slug

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxLength is the longest base slug Base produces.
const MaxLength = 80

// fallbackPrefix is used when a name has no usable characters.
const fallbackPrefix = "practice-"

type Namespace string

const (
	Clinics  Namespace = "clinics"
	Dentists Namespace = "dentists"
)

var (
	// whitespace as browsers define it, including U+2028 and U+FEFF
	disallowed = regexp.MustCompile(`[^a-z0-9\s\v\p{Z}\x{FEFF}-]`)
	spaces     = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)
	hyphens    = regexp.MustCompile(`-+`)
)

// Lister returns every slug in one namespace starting with prefix.
type Lister interface {
	ListSlugsWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

// Base turns a display name into a slug without checking uniqueness.
//
//	Base("Sunshine Dental Care!")  // "sunshine-dental-care"
//	Base("  Dr.  Ali -- Khan ")    // "dr-ali-khan"
//	Base("!!!")                    // "practice-<millis in base 36>"
func Base(name string) string {
	return baseAt(name, time.Now())
}

func baseAt(name string, now time.Time) string {
	s := strings.ToLower(name)
	s = disallowed.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, "-")
	s = hyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxLength {
		s = s[:MaxLength]
	}
	if s == "" {
		return fallbackPrefix + strconv.FormatInt(now.UnixMilli(), 36)
	}
	return s
}

// Resolver finds the first free slug in a namespace.
type Resolver struct {
	listers map[Namespace]Lister
	now     func() time.Time
}

func NewResolver(clinics, dentists Lister) *Resolver {
	return &Resolver{
		listers: map[Namespace]Lister{
			Clinics:  clinics,
			Dentists: dentists,
		},
		now: time.Now,
	}
}

// Unique returns Base(name) when it is free, otherwise Base(name) with the
// next numeric suffix. It reads then returns; callers must still handle a
// unique violation when two requests race for the same slug.
func (r *Resolver) Unique(ctx context.Context, ns Namespace, name string) (string, error) {
	lister, ok := r.listers[ns]
	if !ok || lister == nil {
		return "", fmt.Errorf("unknown slug namespace %q", ns)
	}

	base := baseAt(name, r.now())
	existing, err := lister.ListSlugsWithPrefix(ctx, base)
	if err != nil {
		return "", fmt.Errorf("failed to look up %s slugs: %w", ns, err)
	}
	return Next(base, existing), nil
}

// Next picks the slug for base given the slugs already taken. Rows that only
// share the prefix (dental-care-group for dental-care) never count. Suffixes
// of any length are compared exactly.
func Next(base string, existing []string) string {
	counter := new(big.Int)
	for _, s := range existing {
		if s == base && counter.Sign() == 0 {
			counter.SetInt64(1)
			continue
		}
		n, ok := suffix(base, s)
		if ok && n.Cmp(counter) >= 0 {
			counter.Add(n, big.NewInt(1))
		}
	}

	if counter.Sign() == 0 {
		return base
	}
	return base + "-" + counter.String()
}

// suffix parses n out of "<base>-<n>".
func suffix(base, s string) (*big.Int, bool) {
	rest, found := strings.CutPrefix(s, base+"-")
	if !found || rest == "" {
		return nil, false
	}
	for _, c := range rest {
		if c < '0' || c > '9' {
			return nil, false
		}
	}
	return new(big.Int).SetString(rest, 10)
}
