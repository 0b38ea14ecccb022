// v2
// internal/audit/methodology.go
package audit

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	ErrNoMethodology          = errors.New("no methodology version exists")
	ErrVersionExists          = errors.New("methodology version already exists")
	ErrVersionNotFound        = errors.New("methodology version not found")
	ErrVersionDeprecated      = errors.New("methodology version already deprecated")
	ErrActiveWithoutSuccessor = errors.New("active methodology version requires a non-deprecated successor")
)

// Methodology is one snapshot of the scoring methodology.
type Methodology struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  map[string]float64 `json:"parameters,omitempty"`
}

// Version is one link in the append-only methodology chain. A deprecated
// version is never reactivated; exactly one version is active at any time
// once any version exists.
type Version struct {
	Version      string      `json:"version"` // semver
	Methodology  Methodology `json:"methodology"`
	CreatedAt    time.Time   `json:"createdAt"`
	CreatedBy    string      `json:"createdBy"`
	Changes      []string    `json:"changes,omitempty"`
	Deprecated   bool        `json:"deprecated,omitempty"`
	SupersededBy string      `json:"supersededBy,omitempty"`
}

// MethodologyStore owns the version chain. An explicit owned store, passed
// by handle into the components that stamp results, so tests can construct
// isolated instances.
type MethodologyStore struct {
	mu       sync.RWMutex
	log      *slog.Logger
	versions map[string]*Version
	current  string

	now func() time.Time
}

func NewMethodologyStore(log *slog.Logger) *MethodologyStore {
	return &MethodologyStore{log: log, versions: make(map[string]*Version), now: time.Now}
}

// Create appends a new version. When explicitVersion is empty the next
// version is the numeric maximum with its patch component bumped; a
// minor/major bump is always caller-supplied intent, never inferred. The
// previously active version is deprecated and chained via SupersededBy.
func (s *MethodologyStore) Create(m Methodology, changes []string, author, explicitVersion string) (*Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := explicitVersion
	if version == "" {
		version = nextVersionLocked(s.versions)
	}
	if _, ok := s.versions[version]; ok {
		return nil, fmt.Errorf("version %s: %w", version, ErrVersionExists)
	}
	if _, _, _, err := parseSemver(version); err != nil {
		return nil, err
	}

	v := &Version{
		Version:     version,
		Methodology: m,
		CreatedAt:   s.now().UTC(),
		CreatedBy:   author,
		Changes:     changes,
	}
	if s.current != "" {
		prev := s.versions[s.current]
		prev.Deprecated = true
		prev.SupersededBy = version
	}
	s.versions[version] = v
	s.current = version
	if s.log != nil {
		s.log.Info("methodology_created", "version", version, "author", author)
	}
	return v, nil
}

// Current returns the single active version.
func (s *MethodologyStore) Current() (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == "" {
		return nil, ErrNoMethodology
	}
	return s.versions[s.current], nil
}

// Get returns a version by its semver string.
func (s *MethodologyStore) Get(version string) (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[version]
	if !ok {
		return nil, ErrVersionNotFound
	}
	return v, nil
}

// Deprecate marks a version deprecated, optionally chaining a successor.
// Deprecation is terminal. The active version can only be retired with a
// live successor in place; otherwise the store would be left with zero
// active versions, and the usual retirement path for the active version is
// Create, which supersedes it atomically.
func (s *MethodologyStore) Deprecate(version, supersededBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[version]
	if !ok {
		return ErrVersionNotFound
	}
	if v.Deprecated {
		return ErrVersionDeprecated
	}
	if supersededBy != "" {
		succ, ok := s.versions[supersededBy]
		if !ok {
			return fmt.Errorf("superseding version %s: %w", supersededBy, ErrVersionNotFound)
		}
		if supersededBy == version || succ.Deprecated {
			return fmt.Errorf("superseding version %s: %w", supersededBy, ErrActiveWithoutSuccessor)
		}
	}
	if s.current == version && supersededBy == "" {
		return ErrActiveWithoutSuccessor
	}
	v.Deprecated = true
	v.SupersededBy = supersededBy
	if s.current == version {
		s.current = supersededBy
	}
	if s.log != nil {
		s.log.Info("methodology_deprecated", "version", version, "supersededBy", supersededBy)
	}
	return nil
}

// List returns every version, newest-first by numeric semver order.
func (s *MethodologyStore) List() []*Version {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Version, 0, len(s.versions))
	for _, v := range s.versions {
		out = append(out, v)
	}
	sortVersionsDesc(out)
	return out
}

// NextVersion computes the successor of the numerically-largest existing
// version by bumping its patch component. With no versions it returns
// "1.0.0".
func (s *MethodologyStore) NextVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nextVersionLocked(s.versions)
}

func nextVersionLocked(versions map[string]*Version) string {
	if len(versions) == 0 {
		return "1.0.0"
	}
	var maxMaj, maxMin, maxPat int
	first := true
	for v := range versions {
		maj, min, pat, err := parseSemver(v)
		if err != nil {
			continue
		}
		if first || compareSemver(maj, min, pat, maxMaj, maxMin, maxPat) > 0 {
			maxMaj, maxMin, maxPat = maj, min, pat
			first = false
		}
	}
	if first {
		return "1.0.0"
	}
	return fmt.Sprintf("%d.%d.%d", maxMaj, maxMin, maxPat+1)
}

// parseSemver splits "maj.min.patch" with numeric components.
func parseSemver(v string) (int, int, int, error) {
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("malformed semver %q", v)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("malformed semver component %q in %q", p, v)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}

// compareSemver orders versions numerically per component, never
// lexicographically.
func compareSemver(aMaj, aMin, aPat, bMaj, bMin, bPat int) int {
	switch {
	case aMaj != bMaj:
		return aMaj - bMaj
	case aMin != bMin:
		return aMin - bMin
	default:
		return aPat - bPat
	}
}

func sortVersionsDesc(vs []*Version) {
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0; j-- {
			aM, aN, aP, errA := parseSemver(vs[j-1].Version)
			bM, bN, bP, errB := parseSemver(vs[j].Version)
			if errA != nil || errB != nil {
				break
			}
			if compareSemver(aM, aN, aP, bM, bN, bP) >= 0 {
				break
			}
			vs[j-1], vs[j] = vs[j], vs[j-1]
		}
	}
}
