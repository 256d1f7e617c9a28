package installer

import (
	"context"

	"github.com/ralt/releasetap/internal/cache"
	"github.com/ralt/releasetap/internal/descriptor"
	"github.com/ralt/releasetap/internal/models"
	"github.com/sirupsen/logrus"
)

// State is the progress of one install run. Runs move strictly forward.
type State int

const (
	StateUnresolved State = iota
	StateResolved
	StateFetched
	StateVerified
	StateInstalled
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "Unresolved"
	case StateResolved:
		return "Resolved"
	case StateFetched:
		return "Fetched"
	case StateVerified:
		return "Verified"
	case StateInstalled:
		return "Installed"
	default:
		return "Unknown"
	}
}

// Fetcher retrieves artifact bytes for a descriptor
type Fetcher interface {
	Fetch(ctx context.Context, d *models.Descriptor) ([]byte, error)
}

// Request selects what to install and where
type Request struct {
	Version   string
	Platform  models.Platform
	TargetDir string
}

// Result reports how far a run got
type Result struct {
	State      State
	Descriptor *models.Descriptor
	Path       string
	FromCache  bool
}

// Installer runs resolve, fetch, verify and install in sequence
type Installer struct {
	table        *descriptor.Table
	fetcher      Fetcher
	cache        *cache.Cache
	smoke        bool
	maxEntrySize int64
}

// Option configures an Installer
type Option func(*Installer)

// WithCache enables the download cache
func WithCache(c *cache.Cache) Option {
	return func(i *Installer) {
		i.cache = c
	}
}

// WithSmokeTest runs "<binary> -h" after installing
func WithSmokeTest(enabled bool) Option {
	return func(i *Installer) {
		i.smoke = enabled
	}
}

// WithMaxEntrySize bounds the extracted binary
func WithMaxEntrySize(n int64) Option {
	return func(i *Installer) {
		i.maxEntrySize = n
	}
}

// New creates an installer over a descriptor table
func New(table *descriptor.Table, f Fetcher, opts ...Option) *Installer {
	i := &Installer{
		table:   table,
		fetcher: f,
		smoke:   true,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Resolve looks up the single descriptor for version and platform
func (i *Installer) Resolve(version string, p models.Platform) (*models.Descriptor, error) {
	return i.table.Resolve(version, p)
}

// Run executes one install. The first error aborts the run; the returned
// result records the last state reached.
func (i *Installer) Run(ctx context.Context, req Request) (*Result, error) {
	result := &Result{State: StateUnresolved}

	d, err := i.Resolve(req.Version, req.Platform)
	if err != nil {
		return result, err
	}
	result.Descriptor = d
	result.State = StateResolved

	log := logrus.WithFields(logrus.Fields{
		"name":     d.Name,
		"version":  d.Version,
		"platform": d.Platform.String(),
	})
	log.Infof("Resolved %s", d.URL)

	data, fromCache, err := i.fetch(ctx, d)
	if err != nil {
		return result, err
	}
	result.FromCache = fromCache
	result.State = StateFetched

	if err := Verify(data, d); err != nil {
		log.Errorf("Refusing to install: %v", err)
		return result, err
	}
	result.State = StateVerified
	log.Debugf("Checksum %s verified", d.SHA256)

	if i.cache != nil && !fromCache {
		if err := i.cache.Put(d.SHA256, data); err != nil {
			log.Warnf("Failed to cache artifact: %v", err)
		}
	}

	path, err := Install(data, d, req.TargetDir, i.maxEntrySize)
	if err != nil {
		return result, err
	}
	result.Path = path

	if i.smoke {
		if err := Smoke(ctx, path); err != nil {
			return result, err
		}
		log.Debug("Smoke test passed")
	}

	result.State = StateInstalled
	return result, nil
}

func (i *Installer) fetch(ctx context.Context, d *models.Descriptor) ([]byte, bool, error) {
	if i.cache != nil {
		if data, ok := i.cache.Get(d.SHA256); ok {
			return data, true, nil
		}
	}

	data, err := i.fetcher.Fetch(ctx, d)
	if err != nil {
		return nil, false, err
	}
	return data, false, nil
}
