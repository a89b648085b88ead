package camera

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/skeletal/logging"
)

// A SystemConstructor builds a System for one URI scheme.
type SystemConstructor func(logger logging.Logger) (System, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]SystemConstructor{}
)

// RegisterSystem registers a System constructor for a URI scheme such as "fake" or "file". It
// panics if the scheme is registered twice.
func RegisterSystem(scheme string, ctor SystemConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[scheme]; ok {
		panic(errors.Errorf("camera system %q already registered", scheme))
	}
	registry[scheme] = ctor
}

// RegisteredSchemes returns the registered URI schemes, sorted.
func RegisteredSchemes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	schemes := make([]string, 0, len(registry))
	for scheme := range registry {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// SchemeOf returns the part of uri before the first colon.
func SchemeOf(uri string) string {
	scheme, _, found := strings.Cut(uri, ":")
	if !found {
		return ""
	}
	return scheme
}

// OpenSystem builds the System registered for the scheme of uri.
func OpenSystem(uri string, logger logging.Logger) (System, error) {
	scheme := SchemeOf(uri)
	registryMu.RLock()
	ctor, ok := registry[scheme]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("no camera system for %q, registered schemes are %v", uri, RegisteredSchemes())
	}
	return ctor(logger.Sublogger(scheme))
}
