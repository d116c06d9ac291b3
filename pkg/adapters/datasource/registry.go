package datasource

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// LoaderInfo describes a registered table loader.
type LoaderInfo struct {
	Type        string `json:"type"`         // "csv", "postgres", "mssql"
	DisplayName string `json:"display_name"` // "CSV files", "PostgreSQL"
	Description string `json:"description"`
}

// LoaderFactory creates a loader from a generic config map.
type LoaderFactory func(ctx context.Context, config map[string]any, logger *zap.Logger) (TableLoader, error)

// LoaderRegistration contains info + factory for one source type.
type LoaderRegistration struct {
	Info    LoaderInfo
	Factory LoaderFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]LoaderRegistration)
)

// Register is called by each loader's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg LoaderRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredLoaders returns info for all registered loaders, sorted by type.
func RegisteredLoaders() []LoaderInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]LoaderInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// GetFactory returns the factory for a source type.
// Returns nil if type is not registered.
func GetFactory(sourceType string) LoaderFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[sourceType]; ok {
		return reg.Factory
	}
	return nil
}

// IsRegistered checks if a source type is available.
func IsRegistered(sourceType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[sourceType]
	return ok
}
