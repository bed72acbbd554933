package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FranksOps/searchcredit/internal/storage"
	"github.com/FranksOps/searchcredit/internal/storage/csvbackend"
	"github.com/FranksOps/searchcredit/internal/storage/jsonbackend"
	"github.com/FranksOps/searchcredit/internal/storage/postgres"
	"github.com/FranksOps/searchcredit/internal/storage/sqlite"
)

// Backend kinds accepted by OpenBackend.
const (
	BackendNone     = "none"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendJSON     = "json"
	BackendCSV      = "csv"
)

// BackendKinds lists the accepted kinds.
var BackendKinds = []string{BackendNone, BackendSQLite, BackendPostgres, BackendJSON, BackendCSV}

// OpenBackend opens the storage backend named by kind. It returns a nil
// backend for "none" or an empty kind.
func OpenBackend(ctx context.Context, kind, dsn string) (storage.Backend, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" || kind == BackendNone {
		return nil, nil
	}
	if dsn == "" {
		return nil, fmt.Errorf("telemetry: %s backend requires a dsn", kind)
	}

	switch kind {
	case BackendPostgres:
		return postgres.New(ctx, dsn)
	case BackendSQLite, BackendJSON, BackendCSV:
	default:
		return nil, fmt.Errorf("telemetry: unknown backend %q (want one of %s)", kind, strings.Join(BackendKinds, ", "))
	}

	// file backed stores need their directory
	if !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("telemetry: create %s: %w", dir, err)
			}
		}
	}

	switch kind {
	case BackendSQLite:
		return sqlite.New(dsn)
	case BackendJSON:
		return jsonbackend.New(dsn)
	default:
		return csvbackend.New(dsn)
	}
}
