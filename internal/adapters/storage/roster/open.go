package roster

import (
	"context"
	"fmt"

	"directory/internal/config"
)

// Open builds the source selected by cfg.Driver. The memory driver starts empty.
// PRE: cfg has passed config validation
// POST: Returns a source; no rows are read yet
func Open(ctx context.Context, cfg config.Source) (Source, error) {
	switch cfg.Driver {
	case config.DriverSheets:
		return NewSheetsSource(ctx, SheetsConfig{
			SpreadsheetURL:  cfg.SpreadsheetURL,
			CredentialsFile: cfg.CredentialsFile,
			Sheet:           cfg.Sheet,
		})
	case config.DriverXLSX:
		return NewXLSXSource(cfg.XLSXPath, cfg.Sheet)
	case config.DriverMemory:
		return NewMemorySource(nil), nil
	default:
		return nil, fmt.Errorf("unknown source driver %q", cfg.Driver)
	}
}
