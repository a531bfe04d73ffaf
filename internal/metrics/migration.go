package metrics

import (
	"context"
	"encoding/json"
	"log"

	"solana-pump-tracker/internal/bitquery"
	"solana-pump-tracker/internal/domain"
)

// Detector determines whether a token has migrated to the secondary
// trading venue. Migration status is advisory: any failure reports
// "not migrated" rather than blocking dependent updates.
type Detector struct {
	gateway bitquery.Executor
	logger  *log.Logger
	venue   string
}

// NewDetector creates a migration detector for the Raydium venue.
func NewDetector(gateway bitquery.Executor, logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.Default()
	}
	return &Detector{
		gateway: gateway,
		logger:  logger,
		venue:   domain.RaydiumVenue,
	}
}

type migrationEnvelope struct {
	Solana struct {
		DEXTrades struct {
			Count bitquery.Float `json:"count"`
			Block struct {
				Time string `json:"Time"`
			} `json:"Block"`
		} `json:"DEXTrades"`
	} `json:"Solana"`
}

// CheckMigration reports whether any trade tagged to the venue exists
// and when the most recent one happened.
func (d *Detector) CheckMigration(ctx context.Context, tokenAddress string) domain.MigrationStatus {
	result, err := d.gateway.Execute(ctx, migrationQuery, map[string]interface{}{
		"token": tokenAddress,
		"venue": d.venue,
	})
	if err != nil {
		d.logger.Printf("check migration for %s: %v", tokenAddress, err)
		return domain.MigrationStatus{}
	}
	if result.HasErrors() {
		d.logger.Printf("check migration for %s: upstream errors: %s", tokenAddress, result.ErrorMessage())
		return domain.MigrationStatus{}
	}

	var env migrationEnvelope
	if err := json.Unmarshal(result.Data, &env); err != nil {
		d.logger.Printf("check migration for %s: decode: %v", tokenAddress, err)
		return domain.MigrationStatus{}
	}

	trades := env.Solana.DEXTrades
	if trades.Count.Value() <= 0 {
		return domain.MigrationStatus{}
	}

	status := domain.MigrationStatus{Migrated: true}
	if ms := bitquery.ParseBlockTime(trades.Block.Time); ms > 0 {
		status.MigrationTime = &ms
	}
	return status
}
