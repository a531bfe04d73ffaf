package domain

// Token represents a tracked token and its derived metrics.
// Corresponds to the tokens table in PostgreSQL. Nullable columns are
// pointers; timestamps are unix milliseconds.
type Token struct {
	Address        string  // mint address, primary key
	Name           *string // token name (nullable)
	Symbol         *string // token symbol (nullable)
	CreatorAddress string  // wallet that created the token
	CreationTime   int64   // first observed creation (ms)

	Price                *float64
	MarketCap            *float64
	Volume24h            *float64
	HoldersCount         *int
	BondingCurveProgress *float64 // clamped to [0,100]

	IsKingOfHill   bool
	KingOfHillTime *int64

	// Once RaydiumMigrated is set it never reverts.
	RaydiumMigrated      bool
	RaydiumMigrationTime *int64

	HighestMarketCap     *float64
	HighestMarketCapTime *int64

	LastUpdated int64 // ms
}

// TokenUpdate is a partial update of a Token. Nil fields are left
// untouched by the store, so a refresh with partial metric availability
// never blanks out previously known values.
type TokenUpdate struct {
	Name                 *string
	Symbol               *string
	Price                *float64
	MarketCap            *float64
	Volume24h            *float64
	HoldersCount         *int
	BondingCurveProgress *float64
	IsKingOfHill         *bool
	KingOfHillTime       *int64
	RaydiumMigrated      *bool
	RaydiumMigrationTime *int64
	HighestMarketCap     *float64
	HighestMarketCapTime *int64
	LastUpdated          *int64
}

// IsEmpty reports whether the update carries no field changes.
func (u *TokenUpdate) IsEmpty() bool {
	return u == nil || (u.Name == nil && u.Symbol == nil && u.Price == nil &&
		u.MarketCap == nil && u.Volume24h == nil && u.HoldersCount == nil &&
		u.BondingCurveProgress == nil && u.IsKingOfHill == nil &&
		u.KingOfHillTime == nil && u.RaydiumMigrated == nil &&
		u.RaydiumMigrationTime == nil && u.HighestMarketCap == nil &&
		u.HighestMarketCapTime == nil && u.LastUpdated == nil)
}
