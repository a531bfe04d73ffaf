package domain

// TransferEvent is a decoded token transfer from the stream subscription.
// It lives only between decode and the persistence decision; the
// transaction hash is the global dedup key.
type TransferEvent struct {
	TxHash      string
	BlockTime   int64 // ms
	BlockHeight int64
	Sender      string
	Receiver    string
	Amount      float64
	MintAddress string
	TokenName   string
	TokenSymbol string
}

// TokenTransfer is the persisted form of a TransferEvent.
// Corresponds to the token_transfers table.
type TokenTransfer struct {
	TxHash      string // primary key
	BlockTime   int64
	BlockHeight int64
	Sender      string
	Receiver    string
	Amount      float64
	MintAddress string
	TokenName   string
	TokenSymbol string
	CreatedAt   int64 // ingestion timestamp (ms)
}

// Record converts an event into its persisted form.
func (e *TransferEvent) Record(ingestedAt int64) *TokenTransfer {
	return &TokenTransfer{
		TxHash:      e.TxHash,
		BlockTime:   e.BlockTime,
		BlockHeight: e.BlockHeight,
		Sender:      e.Sender,
		Receiver:    e.Receiver,
		Amount:      e.Amount,
		MintAddress: e.MintAddress,
		TokenName:   e.TokenName,
		TokenSymbol: e.TokenSymbol,
		CreatedAt:   ingestedAt,
	}
}
