package bitquery

// TransferSubscription is the streaming subscription for token transfer
// events. The currency filter narrows the stream to wrapped-SOL
// transfers, which is where token launches surface.
const TransferSubscription = `
subscription {
  Solana {
    TokenTransfers(
      where: {
        Transfer: {
          Currency: {
            MintAddress: {is: "So11111111111111111111111111111111111111112"}
          }
        }
      }
    ) {
      Transfer {
        Amount
        Receiver {
          Address
        }
        Sender {
          Address
        }
        Currency {
          MintAddress
          Name
          Symbol
        }
      }
      Transaction {
        Hash
      }
      Block {
        Time
        Height
      }
    }
  }
}
`
