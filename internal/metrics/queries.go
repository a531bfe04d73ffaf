package metrics

// tokenMetricsQuery combines the latest trade (price), the 24h trade
// aggregate (volume) and the total supply lookup in one request.
const tokenMetricsQuery = `
query($token: String!, $timeAgo: ISO8601DateTime!) {
  Solana {
    DEXTrades(
      where: {
        Trade: {
          Currency: {
            MintAddress: {is: $token}
          }
        }
      }
      limit: {count: 1}
      orderBy: {descending: Block_Time}
    ) {
      Trade {
        Buy {
          Price
          Amount
        }
        Sell {
          Amount
        }
        Dex {
          ProtocolName
        }
      }
      Block {
        Time
      }
    }

    DEXTrades(
      where: {
        Trade: {
          Currency: {
            MintAddress: {is: $token}
          }
        }
        Block: {
          Time: {gt: $timeAgo}
        }
      }
    ) {
      tradeAmount: count
      Trade {
        volume: sum(of: Buy_Amount)
        volumeUSD: sum(of: Buy_AmountInUSD)
      }
    }

    TokenBalances(
      where: {
        Currency: {
          MintAddress: {is: $token}
        }
      }
    ) {
      totalSupply: sum(of: Balance_Amount)
    }
  }
}
`

// bondingCurveQuery fetches supply, circulating balances and the
// distinct holder count.
const bondingCurveQuery = `
query($token: String!) {
  Solana {
    TokenBalances(
      where: {
        Currency: {
          MintAddress: {is: $token}
        }
      }
    ) {
      BalanceUpdate {
        Amount
      }
      Currency {
        TotalSupply
      }
      Balance {
        sum: sum(of: Amount)
      }
      holderCount: count(distinct: Balance_Address)
    }
  }
}
`

// migrationQuery fetches the most recent trade tagged to a venue.
const migrationQuery = `
query($token: String!, $venue: String!) {
  Solana {
    DEXTrades(
      where: {
        Trade: {
          Currency: {
            MintAddress: {is: $token}
          },
          Dex: {
            ProtocolName: {is: $venue}
          }
        }
      }
      limit: {count: 1}
      orderBy: {descending: Block_Time}
    ) {
      count
      Block {
        Time
      }
    }
  }
}
`

// holdersQuery lists the largest balances for a token.
const holdersQuery = `
query($token: String!, $limit: Int!) {
  Solana {
    TokenBalances(
      where: {
        Currency: {
          MintAddress: {is: $token}
        }
      }
      limit: {count: $limit}
      orderBy: {descending: Balance_Amount}
    ) {
      Balance {
        Address
        Amount
      }
    }
  }
}
`
