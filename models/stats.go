package models

// SystemStats is an on-demand rollup across all accounts
type SystemStats struct {
	TotalUsers                int64
	TotalTransactions         int64
	TotalBroadcasts           int64
	TotalCreditsInCirculation int64
}

// UserStats summarizes a single account's usage
type UserStats struct {
	Credits           int64
	TotalSpent        int64
	TotalMessagesSent int64
	TotalBroadcasts   int64
}
