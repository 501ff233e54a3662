package rentledger

import (
	"github.com/xraph/rentledger/aggregate"
	"github.com/xraph/rentledger/allocation"
	"github.com/xraph/rentledger/balance"
	"github.com/xraph/rentledger/query"
	"github.com/xraph/rentledger/types"
)

// Re-export common types for convenience so users don't have to import the
// engine packages for everyday calls.

// Money is re-exported from types package.
type Money = types.Money

// Balance is re-exported from balance package.
type Balance = balance.Balance

// Filter is re-exported from query package.
type Filter = query.Filter

// Node is re-exported from aggregate package.
type Node = aggregate.Node

// SortSpec is re-exported from aggregate package.
type SortSpec = aggregate.SortSpec

// Plan is re-exported from allocation package.
type Plan = allocation.Plan

// Re-export Money constructors
var (
	USD        = types.USD
	EUR        = types.EUR
	GBP        = types.GBP
	KES        = types.KES
	JPY        = types.JPY
	Zero       = types.Zero
	Sum        = types.Sum
	ParseMoney = types.ParseMoney
)
