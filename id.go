package rentledger

import "github.com/xraph/rentledger/id"

// ID is the primary identifier type for all rentledger records.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix
