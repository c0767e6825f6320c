package tokensale

import "github.com/xraph/tokensale/id"

// ID is the primary identifier type for all TokenSale entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
