// Package core contains the carbon credit domain: the runtime host that
// executes atomic operations, the CarbonX multi-id ledger, the receipt ledger
// variants, the Vault deposit protocol and the access primitives they share.
// Lower-level adapters must depend on this package; core must not depend on
// persistence-specific or transport-specific adapters.
package core
