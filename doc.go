// Package tokensale provides a composable token sale engine for Go applications.
//
// TokenSale is designed as a library, not a service. Import it directly into
// your Go application and wire it to your preferred store. It provides:
//
//   - Supply-capped token ledgers with owner-only minting
//   - ERC-20 style allowances with atomic transferFrom semantics
//   - KYC compliance gates with validator-controlled approvals
//   - An Active/Paused sale state machine with rate-based pricing
//   - Integer-only amount arithmetic on 256-bit unsigned values
//   - Pluggable payment forwarding and lifecycle hooks
//   - A durable notification journal with batched ingestion
//
// # Quick Start
//
// Create an engine instance with your preferred store:
//
//	import (
//	    "github.com/xraph/tokensale"
//	    "github.com/xraph/tokensale/store/postgres"
//	)
//
//	// Initialize store (db is a *grove.DB opened with the Postgres driver)
//	store := postgres.New(db)
//
//	// Create engine
//	e := tokensale.New(store)
//
//	// Start the engine (begins background workers)
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
// # Core Concepts
//
// Tokens define a capped supply ledger. The maximum supply is fixed at
// creation from whole units scaled by the token's decimals:
//
//	tok := &token.Token{
//	    Name:        "Example",
//	    Symbol:      "EXM",
//	    Decimals:    18,
//	    SupplyUnits: 1_000_000,
//	    Owner:       ownerID,
//	}
//	err := e.CreateToken(ctx, tok)
//
// Sales sell tokens on the owner's behalf against an allowance granted
// to the sale's own ID:
//
//	err := e.Approve(ctx, tok.ID, ownerID, sl.ID, tokensale.Units(500, 18))
//	receipt, err := e.Purchase(ctx, sl.ID, buyerID, payment)
//
// Compliance gates restrict purchases to KYC-approved buyers:
//
//	err := e.SetApproved(ctx, gateID, validatorID, buyerID)
//
// # Arithmetic
//
// All amount calculations use 256-bit unsigned integer arithmetic to avoid
// floating-point precision issues. The token amount of a purchase is
//
//	payment * rate / 10^decimals
//
// with truncating division; the remainder stays with the payer.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	tok_01h2xcejqtf2nbrexx3vqjhp41   // Token ID
//	sale_01h2xcejqtf2nbrexx3vqjhp41  // Sale ID
//	gate_01h455vb4pex5vsknk084sn02q  // Gate ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package tokensale
