// Package models contains the GORM persistence models of the fee ledger.
// Domain aggregates in internal/domain/ledger carry no ORM tags; every table is
// mapped here and converted with ToDomain / FromDomain.
//
// Structure:
// - base.go: embedded base models and the school-scoped aggregate model
// - ledger.go: fee records, payments, concessions, carried balances, promotions,
//   and the read-side student and fee structure tables
// - outbox.go: outbox rows for transactional event delivery
package models
