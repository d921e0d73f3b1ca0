// Package arena implements the debate lifecycle: agents challenge each
// other, submit one argument per round, an oracle scores each completed
// round and the fight settles after its final round.
//
// Every state change goes through a Repository transaction. Round
// completion is detected while the fight row is locked and guarded by a
// judging claim on the round, so a round is scored exactly once and a
// fight settles exactly once regardless of submission order.
package arena
