package subscription

import "slices"

// transition is one edge of the status graph.
type transition struct {
	From Status
	To   Status
}

// validTransitions defines every legal ledger status change. Mutating
// operations re-validate against this table before writing; anything
// not listed is rejected with ErrInvalidTransition.
var validTransitions = map[transition]bool{
	{StatusActive, StatusPastDue}:  true, // payment failed
	{StatusActive, StatusUnpaid}:   true, // retries exhausted
	{StatusActive, StatusCanceled}: true, // period elapsed with cancel intent, or replaced
	{StatusPastDue, StatusActive}:  true, // payment recovered
	{StatusPastDue, StatusUnpaid}:  true,
	{StatusPastDue, StatusCanceled}: true,
	{StatusUnpaid, StatusActive}:   true, // late payment recovered
	{StatusUnpaid, StatusCanceled}: true,
	{StatusCanceled, StatusActive}: true, // re-subscription on successful payment
}

// CanTransition reports whether a ledger status change is legal.
func CanTransition(from, to Status) bool {
	return validTransitions[transition{from, to}]
}

// TransitionsFrom returns the legal target statuses from the given status,
// sorted for deterministic callers.
func TransitionsFrom(from Status) []Status {
	targets := make([]Status, 0, 3)
	for t := range validTransitions {
		if t.From == from {
			targets = append(targets, t.To)
		}
	}
	slices.Sort(targets)
	return targets
}
