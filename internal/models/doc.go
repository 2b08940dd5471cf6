// Package models defines the core domain models for TripMatch.
//
// # Models
//
// A travel group moves through three phases, and the models follow them:
//   - Collecting: Group, Member, Preference, TimeSlot
//   - Voting: Candidate, Vote
//   - Finalized: Trip, Flight, Accommodation, TripMember (plus the Region lookup table)
//
// Members are identified by the user ID supplied by the identity layer (a string);
// the models never store credentials or profile data.
//
// # Ownership
//
// Group is the root. Member, Preference, TimeSlot, Candidate and Vote all carry a
// GroupID and belong to exactly one group. Candidates are a derived cache: they are
// deleted and rebuilt as a whole, together with the votes that reference them.
//
// # Design Principles
//
//  1. **Replace, don't patch**: time slots and votes are always replaced as a full set
//  2. **Counts are derived**: Candidate.VoteCount is rebuilt from Vote rows, never incremented
//  3. **Status only moves forward**: PREF → VOTING → JOINING (CANCELLED is set externally)
//  4. **Avoid circular references**: use ID strings instead of pointers for relationships
package models
