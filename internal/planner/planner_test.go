package planner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmynk/tripmatch/internal/models"
	"github.com/mmynk/tripmatch/internal/pricing"
	"github.com/mmynk/tripmatch/internal/storage"
	"github.com/mmynk/tripmatch/internal/storage/sqlite"
)

var taipei = time.FixedZone("Asia/Taipei", 8*60*60)

func june(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, taipei)
}

func setupPlanner(t *testing.T, lookup pricing.Lookup, opts ...Option) (*Planner, *sqlite.SQLiteStore) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	opts = append([]Option{WithRules(Rules{Location: taipei, PricingTimeout: time.Second})}, opts...)
	return New(store, lookup, opts...), store
}

// createGroup opens a June group owned by "owner" and joins the other users.
func createGroup(t *testing.T, p *Planner, target int, users ...string) *models.Group {
	t.Helper()
	ctx := context.Background()

	group, err := p.CreateGroup(ctx, "owner", CreateGroupInput{
		Title:         "Tokyo Summer",
		Departure:     "tpe",
		TargetMembers: target,
		TripDays:      3,
		StartDate:     june(1),
		EndDate:       june(30),
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	for _, u := range users {
		if _, _, err := p.JoinGroup(ctx, u, group.InviteCode); err != nil {
			t.Fatalf("JoinGroup(%s) failed: %v", u, err)
		}
	}
	return group
}

// submitAll gives every user a destination and the same availability.
func submitAll(t *testing.T, p *Planner, groupID, destination string, from, to time.Time, users ...string) models.Status {
	t.Helper()
	ctx := context.Background()

	var status models.Status
	for _, u := range users {
		if _, _, err := p.UpsertPreference(ctx, u, groupID, PreferenceInput{Destinations: destination, TotalBudget: 30000}); err != nil {
			t.Fatalf("UpsertPreference(%s) failed: %v", u, err)
		}
		_, s, err := p.SaveAvailability(ctx, u, groupID, AvailabilityInput{Slots: []Slot{{Start: from, End: to}}})
		if err != nil {
			t.Fatalf("SaveAvailability(%s) failed: %v", u, err)
		}
		status = s
	}
	return status
}

func TestEndToEnd(t *testing.T) {
	p, store := setupPlanner(t, pricing.NewMock())
	ctx := context.Background()
	users := []string{"owner", "alice", "bob", "carol"}

	group := createGroup(t, p, 4, users[1:]...)
	if len(group.InviteCode) != 6 {
		t.Errorf("InviteCode = %q, want 6 characters", group.InviteCode)
	}

	status := submitAll(t, p, group.ID, "NRT", june(1), june(5), users...)
	if status != models.StatusVoting {
		t.Fatalf("status after all submissions = %s, want VOTING", status)
	}

	windows, err := p.CommonTimeRanges(ctx, "owner", group.ID)
	if err != nil {
		t.Fatalf("CommonTimeRanges failed: %v", err)
	}
	if windows.Threshold != 3 {
		t.Errorf("Threshold = %d, want 3", windows.Threshold)
	}
	if len(windows.Ranges) != 1 {
		t.Fatalf("expected 1 range, got %d", len(windows.Ranges))
	}
	r := windows.Ranges[0]
	if !r.Start.Equal(june(1)) || !r.End.Equal(june(5)) || r.DurationDays != 5 || r.MinAttendance != 4 {
		t.Errorf("range = %v..%v (%d days, min %d), want 06-01..06-05 (5 days, min 4)",
			r.Start, r.End, r.DurationDays, r.MinAttendance)
	}

	gen, err := p.GenerateRecommendations(ctx, "owner", group.ID)
	if err != nil {
		t.Fatalf("GenerateRecommendations failed: %v", err)
	}
	if len(gen.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(gen.Candidates))
	}
	cand := gen.Candidates[0]
	if cand.Destination != "NRT" || !cand.Priced {
		t.Errorf("unexpected candidate: %+v", cand)
	}
	if !cand.StartDate.Equal(june(1)) || !cand.EndDate.Equal(june(3)) {
		t.Errorf("candidate window = %v..%v, want 06-01..06-03", cand.StartDate, cand.EndDate)
	}

	for _, u := range users {
		if _, err := p.SubmitVotes(ctx, u, group.ID, []string{cand.ID}); err != nil {
			t.Fatalf("SubmitVotes(%s) failed: %v", u, err)
		}
	}
	tally, err := p.AllMembersVoted(ctx, "owner", group.ID)
	if err != nil {
		t.Fatalf("AllMembersVoted failed: %v", err)
	}
	if !tally.AllVoted() {
		t.Fatalf("expected all voted, got %+v", tally)
	}

	trip, err := p.FinalizeTrip(ctx, "owner", group.ID, cand.ID)
	if err != nil {
		t.Fatalf("FinalizeTrip failed: %v", err)
	}

	stored, err := store.GetTrip(ctx, trip.ID)
	if err != nil {
		t.Fatalf("GetTrip failed: %v", err)
	}
	if !stored.StartDate.Equal(june(1)) || !stored.EndDate.Equal(june(3)) {
		t.Errorf("trip dates = %v..%v, want 06-01..06-03", stored.StartDate, stored.EndDate)
	}
	if stored.Title != group.Title || stored.InviteCode == "" || stored.InviteCode == group.InviteCode {
		t.Errorf("unexpected trip header: %+v", stored)
	}
	if stored.RegionID != "jp-tokyo" {
		t.Errorf("RegionID = %q, want jp-tokyo", stored.RegionID)
	}
	if len(stored.Flights) != 2 || len(stored.Accommodations) != 1 || len(stored.Members) != 4 {
		t.Errorf("children = %d flights, %d stays, %d members", len(stored.Flights), len(stored.Accommodations), len(stored.Members))
	}
	for _, m := range stored.Members {
		wantRole := models.TripRoleSecondary
		if m.UserID == "owner" {
			wantRole = models.TripRolePrimary
		}
		if m.Role != wantRole || m.Budget != 30000 {
			t.Errorf("trip member %s: role=%s budget=%d", m.UserID, m.Role, m.Budget)
		}
	}

	report, err := p.GroupStatus(ctx, "owner", group.ID)
	if err != nil {
		t.Fatalf("GroupStatus failed: %v", err)
	}
	if report.Group.Status != models.StatusJoining {
		t.Errorf("status = %s, want JOINING", report.Group.Status)
	}

	// JOINING is a fixed point
	if _, err := p.FinalizeTrip(ctx, "owner", group.ID, cand.ID); !errors.Is(err, ErrPolicyViolation) {
		t.Errorf("second finalize: expected ErrPolicyViolation, got %v", err)
	}
	if s, _ := p.TryAdvance(ctx, group.ID); s != models.StatusJoining {
		t.Errorf("TryAdvance on JOINING = %s", s)
	}
}

func TestStateMachine(t *testing.T) {
	ctx := context.Background()

	t.Run("status changes only move forward", func(t *testing.T) {
		p, store := setupPlanner(t, pricing.NewMock())
		group := createGroup(t, p, 1)
		submitAll(t, p, group.ID, "NRT", june(1), june(5), "owner")

		voting, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if err := moveStatus(ctx, store, voting, models.StatusPref); !errors.Is(err, ErrPolicyViolation) {
			t.Errorf("VOTING -> PREF: expected ErrPolicyViolation, got %v", err)
		}
		if err := moveStatus(ctx, store, voting, models.StatusCancelled); !errors.Is(err, ErrPolicyViolation) {
			t.Errorf("VOTING -> CANCELLED: expected ErrPolicyViolation, got %v", err)
		}

		stored, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if stored.Status != models.StatusVoting || stored.Version != voting.Version {
			t.Errorf("rejected move changed the group: status=%s version=%d", stored.Status, stored.Version)
		}
	})

	t.Run("does not advance until every target member has a destination", func(t *testing.T) {
		p, _ := setupPlanner(t, pricing.NewMock())
		group := createGroup(t, p, 2, "alice")

		submitAll(t, p, group.ID, "NRT", june(1), june(5), "owner")
		// alice submits availability with a blank destination list
		_, status, err := p.SaveAvailability(ctx, "alice", group.ID, AvailabilityInput{
			Slots:      []Slot{{Start: june(1), End: june(5)}},
			Preference: &PreferenceInput{Destinations: " , "},
		})
		if err != nil {
			t.Fatalf("SaveAvailability failed: %v", err)
		}
		if status != models.StatusPref {
			t.Errorf("status = %s, want PREF", status)
		}

		report, _ := p.GroupStatus(ctx, "owner", group.ID)
		if report.SubmittedCount != 2 || report.PreferenceCount != 1 || report.TargetMembers != 2 {
			t.Errorf("unexpected report: %+v", report)
		}
	})

	t.Run("does not advance until the target is reached", func(t *testing.T) {
		p, _ := setupPlanner(t, pricing.NewMock())
		group := createGroup(t, p, 3, "alice")

		status := submitAll(t, p, group.ID, "NRT", june(1), june(5), "owner", "alice")
		if status != models.StatusPref {
			t.Errorf("status = %s, want PREF with 2 of 3 submitted", status)
		}
	})

	t.Run("unset target uses the current member count", func(t *testing.T) {
		p, _ := setupPlanner(t, pricing.NewMock())
		group := createGroup(t, p, 0, "alice")

		status := submitAll(t, p, group.ID, "NRT", june(1), june(5), "owner", "alice")
		if status != models.StatusVoting {
			t.Errorf("status = %s, want VOTING", status)
		}
	})

	t.Run("never regresses", func(t *testing.T) {
		p, _ := setupPlanner(t, pricing.NewMock())
		group := createGroup(t, p, 1)

		if s := submitAll(t, p, group.ID, "NRT", june(1), june(5), "owner"); s != models.StatusVoting {
			t.Fatalf("status = %s, want VOTING", s)
		}
		// Re-submitting availability with nothing in it keeps VOTING
		_, status, err := p.SaveAvailability(ctx, "owner", group.ID, AvailabilityInput{})
		if err != nil {
			t.Fatalf("SaveAvailability failed: %v", err)
		}
		if status != models.StatusVoting {
			t.Errorf("status = %s, want VOTING", status)
		}
		for i := 0; i < 3; i++ {
			if s, err := p.TryAdvance(ctx, group.ID); err != nil || s != models.StatusVoting {
				t.Errorf("TryAdvance = %s, %v", s, err)
			}
		}
	})
}

// memberHookStore calls onGetMember once, right after the first armed GetMember read.
type memberHookStore struct {
	storage.Store
	armed       *atomic.Bool
	onGetMember func()
}

func (s *memberHookStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	return s.Store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		return fn(ctx, &memberHookStore{Store: tx, armed: s.armed, onGetMember: s.onGetMember})
	})
}

func (s *memberHookStore) GetMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	m, err := s.Store.GetMember(ctx, groupID, userID)
	if s.armed.CompareAndSwap(true, false) {
		s.onGetMember()
	}
	return m, err
}

func TestUpsertPreferenceRacingSubmission(t *testing.T) {
	ctx := context.Background()
	_, store := setupPlanner(t, pricing.NewMock())

	var armed atomic.Bool
	hooked := &memberHookStore{Store: store, armed: &armed}
	p := New(hooked, pricing.NewMock(), WithRules(Rules{Location: taipei}))
	group := createGroup(t, p, 2, "alice")

	var saveDone atomic.Int64
	saveErr := make(chan error, 1)
	hooked.onGetMember = func() {
		go func() {
			_, _, err := p.SaveAvailability(ctx, "alice", group.ID, AvailabilityInput{Slots: []Slot{{Start: june(1), End: june(5)}}})
			saveDone.Store(time.Now().UnixNano())
			saveErr <- err
		}()
		// Give the submission every chance to land between the read and the write.
		time.Sleep(100 * time.Millisecond)
	}

	armed.Store(true)
	_, _, upsertErr := p.UpsertPreference(ctx, "alice", group.ID, PreferenceInput{Destinations: "KIX"})
	upsertDone := time.Now().UnixNano()

	if err := <-saveErr; err != nil {
		t.Fatalf("SaveAvailability failed: %v", err)
	}

	if upsertErr == nil && saveDone.Load() < upsertDone {
		t.Fatal("preference write was accepted after the member had already submitted")
	}
	if upsertErr != nil && !errors.Is(upsertErr, ErrPolicyViolation) {
		t.Fatalf("unexpected UpsertPreference error: %v", upsertErr)
	}

	member, err := store.GetMember(ctx, group.ID, "alice")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if !member.Submitted() {
		t.Error("expected alice to be submitted")
	}
}

func TestPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("preferences lock after availability submission", func(t *testing.T) {
		p, _ := setupPlanner(t, pricing.NewMock())
		group := createGroup(t, p, 2, "alice")

		if _, _, err := p.SaveAvailability(ctx, "alice", group.ID, AvailabilityInput{Slots: []Slot{{Start: june(1), End: june(2)}}}); err != nil {
			t.Fatalf("SaveAvailability failed: %v", err)
		}
		_, _, err := p.UpsertPreference(ctx, "alice", group.ID, PreferenceInput{Destinations: "NRT"})
		if !errors.Is(err, ErrPolicyViolation) {
			t.Errorf("expected ErrPolicyViolation, got %v", err)
		}

		// Availability itself stays open for re-submission, and may carry preferences
		_, _, err = p.SaveAvailability(ctx, "alice", group.ID, AvailabilityInput{
			Slots:      []Slot{{Start: june(3), End: june(4)}},
			Preference: &PreferenceInput{Destinations: "KIX"},
		})
		if err != nil {
			t.Errorf("re-submission failed: %v", err)
		}
	})

	t.Run("cancelled group rejects mutations", func(t *testing.T) {
		p, store := setupPlanner(t, pricing.NewMock())
		group := createGroup(t, p, 2, "alice")

		g, _ := store.GetGroup(ctx, group.ID)
		if err := store.UpdateGroupStatus(ctx, g, models.StatusCancelled); err != nil {
			t.Fatalf("cancel failed: %v", err)
		}

		if _, _, err := p.UpsertPreference(ctx, "alice", group.ID, PreferenceInput{Destinations: "NRT"}); !errors.Is(err, ErrPolicyViolation) {
			t.Errorf("UpsertPreference: expected ErrPolicyViolation, got %v", err)
		}
		if _, _, err := p.SaveAvailability(ctx, "alice", group.ID, AvailabilityInput{}); !errors.Is(err, ErrPolicyViolation) {
			t.Errorf("SaveAvailability: expected ErrPolicyViolation, got %v", err)
		}
		if _, err := p.GenerateRecommendations(ctx, "alice", group.ID); !errors.Is(err, ErrPolicyViolation) {
			t.Errorf("GenerateRecommendations: expected ErrPolicyViolation, got %v", err)
		}
		if _, err := p.SubmitVotes(ctx, "alice", group.ID, nil); !errors.Is(err, ErrPolicyViolation) {
			t.Errorf("SubmitVotes: expected ErrPolicyViolation, got %v", err)
		}
		if _, _, err := p.JoinGroup(ctx, "dave", group.InviteCode); !errors.Is(err, ErrPolicyViolation) {
			t.Errorf("JoinGroup: expected ErrPolicyViolation, got %v", err)
		}
		if s, _ := p.TryAdvance(ctx, group.ID); s != models.StatusCancelled {
			t.Errorf("TryAdvance on CANCELLED = %s", s)
		}
	})

	t.Run("non-members and unknown ids are not found", func(t *testing.T) {
		p, _ := setupPlanner(t, pricing.NewMock())
		group := createGroup(t, p, 2)

		if _, err := p.CommonTimeRanges(ctx, "stranger", group.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("non-member: expected ErrNotFound, got %v", err)
		}
		if _, err := p.GroupStatus(ctx, "owner", "missing-group"); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing group: expected ErrNotFound, got %v", err)
		}
		if _, _, err := p.JoinGroup(ctx, "alice", "ZZZZZZ"); !errors.Is(err, ErrNotFound) {
			t.Errorf("unknown invite code: expected ErrNotFound, got %v", err)
		}
		if _, _, err := p.LiveTravelPrice(ctx, "owner", group.ID, "missing-candidate"); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing candidate: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		p, _ := setupPlanner(t, pricing.NewMock())
		_, err := p.CreateGroup(ctx, "owner", CreateGroupInput{Title: "x", StartDate: june(5), EndDate: june(1)})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("reversed dates: expected ErrValidation, got %v", err)
		}

		group := createGroup(t, p, 1)
		_, _, err = p.SaveAvailability(ctx, "owner", group.ID, AvailabilityInput{Slots: []Slot{{Start: june(5), End: june(1)}}})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("reversed slot: expected ErrValidation, got %v", err)
		}
		_, _, err = p.UpsertPreference(ctx, "owner", group.ID, PreferenceInput{HotelRating: 9})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("rating 9: expected ErrValidation, got %v", err)
		}
	})
}

func TestJoinGroupIsIdempotent(t *testing.T) {
	p, store := setupPlanner(t, pricing.NewMock())
	ctx := context.Background()
	group := createGroup(t, p, 3)

	if _, _, err := p.JoinGroup(ctx, "alice", strings.ToLower(group.InviteCode)); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
	_, second, err := p.JoinGroup(ctx, "alice", group.InviteCode)
	if err != nil {
		t.Fatalf("second JoinGroup failed: %v", err)
	}
	_, third, err := p.JoinGroup(ctx, "alice", group.InviteCode)
	if err != nil {
		t.Fatalf("third JoinGroup failed: %v", err)
	}
	if !second.JoinedAt.Equal(third.JoinedAt) || third.Role != models.RoleMember {
		t.Errorf("repeated join changed membership: %+v vs %+v", second, third)
	}

	if n, _ := store.CountMembers(ctx, group.ID); n != 2 {
		t.Errorf("CountMembers = %d, want 2", n)
	}
	if _, err := store.GetPreference(ctx, group.ID, "alice"); err != nil {
		t.Errorf("expected an empty preference row on join: %v", err)
	}
}

func TestGenerateRecommendations(t *testing.T) {
	ctx := context.Background()

	t.Run("cross product of windows and destinations", func(t *testing.T) {
		p, _ := setupPlanner(t, pricing.NewMock())
		group := createGroup(t, p, 2, "alice")
		submitAll(t, p, group.ID, "NRT, KIX", june(1), june(5), "owner")
		submitAll(t, p, group.ID, "kix, ICN", june(1), june(5), "alice")
		// Second window for both
		for _, u := range []string{"owner", "alice"} {
			if _, _, err := p.SaveAvailability(ctx, u, group.ID, AvailabilityInput{Slots: []Slot{
				{Start: june(1), End: june(5)}, {Start: june(20), End: june(24)},
			}}); err != nil {
				t.Fatalf("SaveAvailability failed: %v", err)
			}
		}

		gen, err := p.GenerateRecommendations(ctx, "owner", group.ID)
		if err != nil {
			t.Fatalf("GenerateRecommendations failed: %v", err)
		}
		// 2 windows x 3 destinations
		if len(gen.Candidates) != 6 || gen.FailedCount != 0 {
			t.Errorf("got %d candidates (%d failed), want 6 (0 failed)", len(gen.Candidates), gen.FailedCount)
		}
	})

	t.Run("regeneration replaces rather than duplicates", func(t *testing.T) {
		p, store := setupPlanner(t, pricing.NewMock())
		group := createGroup(t, p, 2, "alice")
		submitAll(t, p, group.ID, "NRT, KIX", june(1), june(5), "owner", "alice")

		first, err := p.GenerateRecommendations(ctx, "owner", group.ID)
		if err != nil {
			t.Fatalf("GenerateRecommendations failed: %v", err)
		}
		if _, err := p.SubmitVotes(ctx, "alice", group.ID, []string{first.Candidates[0].ID}); err != nil {
			t.Fatalf("SubmitVotes failed: %v", err)
		}

		second, err := p.GenerateRecommendations(ctx, "owner", group.ID)
		if err != nil {
			t.Fatalf("GenerateRecommendations failed: %v", err)
		}
		if len(second.Candidates) != len(first.Candidates) {
			t.Fatalf("count changed: %d -> %d", len(first.Candidates), len(second.Candidates))
		}
		for i := range first.Candidates {
			a, b := first.Candidates[i], second.Candidates[i]
			if a.Destination != b.Destination || !a.StartDate.Equal(b.StartDate) || a.TotalPrice != b.TotalPrice {
				t.Errorf("candidate %d changed: %+v -> %+v", i, a, b)
			}
			if a.ID == b.ID {
				t.Errorf("candidate %d was not replaced", i)
			}
			if b.VoteCount != 0 {
				t.Errorf("candidate %d kept votes: %d", i, b.VoteCount)
			}
		}
		if n, _ := store.CountVoters(ctx, group.ID); n != 0 {
			t.Errorf("votes survived regeneration: %d voters", n)
		}
	})

	t.Run("pricing failure for one pairing does not abort the batch", func(t *testing.T) {
		mock := pricing.NewMock()
		flaky := pricing.LookupFunc(func(ctx context.Context, req pricing.Request) (*pricing.Quote, error) {
			if req.Destination == "KIX" {
				return nil, errors.New("upstream 503")
			}
			return mock.Quote(ctx, req)
		})
		p, _ := setupPlanner(t, flaky)
		group := createGroup(t, p, 1)
		submitAll(t, p, group.ID, "NRT, KIX", june(1), june(5), "owner")

		gen, err := p.GenerateRecommendations(ctx, "owner", group.ID)
		if err != nil {
			t.Fatalf("GenerateRecommendations failed: %v", err)
		}
		if len(gen.Candidates) != 2 || gen.FailedCount != 1 {
			t.Fatalf("got %d candidates (%d failed), want 2 (1 failed)", len(gen.Candidates), gen.FailedCount)
		}
		for _, c := range gen.Candidates {
			if c.Destination == "KIX" {
				if c.Priced || c.TotalPrice != 0 || c.FlightOut != "" || c.OutboundLeg.Valid {
					t.Errorf("failed pairing should be unpriced: %+v", c)
				}
			} else if !c.Priced {
				t.Errorf("NRT should be priced: %+v", c)
			}
		}
	})

	t.Run("slow pricing times out per item", func(t *testing.T) {
		var calls atomic.Int32
		slow := pricing.LookupFunc(func(ctx context.Context, req pricing.Request) (*pricing.Quote, error) {
			calls.Add(1)
			<-ctx.Done()
			return nil, ctx.Err()
		})
		p, _ := setupPlanner(t, slow, WithRules(Rules{PricingTimeout: 20 * time.Millisecond}))
		group := createGroup(t, p, 1)
		submitAll(t, p, group.ID, "NRT, KIX, ICN", june(1), june(5), "owner")

		gen, err := p.GenerateRecommendations(ctx, "owner", group.ID)
		if err != nil {
			t.Fatalf("GenerateRecommendations failed: %v", err)
		}
		if gen.FailedCount != 3 || calls.Load() != 3 {
			t.Errorf("FailedCount = %d, calls = %d, want 3/3", gen.FailedCount, calls.Load())
		}
	})

	t.Run("lookup ignoring cancellation still times out", func(t *testing.T) {
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		stuck := pricing.LookupFunc(func(ctx context.Context, req pricing.Request) (*pricing.Quote, error) {
			<-release
			return &pricing.Quote{FlightOut: "BR1(08:00 - 12:00)", TotalPrice: 1}, nil
		})
		p, _ := setupPlanner(t, stuck, WithRules(Rules{PricingTimeout: 20 * time.Millisecond}))
		group := createGroup(t, p, 1)
		submitAll(t, p, group.ID, "NRT, KIX", june(1), june(5), "owner")

		start := time.Now()
		gen, err := p.GenerateRecommendations(ctx, "owner", group.ID)
		if err != nil {
			t.Fatalf("GenerateRecommendations failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("generation took %v, want it bounded by the pricing timeout", elapsed)
		}
		if gen.FailedCount != 2 {
			t.Errorf("FailedCount = %d, want 2", gen.FailedCount)
		}
		for _, c := range gen.Candidates {
			if c.Priced {
				t.Errorf("candidate should be unpriced: %+v", c)
			}
		}
	})

	t.Run("placeholder destination when nobody named one", func(t *testing.T) {
		p, _ := setupPlanner(t, pricing.NewMock())
		group := createGroup(t, p, 1)
		if _, _, err := p.SaveAvailability(ctx, "owner", group.ID, AvailabilityInput{Slots: []Slot{{Start: june(1), End: june(5)}}}); err != nil {
			t.Fatalf("SaveAvailability failed: %v", err)
		}

		gen, err := p.GenerateRecommendations(ctx, "owner", group.ID)
		if err != nil {
			t.Fatalf("GenerateRecommendations failed: %v", err)
		}
		if len(gen.Candidates) != 1 || gen.Candidates[0].Destination != "ANY" {
			t.Errorf("expected one ANY candidate, got %+v", gen.Candidates)
		}
	})

	t.Run("no windows yields no candidates", func(t *testing.T) {
		p, _ := setupPlanner(t, pricing.NewMock())
		group := createGroup(t, p, 1)

		gen, err := p.GenerateRecommendations(ctx, "owner", group.ID)
		if err != nil {
			t.Fatalf("GenerateRecommendations failed: %v", err)
		}
		if len(gen.Candidates) != 0 {
			t.Errorf("expected no candidates, got %d", len(gen.Candidates))
		}
	})
}

func TestVoting(t *testing.T) {
	p, store := setupPlanner(t, pricing.NewMock())
	ctx := context.Background()
	group := createGroup(t, p, 3, "alice", "bob")
	submitAll(t, p, group.ID, "NRT, KIX, ICN", june(1), june(5), "owner", "alice", "bob")

	gen, err := p.GenerateRecommendations(ctx, "owner", group.ID)
	if err != nil {
		t.Fatalf("GenerateRecommendations failed: %v", err)
	}
	ids := make([]string, len(gen.Candidates))
	for i, c := range gen.Candidates {
		ids[i] = c.ID
	}

	steps := []struct {
		user string
		ids  []string
	}{
		{"owner", []string{ids[0], ids[1]}},
		{"alice", []string{ids[1], ids[1], "not-a-candidate"}},
		{"owner", []string{ids[2]}}, // change of mind
		{"bob", []string{ids[2], ids[0]}},
		{"alice", []string{ids[1]}}, // repeat
	}
	for _, s := range steps {
		if _, err := p.SubmitVotes(ctx, s.user, group.ID, s.ids); err != nil {
			t.Fatalf("SubmitVotes(%s) failed: %v", s.user, err)
		}

		// Stored counts always equal a recount of the latest vote sets
		want := map[string]int{}
		for _, u := range []string{"owner", "alice", "bob"} {
			votes, _ := store.ListVotes(ctx, group.ID, u)
			for _, v := range votes {
				want[v.CandidateID]++
			}
		}
		candidates, _ := store.ListCandidates(ctx, group.ID)
		for _, c := range candidates {
			if c.VoteCount != want[c.ID] {
				t.Errorf("after %s: candidate %s VoteCount=%d, recount=%d", s.user, c.Destination, c.VoteCount, want[c.ID])
			}
		}
	}

	res, err := p.SubmitVotes(ctx, "alice", group.ID, []string{"bogus", ids[0]})
	if err != nil {
		t.Fatalf("SubmitVotes failed: %v", err)
	}
	if len(res.AcceptedIDs) != 1 || res.AcceptedIDs[0] != ids[0] {
		t.Errorf("AcceptedIDs = %v, want [%s]", res.AcceptedIDs, ids[0])
	}
	if !res.AllVoted {
		t.Error("expected all members voted")
	}

	view, err := p.RecommendationView(ctx, "alice", group.ID)
	if err != nil {
		t.Fatalf("RecommendationView failed: %v", err)
	}
	for i := 1; i < len(view.Candidates); i++ {
		if view.Candidates[i-1].VoteCount < view.Candidates[i].VoteCount {
			t.Errorf("view not ordered by votes: %d before %d", view.Candidates[i-1].VoteCount, view.Candidates[i].VoteCount)
		}
	}
	if len(view.MyVotes) != 1 || view.VotedCount != 3 || view.MemberCount != 3 || !view.AllVoted {
		t.Errorf("unexpected view: my=%v voted=%d members=%d all=%v", view.MyVotes, view.VotedCount, view.MemberCount, view.AllVoted)
	}
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	// votingGroup returns a group where everyone voted for the single candidate.
	votingGroup := func(t *testing.T, p *Planner, allVote bool) (*models.Group, string) {
		t.Helper()
		group := createGroup(t, p, 2, "alice")
		submitAll(t, p, group.ID, "NRT", june(1), june(5), "owner", "alice")
		gen, err := p.GenerateRecommendations(ctx, "owner", group.ID)
		if err != nil || len(gen.Candidates) != 1 {
			t.Fatalf("GenerateRecommendations = %v, %v", gen, err)
		}
		id := gen.Candidates[0].ID
		voters := []string{"owner", "alice"}
		if !allVote {
			voters = voters[:1]
		}
		for _, u := range voters {
			if _, err := p.SubmitVotes(ctx, u, group.ID, []string{id}); err != nil {
				t.Fatalf("SubmitVotes failed: %v", err)
			}
		}
		return group, id
	}

	t.Run("region lookup failure rolls everything back", func(t *testing.T) {
		failing := RegionLookupFunc(func(ctx context.Context, destination string) (string, bool, error) {
			return "", false, errors.New("region service down")
		})
		p, store := setupPlanner(t, pricing.NewMock(), WithRegionLookup(failing))
		group, id := votingGroup(t, p, true)

		_, err := p.FinalizeTrip(ctx, "owner", group.ID, id)
		if !errors.Is(err, ErrExternalDependency) {
			t.Fatalf("expected ErrExternalDependency, got %v", err)
		}
		if n, _ := store.CountTrips(ctx, group.ID); n != 0 {
			t.Errorf("trip rows persisted after failure: %d", n)
		}
		g, _ := store.GetGroup(ctx, group.ID)
		if g.Status != models.StatusVoting {
			t.Errorf("status = %s, want VOTING", g.Status)
		}
	})

	t.Run("unknown region skips linking", func(t *testing.T) {
		none := RegionLookupFunc(func(ctx context.Context, destination string) (string, bool, error) {
			return "", false, nil
		})
		p, store := setupPlanner(t, pricing.NewMock(), WithRegionLookup(none))
		group, id := votingGroup(t, p, true)

		trip, err := p.FinalizeTrip(ctx, "owner", group.ID, id)
		if err != nil {
			t.Fatalf("FinalizeTrip failed: %v", err)
		}
		stored, _ := store.GetTrip(ctx, trip.ID)
		if stored.RegionID != "" {
			t.Errorf("RegionID = %q, want empty", stored.RegionID)
		}
	})

	t.Run("requires every member to vote", func(t *testing.T) {
		p, _ := setupPlanner(t, pricing.NewMock())
		group, id := votingGroup(t, p, false)

		if _, err := p.FinalizeTrip(ctx, "owner", group.ID, id); !errors.Is(err, ErrPolicyViolation) {
			t.Errorf("expected ErrPolicyViolation, got %v", err)
		}
	})

	t.Run("candidate must belong to the group", func(t *testing.T) {
		p, _ := setupPlanner(t, pricing.NewMock())
		group, _ := votingGroup(t, p, true)
		_, otherID := votingGroup(t, p, true)

		if _, err := p.FinalizeTrip(ctx, "owner", group.ID, otherID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("overnight return arrives the next day", func(t *testing.T) {
		overnight := pricing.LookupFunc(func(ctx context.Context, req pricing.Request) (*pricing.Quote, error) {
			return &pricing.Quote{
				FlightOut:    "BR198(08:50 - 13:15)",
				FlightReturn: "BR197(22:30 - 01:05)",
				HotelName:    "Shinjuku Stay",
				TotalPrice:   42000,
			}, nil
		})
		p, store := setupPlanner(t, overnight)
		group, id := votingGroup(t, p, true)

		trip, err := p.FinalizeTrip(ctx, "owner", group.ID, id)
		if err != nil {
			t.Fatalf("FinalizeTrip failed: %v", err)
		}
		stored, _ := store.GetTrip(ctx, trip.ID)
		if len(stored.Flights) != 2 {
			t.Fatalf("expected 2 flights, got %d", len(stored.Flights))
		}
		ret := stored.Flights[1]
		if ret.Direction != models.DirectionReturn {
			t.Fatalf("second flight direction = %s", ret.Direction)
		}
		wantDepart := time.Date(2025, 6, 3, 22, 30, 0, 0, taipei)
		wantArrive := time.Date(2025, 6, 4, 1, 5, 0, 0, taipei)
		if !ret.DepartAt.Equal(wantDepart) || !ret.ArriveAt.Equal(wantArrive) {
			t.Errorf("return = %v -> %v, want %v -> %v", ret.DepartAt, ret.ArriveAt, wantDepart, wantArrive)
		}
	})
}

func TestLiveTravelPrice(t *testing.T) {
	ctx := context.Background()
	var fail atomic.Bool
	mock := pricing.NewMock()
	lookup := pricing.LookupFunc(func(ctx context.Context, req pricing.Request) (*pricing.Quote, error) {
		if fail.Load() {
			return nil, errors.New("timeout")
		}
		q, err := mock.Quote(ctx, req)
		if err != nil {
			return nil, err
		}
		q.TotalPrice += 1000
		return q, nil
	})

	p, store := setupPlanner(t, lookup)
	group := createGroup(t, p, 1)
	submitAll(t, p, group.ID, "NRT", june(1), june(5), "owner")
	gen, err := p.GenerateRecommendations(ctx, "owner", group.ID)
	if err != nil {
		t.Fatalf("GenerateRecommendations failed: %v", err)
	}
	id := gen.Candidates[0].ID

	quote, cand, err := p.LiveTravelPrice(ctx, "owner", group.ID, id)
	if err != nil {
		t.Fatalf("LiveTravelPrice failed: %v", err)
	}
	stored, _ := store.GetCandidate(ctx, id)
	if stored.TotalPrice != quote.TotalPrice || cand.TotalPrice != quote.TotalPrice {
		t.Errorf("stored price %d, returned %d, quote %d", stored.TotalPrice, cand.TotalPrice, quote.TotalPrice)
	}

	fail.Store(true)
	if _, _, err := p.LiveTravelPrice(ctx, "owner", group.ID, id); !errors.Is(err, ErrExternalDependency) {
		t.Errorf("expected ErrExternalDependency, got %v", err)
	}
	after, _ := store.GetCandidate(ctx, id)
	if after.TotalPrice != stored.TotalPrice {
		t.Errorf("failed re-price changed stored price: %d -> %d", stored.TotalPrice, after.TotalPrice)
	}
}

func TestCreateGroupIssuesUniqueInviteCodes(t *testing.T) {
	p, _ := setupPlanner(t, pricing.NewMock(), WithRules(Rules{InviteCodeAttempts: 3}))
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		g, err := p.CreateGroup(ctx, "owner", CreateGroupInput{Title: "g", StartDate: june(1), EndDate: june(2)})
		if err != nil {
			t.Fatalf("CreateGroup %d failed: %v", i, err)
		}
		if seen[g.InviteCode] {
			t.Fatalf("duplicate invite code issued: %s", g.InviteCode)
		}
		seen[g.InviteCode] = true
		for _, r := range g.InviteCode {
			if !strings.ContainsRune(inviteAlphabet, r) {
				t.Errorf("invite code %q has character %q", g.InviteCode, r)
			}
		}
	}
}
