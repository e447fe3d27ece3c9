package services

import (
	"context"
	"sync"
	"testing"

	"github.com/isdelr/pitchzone-be/internal/models"
)

type recordingNotifier struct {
	mu      sync.Mutex
	updated []models.Pitch
}

func (n *recordingNotifier) PitchUpdated(p models.Pitch) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, p)
}

func TestInvestReachingTargetFundsPitch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	notifier := &recordingNotifier{}
	f.funding = NewFundingService(f.db, notifier)

	e := f.register(t, "founder", "entrepreneur")
	p := f.createPitch(t, e, 1000)
	i := f.register(t, "backer", "investor")

	res, err := f.funding.Invest(ctx, i, p.ID, dec(1000))
	if err != nil {
		t.Fatalf("Invest: %v", err)
	}
	if res.Pitch.Status != models.PitchFunded {
		t.Errorf("status = %s, want Funded", res.Pitch.Status)
	}
	if !res.Pitch.RaisedAmount.Equal(dec(1000)) {
		t.Errorf("raised = %s, want 1000", res.Pitch.RaisedAmount)
	}
	if len(res.Pitch.Investors) != 1 {
		t.Errorf("investors = %d, want 1", len(res.Pitch.Investors))
	}
	if res.Investment.Investor != "backer" || !res.Investment.Amount.Equal(dec(1000)) {
		t.Errorf("confirmation = %+v", res.Investment)
	}
	if len(notifier.updated) != 1 {
		t.Errorf("notifier called %d times, want 1", len(notifier.updated))
	}

	stored, err := f.pitches.GetPitchDetails(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPitchDetails: %v", err)
	}
	if stored.Status != models.PitchFunded || !stored.RaisedAmount.Equal(dec(1000)) {
		t.Errorf("stored pitch = %s/%s, want Funded/1000", stored.Status, stored.RaisedAmount)
	}
	if stored.FundingPercentage != 100 {
		t.Errorf("fundingPercentage = %v, want 100", stored.FundingPercentage)
	}

	// Funded is terminal for investments.
	other := f.register(t, "latecomer", "investor")
	_, err = f.funding.Invest(ctx, other, p.ID, dec(500))
	wantKind(t, err, KindState)
}

func TestInvestTwiceAccumulatesSingleEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.register(t, "founder", "entrepreneur")
	p := f.createPitch(t, e, 10000)
	i := f.register(t, "backer", "investor")

	first, err := f.funding.Invest(ctx, i, p.ID, dec(100))
	if err != nil {
		t.Fatalf("first Invest: %v", err)
	}
	firstAt := first.Pitch.Investors[0].InvestedAt

	second, err := f.funding.Invest(ctx, i, p.ID, dec(150))
	if err != nil {
		t.Fatalf("second Invest: %v", err)
	}

	if len(second.Pitch.Investors) != 1 {
		t.Fatalf("investors = %d, want 1", len(second.Pitch.Investors))
	}
	if got := second.Pitch.Investors[0].Amount; !got.Equal(dec(250)) {
		t.Errorf("investor amount = %s, want 250", got)
	}
	if !second.Pitch.RaisedAmount.Equal(dec(250)) {
		t.Errorf("raised = %s, want 250", second.Pitch.RaisedAmount)
	}

	stored, err := f.pitches.GetPitchDetails(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPitchDetails: %v", err)
	}
	if len(stored.Investors) != 1 || !stored.Investors[0].Amount.Equal(dec(250)) {
		t.Fatalf("stored investors = %+v", stored.Investors)
	}
	if !stored.Investors[0].InvestedAt.Equal(firstAt) {
		t.Errorf("investedAt moved from %v to %v", firstAt, stored.Investors[0].InvestedAt)
	}
	if stored.Status != models.PitchActive {
		t.Errorf("status = %s, want Active", stored.Status)
	}
}

func TestInvestRaisedAmountNeverDecreases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.register(t, "founder", "entrepreneur")
	p := f.createPitch(t, e, 4000)
	investors := []models.User{
		f.register(t, "alice", "investor"),
		f.register(t, "bob", "investor"),
	}

	amounts := []int64{100, 250, 1000, 100, 3000}
	raised := dec(0)
	for n, amount := range amounts {
		res, err := f.funding.Invest(ctx, investors[n%2], p.ID, dec(amount))
		if err != nil {
			t.Fatalf("Invest %d: %v", amount, err)
		}
		want := raised.Add(dec(amount))
		if !res.Pitch.RaisedAmount.Equal(want) {
			t.Fatalf("after %d raised = %s, want %s", amount, res.Pitch.RaisedAmount, want)
		}
		raised = want
	}
	// 1450 of 4000 before the last investment crosses the target.
	stored, _ := f.pitches.GetPitchDetails(ctx, p.ID)
	if stored.Status != models.PitchFunded {
		t.Errorf("status = %s, want Funded", stored.Status)
	}
	if len(stored.Investors) != 2 {
		t.Errorf("investors = %d, want 2", len(stored.Investors))
	}
}

func TestInvestPreconditionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.register(t, "founder", "entrepreneur")
	p := f.createPitch(t, e, 5000)
	i := f.register(t, "backer", "investor")

	t.Run("unknown pitch", func(t *testing.T) {
		_, err := f.funding.Invest(ctx, i, "00000000-0000-0000-0000-000000000000", dec(50))
		wantKind(t, err, KindNotFound)
	})
	t.Run("malformed id", func(t *testing.T) {
		_, err := f.funding.Invest(ctx, i, "not-an-id", dec(500))
		wantKind(t, err, KindNotFound)
	})
	t.Run("below minimum", func(t *testing.T) {
		_, err := f.funding.Invest(ctx, i, p.ID, dec(99))
		wantKind(t, err, KindValidation)
	})
	t.Run("self investment", func(t *testing.T) {
		// The owner is passed with an investor role to reach the ownership check.
		owner := e
		owner.Role = models.RoleInvestor
		_, err := f.funding.Invest(ctx, owner, p.ID, dec(10))
		wantKind(t, err, KindForbidden)
	})
	t.Run("wrong role", func(t *testing.T) {
		_, err := f.funding.Invest(ctx, e, p.ID, dec(500))
		wantKind(t, err, KindForbidden)
	})

	if _, err := f.pitches.ClosePitch(ctx, e.ID, p.ID); err != nil {
		t.Fatalf("ClosePitch: %v", err)
	}
	t.Run("closed pitch beats small amount", func(t *testing.T) {
		_, err := f.funding.Invest(ctx, i, p.ID, dec(1))
		wantKind(t, err, KindState)
	})

	stored, _ := f.pitches.GetPitchDetails(ctx, p.ID)
	if !stored.RaisedAmount.IsZero() || len(stored.Investors) != 0 {
		t.Errorf("rejected investments changed the pitch: raised=%s investors=%d", stored.RaisedAmount, len(stored.Investors))
	}
}

func TestConcurrentInvestmentsAreNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.register(t, "founder", "entrepreneur")
	p := f.createPitch(t, e, 1000000)
	i := f.register(t, "backer", "investor")

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for k := 0; k < n; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.funding.Invest(ctx, i, p.ID, dec(100))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Invest: %v", err)
		}
	}

	stored, _ := f.pitches.GetPitchDetails(ctx, p.ID)
	if !stored.RaisedAmount.Equal(dec(100 * n)) {
		t.Errorf("raised = %s, want %d", stored.RaisedAmount, 100*n)
	}
	if len(stored.Investors) != 1 || !stored.Investors[0].Amount.Equal(dec(100*n)) {
		t.Errorf("investors = %+v", stored.Investors)
	}
}

func TestAddFeedbackOncePerInvestor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.register(t, "founder", "entrepreneur")
	p := f.createPitch(t, e, 5000)
	i := f.register(t, "backer", "investor")
	rating := 4

	fb, err := f.funding.AddFeedback(ctx, i, p.ID, FeedbackInput{Message: "  Strong team, clear market.  ", Rating: &rating})
	if err != nil {
		t.Fatalf("AddFeedback: %v", err)
	}
	if fb.Message != "Strong team, clear market." {
		t.Errorf("message = %q, want trimmed", fb.Message)
	}

	_, err = f.funding.AddFeedback(ctx, i, p.ID, FeedbackInput{Message: "Changed my mind entirely."})
	wantKind(t, err, KindConflict)

	stored, _ := f.pitches.GetPitchDetails(ctx, p.ID)
	if len(stored.Feedback) != 1 {
		t.Fatalf("feedback = %d, want 1", len(stored.Feedback))
	}
	if stored.AverageRating != 4 {
		t.Errorf("averageRating = %v, want 4", stored.AverageRating)
	}
	if stored.Feedback[0].Investor.Username != "backer" {
		t.Errorf("feedback investor = %+v", stored.Feedback[0].Investor)
	}
}

func TestAddFeedbackValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.register(t, "founder", "entrepreneur")
	p := f.createPitch(t, e, 5000)
	i := f.register(t, "backer", "investor")
	bad := 6

	tests := []struct {
		name string
		in   FeedbackInput
	}{
		{"short message", FeedbackInput{Message: "ok"}},
		{"whitespace padding does not count", FeedbackInput{Message: "   hi   "}},
		{"rating out of range", FeedbackInput{Message: "Looks promising", Rating: &bad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.funding.AddFeedback(ctx, i, p.ID, tt.in)
			wantKind(t, err, KindValidation)
		})
	}

	_, err := f.funding.AddFeedback(ctx, i, "00000000-0000-0000-0000-000000000000", FeedbackInput{Message: "Looks promising"})
	wantKind(t, err, KindNotFound)
}

func TestMyInvestmentsSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e1 := f.register(t, "founder1", "entrepreneur")
	e2 := f.register(t, "founder2", "entrepreneur")
	p1 := f.createPitch(t, e1, 1000)
	p2 := f.createPitch(t, e2, 5000)
	i := f.register(t, "backer", "investor")

	if _, err := f.funding.Invest(ctx, i, p1.ID, dec(1000)); err != nil {
		t.Fatalf("Invest p1: %v", err)
	}
	if _, err := f.funding.Invest(ctx, i, p2.ID, dec(200)); err != nil {
		t.Fatalf("Invest p2: %v", err)
	}
	if _, err := f.funding.Invest(ctx, i, p2.ID, dec(300)); err != nil {
		t.Fatalf("Invest p2 again: %v", err)
	}

	records, summary, err := f.funding.MyInvestments(ctx, i.ID)
	if err != nil {
		t.Fatalf("MyInvestments: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if summary.TotalInvestments != 2 || summary.ActiveCount != 1 || summary.FundedCount != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if !summary.TotalAmount.Equal(dec(1500)) {
		t.Errorf("total = %s, want 1500", summary.TotalAmount)
	}
	for _, r := range records {
		if r.Pitch.ID == p2.ID && !r.Investment.Amount.Equal(dec(500)) {
			t.Errorf("p2 amount = %s, want 500", r.Investment.Amount)
		}
	}
}
