package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/isdelr/pitchzone-be/internal/database"
	"github.com/isdelr/pitchzone-be/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	db      *sql.DB
	events  *EventService
	users   *UserService
	pitches *PitchService
	funding *FundingService
	stats   *StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{db: db, events: NewEventService(db)}
	f.users = NewUserService(db, f.events).WithHashCost(bcrypt.MinCost)
	f.pitches = NewPitchService(db, f.events)
	f.funding = NewFundingService(db, nil)
	f.stats = NewStatsService(db, f.users, f.pitches)
	return f
}

func (f *fixture) register(t *testing.T, username, role string) models.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func (f *fixture) createPitch(t *testing.T, owner models.User, target int64) models.Pitch {
	t.Helper()
	amount := decimal.NewFromInt(target)
	p, err := f.pitches.CreatePitch(context.Background(), owner, CreatePitchInput{
		Title:        "Solar kiosks",
		Description:  "Pay-as-you-go solar charging kiosks for rural markets.",
		TargetAmount: &amount,
		Category:     "Technology",
		Stage:        "MVP",
	})
	if err != nil {
		t.Fatalf("create pitch: %v", err)
	}
	return p
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
