package services

import (
	"context"
	"strings"
	"testing"

	"github.com/isdelr/pitchzone-be/internal/models"
)

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"short password", RegisterInput{Username: "alice", Email: "a@example.com", Password: "12345", Role: "investor"}, "password"},
		{"short username", RegisterInput{Username: "al", Email: "a@example.com", Password: "secret", Role: "investor"}, "username"},
		{"username charset", RegisterInput{Username: "al-ice", Email: "a@example.com", Password: "secret", Role: "investor"}, "username"},
		{"bad email", RegisterInput{Username: "alice", Email: "nope", Password: "secret", Role: "investor"}, "email"},
		{"admin role", RegisterInput{Username: "alice", Email: "a@example.com", Password: "secret", Role: "admin"}, "role"},
		{"unknown role", RegisterInput{Username: "alice", Email: "a@example.com", Password: "secret", Role: "ceo"}, "role"},
		{"bad linkedin", RegisterInput{Username: "alice", Email: "a@example.com", Password: "secret", Role: "investor", LinkedinURL: "not a url"}, "linkedinUrl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.Register(ctx, tt.in)
			wantKind(t, err, KindValidation)
			se := err.(*Error)
			if len(se.Fields) != 1 || se.Fields[0].Field != tt.field {
				t.Errorf("fields = %+v, want exactly %s", se.Fields, tt.field)
			}
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "investor")

	_, err := f.users.Register(ctx, RegisterInput{Username: "other", Email: "ALICE@example.com", Password: "secret", Role: "investor"})
	wantKind(t, err, KindConflict)
	if msg := err.(*Error).Message; msg != "User with this email already exists" {
		t.Errorf("message = %q", msg)
	}

	_, err = f.users.Register(ctx, RegisterInput{Username: "alice", Email: "new@example.com", Password: "secret", Role: "investor"})
	wantKind(t, err, KindConflict)
	if msg := err.(*Error).Message; msg != "Username is already taken" {
		t.Errorf("message = %q", msg)
	}
}

func TestRegisterDefaultsAndHashing(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice", "entrepreneur")

	if u.FullName != "alice" {
		t.Errorf("fullName = %q, want username", u.FullName)
	}
	if u.PasswordHash != "" {
		t.Error("password hash returned to caller")
	}

	var stored string
	if err := f.db.QueryRow("SELECT password_hash FROM users WHERE id = ?", u.ID).Scan(&stored); err != nil {
		t.Fatal(err)
	}
	if stored == "" || stored == "secret123" {
		t.Errorf("stored password not hashed: %q", stored)
	}
}

func TestAuthenticateSameErrorForBothFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "investor")

	u, err := f.users.Authenticate(ctx, " Alice@Example.com ", "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.Username != "alice" || u.Role != models.RoleInvestor {
		t.Errorf("user = %+v", u)
	}

	_, wrongPassword := f.users.Authenticate(ctx, "alice@example.com", "wrong")
	_, unknownEmail := f.users.Authenticate(ctx, "ghost@example.com", "secret123")
	if wrongPassword != ErrInvalidCredentials || unknownEmail != ErrInvalidCredentials {
		t.Errorf("errors differ: %v / %v", wrongPassword, unknownEmail)
	}
}

func TestUpdateProfileAllowList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice", "entrepreneur")

	bio, company := "Building things.", "Acme"
	updated, err := f.users.UpdateProfile(ctx, u.ID, ProfilePatch{Bio: &bio, CompanyName: &company})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Bio != bio || updated.CompanyName != company || updated.Email != u.Email {
		t.Errorf("updated = %+v", updated)
	}
	if updated.ProfileCompleted {
		t.Error("profile marked complete with fields missing")
	}

	long := strings.Repeat("x", 101)
	_, err = f.users.UpdateProfile(ctx, u.ID, ProfilePatch{Location: &long})
	wantKind(t, err, KindValidation)

	site := "example"
	_, err = f.users.UpdateProfile(ctx, u.ID, ProfilePatch{Website: &site})
	wantKind(t, err, KindValidation)

	phone, occupation, location, industry := "555-0100", "Founder", "Pune", "Energy"
	done, err := f.users.UpdateProfile(ctx, u.ID, ProfilePatch{
		PhoneNumber: &phone, Occupation: &occupation, Location: &location, Industry: &industry,
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if !done.ProfileCompleted {
		t.Errorf("profile completion = %d, want complete", done.ProfileCompletion())
	}
}

func TestDeleteUserCascadesPitchesButKeepsInvestments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.register(t, "founder", "entrepreneur")
	p := f.createPitch(t, e, 5000)
	i := f.register(t, "backer", "investor")
	if _, err := f.funding.Invest(ctx, i, p.ID, dec(300)); err != nil {
		t.Fatal(err)
	}

	if err := f.users.DeleteUser(ctx, i.ID); err != nil {
		t.Fatalf("DeleteUser investor: %v", err)
	}
	stored, err := f.pitches.GetPitchDetails(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Investors) != 1 || !stored.RaisedAmount.Equal(dec(300)) {
		t.Errorf("investment history lost: %+v", stored.Investors)
	}

	if err := f.users.DeleteUser(ctx, e.ID); err != nil {
		t.Fatalf("DeleteUser entrepreneur: %v", err)
	}
	_, err = f.pitches.GetPitchDetails(ctx, p.ID)
	wantKind(t, err, KindNotFound)

	_, err = f.users.GetUserByID(ctx, e.ID)
	wantKind(t, err, KindNotFound)
}

func TestDeleteAdminForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.users.CreateUser(ctx, RegisterInput{Username: "root", Email: "root@example.com", Password: "secret123", Role: "admin"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	err = f.users.DeleteUser(ctx, admin.ID)
	wantKind(t, err, KindForbidden)

	found, ok, err := f.users.FindAdmin(ctx)
	if err != nil || !ok || found.ID != admin.ID {
		t.Errorf("FindAdmin = %v, %v, %v", found.ID, ok, err)
	}
}

func TestListUsersFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice", "investor")
	f.register(t, "bob", "investor")
	f.register(t, "carol", "entrepreneur")

	investors, page, err := f.users.ListUsers(ctx, UserFilter{Role: models.RoleInvestor})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(investors) != 2 || page.TotalItems != 2 {
		t.Errorf("investors = %d", len(investors))
	}

	found, _, _ := f.users.ListUsers(ctx, UserFilter{Search: "CAR"})
	if len(found) != 1 || found[0].Username != "carol" {
		t.Errorf("search = %+v", found)
	}

	// LIKE wildcards in the search are literal.
	none, _, _ := f.users.ListUsers(ctx, UserFilter{Search: "%"})
	if len(none) != 0 {
		t.Errorf("wildcard search matched %d users", len(none))
	}
}

func TestAdminUpdateUserEmailConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "investor")
	f.register(t, "bob", "investor")

	taken := "bob@example.com"
	_, err := f.users.AdminUpdateUser(ctx, alice.ID, AdminUserPatch{Email: &taken})
	wantKind(t, err, KindConflict)

	fresh := "Alice.New@example.com"
	u, err := f.users.AdminUpdateUser(ctx, alice.ID, AdminUserPatch{Email: &fresh})
	if err != nil {
		t.Fatalf("AdminUpdateUser: %v", err)
	}
	if u.Email != "alice.new@example.com" || u.Role != models.RoleInvestor {
		t.Errorf("user = %s/%s", u.Email, u.Role)
	}
}
