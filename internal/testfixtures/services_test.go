package testfixtures

import (
	"context"
	"testing"

	"github.com/example/attendance-engine/internal/application"
)

func TestServiceFactoryUsesDeterministicDependencies(t *testing.T) {
	factory := NewServiceFactory()
	admin := application.Principal{UserID: "admin", IsAdmin: true}

	user, err := factory.Users().RegisterUser(context.Background(), application.RegisterUserParams{
		Principal: admin,
		Input:     application.UserInput{Email: "user@example.com", DisplayName: "User"},
	})
	if err != nil {
		t.Fatalf("RegisterUser returned error: %v", err)
	}
	if user.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", user.ID)
	}
	if !user.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), user.CreatedAt)
	}
}

func TestSeedApplyOnSQLite(t *testing.T) {
	store := NewSQLiteStore(t)
	alice := NewUser("Alice")
	meeting := NewMeeting(At(2024, 1, 15, 14, 0), 2)

	Seed{
		Users:    []application.User{alice},
		Meetings: []application.Meeting{meeting},
		Records:  []application.AttendanceRecord{NewRecord(alice, meeting, 1.5)},
	}.Apply(t, store)

	factory := NewServiceFactory(WithStore(store))
	roster, err := factory.Catalog().MeetingAttendance(context.Background(), meeting.ID)
	if err != nil {
		t.Fatalf("MeetingAttendance returned error: %v", err)
	}
	if len(roster) != 1 || roster[0].Hours != 1.5 {
		t.Fatalf("unexpected roster %#v", roster)
	}
}
