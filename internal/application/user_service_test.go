package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/persistence"
	tf "github.com/example/attendance-engine/internal/testfixtures"
)

func TestUserService_RegisterUser(t *testing.T) {
	factory := newFactory(t, tf.Seed{})
	users := factory.Users()
	ctx := context.Background()
	anonymous := application.Principal{}

	first, err := users.RegisterUser(ctx, application.RegisterUserParams{
		Principal: anonymous,
		Input:     application.UserInput{Email: " Lead@Example.com ", DisplayName: " Lead ", IsAdmin: true},
	})
	require.NoError(t, err, "the first user may bootstrap an administrator")
	assert.True(t, first.IsAdmin)
	assert.Equal(t, "lead@example.com", first.Email)
	assert.Equal(t, "Lead", first.DisplayName)

	_, err = users.RegisterUser(ctx, application.RegisterUserParams{
		Principal: anonymous,
		Input:     application.UserInput{Email: "second@example.com", DisplayName: "Second", IsAdmin: true},
	})
	assert.ErrorIs(t, err, application.ErrUnauthorized)

	_, err = users.RegisterUser(ctx, application.RegisterUserParams{
		Principal: anonymous,
		Input:     application.UserInput{Email: "LEAD@example.com", DisplayName: "Other"},
	})
	assert.ErrorIs(t, err, application.ErrAlreadyExists)

	_, err = users.RegisterUser(ctx, application.RegisterUserParams{
		Input: application.UserInput{Email: "not-an-email", DisplayName: ""},
	})
	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.FieldErrors, "email")
	assert.Contains(t, vErr.FieldErrors, "display_name")
}

func TestUserService_AdminOperations(t *testing.T) {
	admin := tf.NewUser("Admin", tf.AsAdmin())
	bob := tf.NewUser("bob")
	alice := tf.NewUser("Alice")
	meeting := tf.NewMeeting(tf.At(2024, time.January, 15, 15, 30), 2)
	factory := newFactory(t, tf.Seed{
		Users:    []persistence.User{admin, bob, alice},
		Meetings: []persistence.Meeting{meeting},
		Records:  []persistence.AttendanceRecord{tf.NewRecord(alice, meeting, 2)},
	})
	users := factory.Users()
	ctx := context.Background()

	listed, err := users.ListUsers(ctx, as(admin))
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, []string{"Admin", "Alice", "bob"}, []string{listed[0].DisplayName, listed[1].DisplayName, listed[2].DisplayName})

	_, err = users.ListUsers(ctx, as(alice))
	assert.ErrorIs(t, err, application.ErrUnauthorized)

	promoted, err := users.SetAdmin(ctx, application.SetAdminParams{Principal: as(admin), UserID: alice.ID, IsAdmin: true})
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin)

	_, err = users.SetAdmin(ctx, application.SetAdminParams{Principal: as(admin), UserID: admin.ID, IsAdmin: false})
	var vErr *application.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = users.SetAdmin(ctx, application.SetAdminParams{Principal: as(admin), UserID: "ghost", IsAdmin: true})
	assert.ErrorIs(t, err, application.ErrNotFound)

	require.NoError(t, users.DeleteUser(ctx, as(admin), alice.ID))
	records, _ := countRows(t, factory.Store, meeting.ID)
	assert.Zero(t, records)

	_, err = users.GetUser(ctx, alice.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)
	assert.ErrorIs(t, users.DeleteUser(ctx, as(admin), alice.ID), application.ErrNotFound)
	assert.ErrorIs(t, users.DeleteUser(ctx, as(bob), admin.ID), application.ErrUnauthorized)
}
