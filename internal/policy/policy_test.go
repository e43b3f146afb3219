package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func branch() *uuid.UUID {
	id := uuid.New()
	return &id
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{"client": RoleClient, "Admin": RoleAdmin, " manager ": RoleManager} {
		got, err := ParseRole(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseRole("system")
	assert.Error(t, err)
}

func TestRole_TextRoundTrip(t *testing.T) {
	b, err := RoleManager.MarshalText()
	require.NoError(t, err)
	var r Role
	require.NoError(t, r.UnmarshalText(b))
	assert.Equal(t, RoleManager, r)

	_, err = Role(0).MarshalText()
	assert.Error(t, err)
}

func TestCanResolve(t *testing.T) {
	north, south := branch(), branch()
	client := Subject{UserID: uuid.New(), Role: RoleClient, BranchID: north}
	admin := Subject{UserID: uuid.New(), Role: RoleAdmin, BranchID: north}

	cases := []struct {
		name      string
		actor     Identity
		requester Subject
		want      bool
	}{
		{"client never resolves", Identity{UserID: client.UserID, Role: RoleClient, BranchID: north}, client, false},
		{"admin same branch", Identity{UserID: uuid.New(), Role: RoleAdmin, BranchID: north}, client, true},
		{"admin other branch", Identity{UserID: uuid.New(), Role: RoleAdmin, BranchID: south}, client, false},
		{"admin without branch", Identity{UserID: uuid.New(), Role: RoleAdmin}, client, false},
		{"admin cannot resolve admin", Identity{UserID: uuid.New(), Role: RoleAdmin, BranchID: north}, admin, false},
		{"manager resolves client", Identity{UserID: uuid.New(), Role: RoleManager}, client, true},
		{"manager resolves admin", Identity{UserID: uuid.New(), Role: RoleManager}, admin, true},
		{"unknown role", Identity{UserID: uuid.New()}, client, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanResolve(tc.actor, tc.requester))
		})
	}
}

func TestCanDirectTransact(t *testing.T) {
	north := branch()
	self := Identity{UserID: uuid.New(), Role: RoleClient, BranchID: north}
	otherClient := Subject{UserID: uuid.New(), Role: RoleClient, BranchID: north}
	farClient := Subject{UserID: uuid.New(), Role: RoleClient, BranchID: branch()}
	admin := Subject{UserID: uuid.New(), Role: RoleAdmin, BranchID: north}
	manager := Identity{UserID: uuid.New(), Role: RoleManager}
	branchAdmin := Identity{UserID: admin.UserID, Role: RoleAdmin, BranchID: north}

	assert.True(t, CanDirectTransact(self, self.Subject()))
	assert.False(t, CanDirectTransact(self, otherClient))

	assert.True(t, CanDirectTransact(branchAdmin, otherClient))
	assert.False(t, CanDirectTransact(branchAdmin, farClient))
	assert.False(t, CanDirectTransact(branchAdmin, admin))

	assert.True(t, CanDirectTransact(manager, farClient))
	assert.True(t, CanDirectTransact(manager, admin))
	assert.False(t, CanDirectTransact(manager, manager.Subject()))
}

func TestCanCreateRequestAndTransfer(t *testing.T) {
	client := Identity{UserID: uuid.New(), Role: RoleClient}
	assert.True(t, CanCreateRequest(client))
	assert.False(t, CanCreateRequest(Identity{Role: RoleAdmin}))
	assert.False(t, CanCreateRequest(Identity{Role: RoleManager}))

	assert.True(t, CanTransferProfit(client, client.UserID))
	assert.False(t, CanTransferProfit(client, uuid.New()))
	assert.False(t, CanTransferProfit(Identity{Role: RoleManager}, client.UserID))
}

func TestVisibleRequests(t *testing.T) {
	north := branch()
	client := Identity{UserID: uuid.New(), Role: RoleClient, BranchID: north}
	mine := client.Subject()
	neighbour := Subject{UserID: uuid.New(), Role: RoleClient, BranchID: north}
	stranger := Subject{UserID: uuid.New(), Role: RoleClient, BranchID: branch()}

	own := VisibleRequests(client)
	assert.Equal(t, ScopeOwn, own.Kind)
	assert.True(t, own.Allows(mine))
	assert.False(t, own.Allows(neighbour))

	br := VisibleRequests(Identity{UserID: uuid.New(), Role: RoleAdmin, BranchID: north})
	assert.Equal(t, ScopeBranch, br.Kind)
	assert.True(t, br.Allows(neighbour))
	assert.False(t, br.Allows(stranger))

	assert.Equal(t, ScopeNone, VisibleRequests(Identity{Role: RoleAdmin}).Kind)
	assert.False(t, VisibleRequests(Identity{Role: RoleAdmin}).Allows(mine))

	all := VisibleRequests(Identity{Role: RoleManager})
	assert.True(t, all.Allows(stranger))
}
