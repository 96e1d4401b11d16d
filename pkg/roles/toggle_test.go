package roles

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/ssMMiles/easy-roles/pkg/log"
)

type fakeRoleClient struct {
	err      error
	adds     int
	removes  int
	lastRole string
}

func (f *fakeRoleClient) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.adds++
	f.lastRole = roleID
	return f.err
}

func (f *fakeRoleClient) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.removes++
	f.lastRole = roleID
	return f.err
}

func restError(code int) error {
	return &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: code}}
}

func TestApplyTogglesPureFlip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		roles       []string
		want        Action
		wantAdds    int
		wantRemoves int
	}{
		{name: "absent grants", roles: []string{"1", "2"}, want: ActionGranted, wantAdds: 1},
		{name: "present revokes", roles: []string{"1", "42", "2"}, want: ActionRevoked, wantRemoves: 1},
		{name: "empty set grants", roles: nil, want: ActionGranted, wantAdds: 1},
		{name: "only role revokes", roles: []string{"42"}, want: ActionRevoked, wantRemoves: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &fakeRoleClient{}
			effector := NewEffector(client, log.Default())

			got, err := effector.Apply("g1", "u1", "42", tt.roles)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("action mismatch: got %q want %q", got, tt.want)
			}
			if client.adds != tt.wantAdds || client.removes != tt.wantRemoves {
				t.Fatalf("call counts mismatch: adds=%d removes=%d", client.adds, client.removes)
			}
			if client.lastRole != "42" {
				t.Fatalf("role id mismatch: got %q", client.lastRole)
			}
		})
	}
}

func TestApplyPermissionDenied(t *testing.T) {
	t.Parallel()

	client := &fakeRoleClient{err: restError(discordgo.ErrCodeMissingPermissions)}
	effector := NewEffector(client, log.Default())

	if _, err := effector.Apply("g1", "u1", "42", nil); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestApplyGenericFailure(t *testing.T) {
	t.Parallel()

	client := &fakeRoleClient{err: errors.New("timeout")}
	effector := NewEffector(client, log.Default())

	if _, err := effector.Apply("g1", "u1", "42", []string{"42"}); !errors.Is(err, ErrToggleFailed) {
		t.Fatalf("expected ErrToggleFailed, got %v", err)
	}
}
