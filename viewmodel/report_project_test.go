package viewmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pkt.systems/pledgeflow/internal/currentuser"
	"pkt.systems/pledgeflow/internal/prefs"
	"pkt.systems/pledgeflow/schema"
)

func TestReportProjectEmailAndProject(t *testing.T) {
	current := currentuser.New(prefs.NewMemory(), nil)
	vm := NewReportProject(Environment{CurrentUser: current})
	create(t, vm)
	out := record(t, vm.Outputs().EmailAndProject())

	vm.Inputs().ConfigureWith(schema.Project{ID: 1, APIURL: "https://api.example.com/v1/projects/1"})
	vm.Sync()
	assert.Zero(t, out.Len(), "waits for a logged-in user")

	current.Login(schema.User{ID: 3}, "tok")
	vm.Sync()
	current.Login(schema.User{ID: 3, Email: "reporter@example.com"}, "")
	vm.Sync()

	assert.Equal(t, []EmailAndProject{
		{Email: DefaultReportEmail, ProjectURL: "https://api.example.com/v1/projects/1"},
		{Email: "reporter@example.com", ProjectURL: "https://api.example.com/v1/projects/1"},
	}, out.Values())
}
