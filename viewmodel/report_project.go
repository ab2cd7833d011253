package viewmodel

import (
	"context"

	"pkt.systems/pledgeflow/internal/eventbus"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
)

// ScreenReportProject names the report-this-project screen.
const ScreenReportProject = "report_project"

// DefaultReportEmail is shown when the logged-in user has no email on file.
const DefaultReportEmail = "email@email.com"

// EmailAndProject prefills the report form.
type EmailAndProject struct {
	Email      string
	ProjectURL string
}

// ReportProjectInputs are the inputs of the report screen.
type ReportProjectInputs interface {
	ConfigureWith(project schema.Project)
}

// ReportProjectOutputs are the values the report screen renders.
type ReportProjectOutputs interface {
	EmailAndProject() rx.Observable[EmailAndProject]
}

// ReportProject prepares a report about a project.
type ReportProject struct {
	*Lifecycle
	env Environment

	projectIn *rx.Behavior[schema.Project]
	out       *rx.Behavior[EmailAndProject]
}

// NewReportProject builds the screen.
func NewReportProject(env Environment) *ReportProject {
	vm := &ReportProject{
		env:       env,
		projectIn: rx.NewBehavior[schema.Project](),
		out:       rx.NewBehavior[EmailAndProject](),
	}
	vm.Lifecycle = newLifecycle(ScreenReportProject, env, vm.bind)
	return vm
}

// Inputs returns the input side of the screen.
func (vm *ReportProject) Inputs() ReportProjectInputs { return vm }

// Outputs returns the output side of the screen.
func (vm *ReportProject) Outputs() ReportProjectOutputs { return vm }

func (vm *ReportProject) bind(context.Context) {
	l := vm.Lifecycle
	if vm.env.CurrentUser == nil {
		l.log.Warn("report project screen has no current user")
		return
	}
	emails := rx.Map(rx.ObserveOn(vm.env.CurrentUser.LoggedInUser(), l.Scheduler()), func(u schema.User) string {
		if u.Email == "" {
			return DefaultReportEmail
		}
		return u.Email
	})
	urls := rx.Map[schema.Project](vm.projectIn, func(p schema.Project) string { return p.APIURL })
	subscribe(l, rx.CombineLatest2(emails, urls, func(email, url string) EmailAndProject {
		return EmailAndProject{Email: email, ProjectURL: url}
	}), output(l, "email_and_project", eventbus.SignalOutput, vm.out))
}

func (vm *ReportProject) ConfigureWith(project schema.Project) {
	vm.post(func() { vm.projectIn.Next(project) })
}

func (vm *ReportProject) EmailAndProject() rx.Observable[EmailAndProject] { return vm.out }
