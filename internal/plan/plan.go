// Package plan decides what an update run should do. It turns the
// observed state of the clone and settings into a typed assessment the
// command layer renders and confirms; nothing in here prompts or
// prints.
package plan

import (
	"fmt"

	"github.com/perchlabs/perchup/internal/version"
)

// Action is the overall outcome of an update assessment.
type Action int

const (
	// ActionUpToDate means the checked-out tag already matches the
	// newest remote tag.
	ActionUpToDate Action = iota
	// ActionUpdate means a newer tag exists and should be installed.
	ActionUpdate
	// ActionReinstall means the current tag is current but the user
	// forced a rebuild.
	ActionReinstall
)

func (a Action) String() string {
	switch a {
	case ActionUpToDate:
		return "up-to-date"
	case ActionUpdate:
		return "update"
	case ActionReinstall:
		return "reinstall"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Choice is a decision the user must make before the plan can proceed.
// The command layer prompts (or reads a flag) for each one.
type Choice int

const (
	// ChoiceStashDirty asks whether local modifications in the source
	// clone should be stashed before checkout.
	ChoiceStashDirty Choice = iota
)

// Input is the observed state an assessment works from.
type Input struct {
	CurrentTag string // tag the clone sits on; empty for a fresh clone
	RemoteTag  string // newest tag on the remote
	Force      bool   // rebuild even when up to date
	TreeDirty  bool   // clone has uncommitted changes

	SettingsOK      bool     // pre-update settings verification
	MissingSettings []string // critical files already absent
	HaveBackups     bool     // at least one backup exists on disk
}

// Assessment is the decided course of action.
type Assessment struct {
	Action   Action
	Target   string // tag to check out when Action is not up-to-date
	Choices  []Choice
	Warnings []string
}

// Assess compares tags and folds in the state warnings. A malformed
// tag on either side aborts with an error naming it; silently treating
// an unparseable tag as older or newer could downgrade an install.
func Assess(in Input) (*Assessment, error) {
	a := &Assessment{}

	switch {
	case in.CurrentTag == "":
		// Fresh clone with no tag checked out yet.
		if err := version.Validate(in.RemoteTag); err != nil {
			return nil, fmt.Errorf("remote tag is not a release version: %w", err)
		}
		a.Action = ActionUpdate
		a.Target = in.RemoteTag
	default:
		newer, err := version.Newer(in.RemoteTag, in.CurrentTag)
		if err != nil {
			return nil, fmt.Errorf("cannot compare %q against %q: %w", in.RemoteTag, in.CurrentTag, err)
		}
		switch {
		case newer:
			a.Action = ActionUpdate
			a.Target = in.RemoteTag
		case in.Force:
			a.Action = ActionReinstall
			a.Target = in.CurrentTag
		default:
			a.Action = ActionUpToDate
		}
	}

	if a.Action == ActionUpToDate {
		return a, nil
	}

	if in.TreeDirty {
		a.Choices = append(a.Choices, ChoiceStashDirty)
	}
	if !in.SettingsOK {
		a.Warnings = append(a.Warnings,
			fmt.Sprintf("settings are already missing critical files: %v", in.MissingSettings))
		if !in.HaveBackups {
			a.Warnings = append(a.Warnings, "no backups exist to restore from")
		}
	}
	return a, nil
}

// Requires reports whether the assessment includes a given choice.
func (a *Assessment) Requires(c Choice) bool {
	for _, choice := range a.Choices {
		if choice == c {
			return true
		}
	}
	return false
}
