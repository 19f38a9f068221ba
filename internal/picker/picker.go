// Package picker renders the interactive checkpoint chooser used by rollback.
package picker

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/conn-castle/devsetup/internal/checkpoint"
	"github.com/conn-castle/devsetup/internal/messages"
	"github.com/conn-castle/devsetup/internal/terminal"
)

var (
	// ErrCancelled is returned when the operator leaves the picker with Esc.
	ErrCancelled = errors.New("checkpoint selection cancelled")
	// ErrInterrupted is returned when the operator presses Ctrl+C.
	ErrInterrupted = errors.New("checkpoint selection interrupted")
)

var runFormFunc = func(form *huh.Form) error { return form.Run() }

// Huh picks checkpoints with a charmbracelet/huh select form.
type Huh struct {
	isTerminal func() bool
	ctrlCAbort bool
}

// New returns a picker that requires an interactive terminal.
func New() *Huh {
	return &Huh{isTerminal: terminal.IsInteractive}
}

// Available reports whether the picker can prompt.
func (p *Huh) Available() bool {
	checker := p.isTerminal
	if checker == nil {
		checker = terminal.IsInteractive
	}
	return checker()
}

// PickCheckpoint asks the operator to choose one of summaries and returns its name.
func (p *Huh) PickCheckpoint(summaries []checkpoint.Summary) (string, error) {
	if len(summaries) == 0 {
		return "", ErrCancelled
	}
	choice := summaries[len(summaries)-1].Name
	if err := p.run(newForm(summaries, &choice)); err != nil {
		return "", err
	}
	return choice, nil
}

// newForm builds the select form; choice starts as the preselected entry.
func newForm(summaries []checkpoint.Summary, choice *string) *huh.Form {
	opts := make([]huh.Option[string], len(summaries))
	for i, s := range summaries {
		opts[i] = huh.NewOption(Label(s), s.Name)
	}
	form := huh.NewForm(
		huh.NewGroup(
			newHintField(huh.NewSelect[string]().
				Title(messages.PickerTitle).
				Options(opts...).
				Value(choice)),
		),
	)
	form.WithKeyMap(keyMap())
	return form
}

// Label is the picker line for one checkpoint.
func Label(s checkpoint.Summary) string {
	return fmt.Sprintf("%-24s %s  %s", s.Name, s.CreatedAt.UTC().Format(time.DateTime), s.Phase)
}

func (p *Huh) run(form *huh.Form) error {
	if !p.Available() {
		return errors.New(messages.PickerRequiresTerminal)
	}
	p.ctrlCAbort = false
	form.WithProgramOptions(
		tea.WithOutput(os.Stderr),
		tea.WithFilter(p.filter()),
	)
	return p.classify(runFormFunc(form))
}

// classify maps a form abort to ErrInterrupted for Ctrl+C and ErrCancelled otherwise.
func (p *Huh) classify(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		if p.ctrlCAbort {
			return ErrInterrupted
		}
		return ErrCancelled
	}
	return err
}

// filter records Ctrl+C and turns interrupts into a graceful quit so the
// renderer clears the form.
func (p *Huh) filter() func(tea.Model, tea.Msg) tea.Msg {
	return func(_ tea.Model, msg tea.Msg) tea.Msg {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyCtrlC {
			p.ctrlCAbort = true
		}
		if _, ok := msg.(tea.InterruptMsg); ok {
			return tea.QuitMsg{}
		}
		return msg
	}
}

// keyMap aborts the form on Esc or Ctrl+C. Prev and Next are display-only hints.
func keyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("ctrl+c", "esc"))
	km.Select.Prev = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	km.Select.Next = key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "exit"))
	return km
}

// hintField keeps the Prev and Next hints visible in a single-field form,
// where huh's positional update would otherwise disable both.
type hintField struct {
	huh.Field
	km *huh.KeyMap
}

func newHintField(field huh.Field) huh.Field {
	return &hintField{Field: field, km: keyMap()}
}

func (f *hintField) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := f.Field.Update(msg)
	if field, ok := model.(huh.Field); ok {
		f.Field = field
	}
	return f, cmd
}

func (f *hintField) WithPosition(pos huh.FieldPosition) huh.Field {
	f.Field.WithPosition(pos)
	f.WithKeyMap(f.km)
	return f
}
