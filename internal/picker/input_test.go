//go:build !windows

package picker

import (
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

// runWithKeys runs the picker form against raw key bytes and classifies the
// result the way PickCheckpoint does.
func runWithKeys(t *testing.T, keys []byte) (string, error) {
	t.Helper()

	inputR, inputW := io.Pipe()
	t.Cleanup(func() { _ = inputR.Close() })
	t.Cleanup(func() { _ = inputW.Close() })

	p := &Huh{isTerminal: func() bool { return true }}
	list := summaries()
	choice := list[len(list)-1].Name
	form := newForm(list, &choice)
	form.WithAccessible(false)
	form.WithProgramOptions(
		tea.WithInput(inputR),
		tea.WithOutput(io.Discard),
		tea.WithFilter(p.filter()),
	)

	go func() {
		// Let the program start before the first key so the parser sees it.
		time.Sleep(50 * time.Millisecond)
		_, _ = inputW.Write(keys)
		// A lone Esc is only recognized once no follow-up bytes arrive.
		time.Sleep(350 * time.Millisecond)
		_ = inputW.Close()
	}()

	done := make(chan error, 1)
	go func() { done <- p.classify(form.Run()) }()

	select {
	case err := <-done:
		return choice, err
	case <-time.After(5 * time.Second):
		t.Fatal("form did not exit within timeout")
		return "", nil
	}
}

func TestInput_EscCancels(t *testing.T) {
	_, err := runWithKeys(t, []byte{0x1b})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestInput_CtrlCInterrupts(t *testing.T) {
	_, err := runWithKeys(t, []byte{0x03})
	assert.ErrorIs(t, err, ErrInterrupted)
}

func TestInput_EnterSelects(t *testing.T) {
	choice, err := runWithKeys(t, []byte{'\r'})
	assert.NoError(t, err)
	assert.Contains(t, []string{"phase1_start", "phase1_complete"}, choice)
}
