package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcodarr/monitor/internal/collector"
	apperrors "github.com/transcodarr/monitor/internal/errors"
)

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelQuit(t *testing.T) {
	m := New(nil, time.Second)

	updated, cmd := m.Update(keyMsg("q"))
	model := updated.(Model)

	assert.True(t, model.quitting)
	assert.Empty(t, model.View())
	require.NotNil(t, cmd)
}

func TestModelDataMsgStoresSnapshot(t *testing.T) {
	m := New(nil, time.Second)
	m.collecting = true

	snapshot := collector.CollectedData{LastUpdated: time.Now()}
	updated, _ := m.Update(dataMsg{data: snapshot})
	model := updated.(Model)

	assert.False(t, model.collecting)
	assert.Equal(t, snapshot.LastUpdated, model.data.LastUpdated)
	assert.Empty(t, model.cycleErr)
}

func TestModelDataMsgErrorKeepsPreviousSnapshot(t *testing.T) {
	m := New(nil, time.Second)
	previous := collector.CollectedData{LastUpdated: time.Now()}
	m.data = previous

	failed, _ := m.Update(dataMsg{
		err: apperrors.New(apperrors.ErrUnavailable, "Collection cycle failed", ""),
	})
	model := failed.(Model)

	assert.NotEmpty(t, model.cycleErr)
	assert.Equal(t, previous.LastUpdated, model.data.LastUpdated)
}

func TestModelWindowSizeReadiesPane(t *testing.T) {
	m := New(nil, time.Second)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model := updated.(Model)

	assert.True(t, model.paneReady)
	assert.Equal(t, 120, model.logView.Width)
}

func TestModelTabTogglesPane(t *testing.T) {
	m := New(nil, time.Second)
	assert.Equal(t, paneLogs, m.pane)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	model := updated.(Model)
	assert.Equal(t, paneHistory, model.pane)

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, paneLogs, updated.(Model).pane)
}

func TestModelReloadKeyRebuildsEngine(t *testing.T) {
	replacement := &collector.Collector{}
	m := New(nil, time.Second).WithReload(func() (*collector.Collector, error) {
		return replacement, nil
	})

	updated, cmd := m.Update(keyMsg("c"))
	model := updated.(Model)

	assert.Same(t, replacement, model.collector)
	assert.True(t, model.collecting)
	require.NotNil(t, cmd)
}

func TestModelReloadKeyErrorKeepsEngine(t *testing.T) {
	m := New(nil, time.Second).WithReload(func() (*collector.Collector, error) {
		return nil, apperrors.New(apperrors.ErrConfig, "Invalid configuration", "")
	})

	updated, cmd := m.Update(keyMsg("c"))
	model := updated.(Model)

	assert.Nil(t, model.collector)
	assert.Contains(t, model.cycleErr, "config reload failed")
	assert.Nil(t, cmd)
}

func TestModelReloadKeyNoopWithoutHook(t *testing.T) {
	m := New(nil, time.Second)

	updated, cmd := m.Update(keyMsg("c"))

	assert.Nil(t, updated.(Model).collector)
	assert.Nil(t, cmd)
}

func TestModelTickSkipsOverlappingCollection(t *testing.T) {
	m := New(nil, time.Second)
	m.collecting = true

	// A tick during an in-flight cycle must not start a second one; if it
	// did, collectCmd would dereference the nil collector and panic when
	// the returned command runs.
	updated, cmd := m.Update(tickMsg(time.Now()))
	model := updated.(Model)

	assert.True(t, model.collecting)
	require.NotNil(t, cmd) // the next tick is still scheduled
}

func TestModelViewRendersWithoutData(t *testing.T) {
	m := New(nil, time.Second)
	out := m.View()
	assert.Contains(t, out, "Transcodarr")
	assert.Contains(t, out, "No transcode nodes")
}
