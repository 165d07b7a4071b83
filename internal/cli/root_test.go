package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	mode   string
	config string
	n      int
}

func fakeRunners(got *recorded) Runners {
	return Runners{
		Navigator: func(_ context.Context, path string, n int) error {
			*got = recorded{ModeNavigator, path, n}
			return nil
		},
		Recorder: func(_ context.Context, path string, n int) error {
			*got = recorded{ModeRecorder, path, n}
			return nil
		},
	}
}

func TestRootCmd_Dispatch(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want recorded
	}{
		{"navigator defaults", []string{"navigator"}, recorded{ModeNavigator, "./config.yaml", 64}},
		{"navigator alias and flags", []string{"nav", "--config=/etc/boat.yaml", "--max-concurrent=5"}, recorded{ModeNavigator, "/etc/boat.yaml", 5}},
		{"recorder defaults", []string{"recorder"}, recorded{ModeRecorder, "./config.yaml", 8}},
		{"recorder shorthand config", []string{"r", "-c", "cfg.yaml", "--prefetch", "2"}, recorded{ModeRecorder, "cfg.yaml", 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got recorded
			cmd := NewRootCmd(fakeRunners(&got))
			cmd.SetArgs(tt.args)
			require.NoError(t, cmd.ExecuteContext(context.Background()))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRootCmd_RejectsBadFlags(t *testing.T) {
	for _, args := range [][]string{
		{"navigator", "--max-concurrent=0"},
		{"recorder", "--prefetch=-1"},
		{"recorder", "extra"},
		{"steer"},
	} {
		var got recorded
		cmd := NewRootCmd(fakeRunners(&got))
		cmd.SetArgs(args)
		assert.Error(t, cmd.ExecuteContext(context.Background()), args)
		assert.Empty(t, got.mode, args)
	}
}
