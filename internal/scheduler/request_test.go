package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandBuilder(t *testing.T) {
	b := CommandBuilder{Program: "srun", Interpreter: "python3"}

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "memory",
			req:  Request{JobName: "sos_D3_T300.00", Resources: Resources{Memory: "20GB"}, Invocation: "import x;"},
			want: "srun --job-name=sos_D3_T300.00 --mem=20GB python3 -c 'import x;'",
		},
		{
			name: "no memory",
			req:  Request{JobName: "analytic_D3_R0_T300.00", Invocation: "import x;"},
			want: "srun --job-name=analytic_D3_R0_T300.00 python3 -c 'import x;'",
		},
		{
			name: "interactive",
			req:  Request{JobName: "iterative_D3", Resources: Resources{Memory: "20GB", Interactive: true}, Invocation: "n = 1;"},
			want: "srun --pty --job-name=iterative_D3 --mem=20GB python3 -c 'n = 1;'",
		},
		{
			name: "single quote escaped",
			req:  Request{JobName: "j", Invocation: `print('hi');`},
			want: `srun --job-name=j python3 -c 'print('\''hi'\'');'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Build(tt.req))
		})
	}
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, Request{JobName: "sos_D3", Invocation: "x"}.Validate())
	assert.Error(t, Request{Invocation: "x"}.Validate())
	assert.Error(t, Request{JobName: "sos D3", Invocation: "x"}.Validate())
	assert.Error(t, Request{JobName: "sos_D3"}.Validate())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("sync")
	require.NoError(t, err)
	assert.Equal(t, Sync, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Async, m)

	m, err = ParseMode(" ASYNC ")
	require.NoError(t, err)
	assert.Equal(t, Async, m)

	_, err = ParseMode("later")
	require.Error(t, err)

	assert.Equal(t, "sync", Sync.String())
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("job")
	assert.Equal(t, "job-1", g.Generate())
	assert.Equal(t, "job-2", g.Generate())
}

func TestUUIDv7Generator(t *testing.T) {
	id1 := UUIDv7Generator{}.Generate()
	id2 := UUIDv7Generator{}.Generate()
	assert.Len(t, id1, 36)
	assert.NotEqual(t, id1, id2)
}
