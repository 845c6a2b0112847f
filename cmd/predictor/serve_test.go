package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sc2helper/predictor/internal/catalog"
	"github.com/sc2helper/predictor/internal/combat"
	"github.com/sc2helper/predictor/internal/config"
	"github.com/sc2helper/predictor/internal/logging"
	"github.com/sc2helper/predictor/internal/predictor"
	"github.com/sc2helper/predictor/internal/storage/memory"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		cmd  string
		args []string
	}{
		{":VERSION:", ":VERSION:", nil},
		{"  :HISTORY: 5  ", ":HISTORY:", []string{"5"}},
		{`:PREDICT: {"side1": [{"type": "Marine"}]}`, ":PREDICT:", []string{`{"side1": [{"type": "Marine"}]}`}},
		{":METRIC: custom tag::a::b  field::int::n::1", ":METRIC:", []string{"custom", "tag::a::b", "field::int::n::1"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, args, err := parseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.args, args)
		})
	}

	_, _, err := parseLine("   ")
	assert.ErrorIs(t, err, errEmptyLine)
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	SlogManager = logging.NewSlogManager()
	Logger = slog.New(slog.DiscardHandler)
	DBLogger = zerolog.Nop()

	a := &app{
		catalog: catalog.Default(),
		storage: memory.New(config.MemoryConfig{}),
	}
	var err error
	a.service, err = predictor.NewService(predictor.Dependencies{
		Catalog:  a.catalog,
		Storage:  a.storage,
		Settings: combat.DefaultSettings(),
		Version:  "1.2.3",
		Workers:  1,
	})
	require.NoError(t, err)
	return a
}

func readResponses(t *testing.T, out *bytes.Buffer) [][]json.RawMessage {
	t.Helper()
	var all [][]json.RawMessage
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var line []json.RawMessage
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		all = append(all, line)
	}
	return all
}

func TestServe(t *testing.T) {
	a := newTestApp(t)

	in := strings.NewReader(strings.Join([]string{
		":VERSION:",
		"",
		":NOPE:",
		`:PREDICT: {"side1":[{"type":"Marine"}],"side2":[{"type":"Zergling","count":10}],"seed":4}`,
	}, "\n"))
	var out bytes.Buffer

	require.NoError(t, a.serve(context.Background(), in, &out))

	responses := readResponses(t, &out)
	require.Len(t, responses, 4, "version, unknown command, queued ack and prediction reply")

	status := func(r []json.RawMessage) string {
		var s string
		require.NoError(t, json.Unmarshal(r[0], &s))
		return s
	}

	assert.Equal(t, "ok", status(responses[0]))
	assert.JSONEq(t, `["ok","1.2.3"]`, string(responses[0][3]))

	assert.Equal(t, "error", status(responses[1]))
	assert.Contains(t, string(responses[1][3]), "unknown command")

	assert.Equal(t, "queued", status(responses[2]))

	assert.Equal(t, "ok", status(responses[3]))
	var resp predictor.Response
	require.NoError(t, json.Unmarshal(responses[3][3], &resp))
	assert.Equal(t, 2, resp.Winner)
	assert.Equal(t, int64(4), resp.Seed)
	// the reply carries the id given in the ack
	assert.Equal(t, string(responses[2][2]), string(responses[3][2]))
}
