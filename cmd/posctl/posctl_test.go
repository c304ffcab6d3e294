package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tebaspos/backend/internal/stockalert"
)

func intPtr(v int) *int { return &v }

func TestRenderAlerts(t *testing.T) {
	var buf bytes.Buffer
	items := stockalert.Evaluate([]stockalert.Item{
		{Code: intPtr(3), Description: "Café 500g", Brand: "Pilão", Quantity: 3, Unit: "un", Minimum: intPtr(8)},
		{Description: "Granel", Quantity: 1.5, Unit: "kg", Minimum: intPtr(2)},
	})

	require.NoError(t, renderAlerts(&buf, items))
	out := buf.String()
	assert.Contains(t, out, "Café 500g • Pilão")
	assert.Contains(t, out, "1,5 kg")
	assert.Contains(t, out, "critical (<= 8)")
	assert.True(t, strings.HasPrefix(out, "CODE"))
}

func TestRenderAlertsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderAlerts(&buf, nil))
	assert.Equal(t, "no stock alerts\n", buf.String())
}

func TestWriteReportToFile(t *testing.T) {
	dir := t.TempDir()
	reportOut = filepath.Join(dir, "out.csv")
	t.Cleanup(func() { reportOut = "" })

	var stdout bytes.Buffer
	require.NoError(t, writeReport(&stdout, "vendas-2025-03-10.csv", "a;b\n"))

	raw, err := os.ReadFile(reportOut)
	require.NoError(t, err)
	assert.Equal(t, "a;b\n", string(raw))
	assert.Contains(t, stdout.String(), "wrote")
}

func TestWriteReportToStdout(t *testing.T) {
	reportOut = "-"
	t.Cleanup(func() { reportOut = "" })

	var stdout bytes.Buffer
	require.NoError(t, writeReport(&stdout, "clientes.csv", "x\n"))
	assert.Equal(t, "x\n", stdout.String())
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"migrate"},
		{"create-admin"},
		{"export", "sales"},
		{"export", "customers"},
		{"alerts"},
		{"events", "tail"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
