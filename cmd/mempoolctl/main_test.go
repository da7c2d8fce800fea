package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanmanishd/mempool/fifobuf"
)

func TestRunFIFO(t *testing.T) {
	fb, err := fifobuf.New(make([]byte, 1024))
	require.NoError(t, err)

	require.NoError(t, runFIFO(fb, 2000, 4, 64))
	assert.True(t, fb.IsEmpty())
	assert.Equal(t, 1024, fb.MaxSize())
}

func TestRunFIFOZeroLoops(t *testing.T) {
	fb, err := fifobuf.New(make([]byte, 256))
	require.NoError(t, err)

	require.NoError(t, runFIFO(fb, 0, 4, 64))
	assert.True(t, fb.IsEmpty())
}

func TestFIFOCommand(t *testing.T) {
	cmd := fifoCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--size", "512", "--loops", "500", "--max", "100"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "max size after 500 loops: 512 of 512\n", out.String())
}

func TestFIFOCommandRejectsOversizedAllocations(t *testing.T) {
	cmd := fifoCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--size", "100", "--max", "50"})
	assert.Error(t, cmd.Execute())
}

func TestPoolCommand(t *testing.T) {
	t.Setenv("MEMPOOL_CACHE_CAPACITY", "1048576")
	t.Setenv("MEMPOOL_LOG_LEVEL", "error")

	cmd := poolCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--pools", "3", "--allocs", "50", "--rounds", "2"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "peak bytes:")
	assert.Contains(t, out.String(), "cached pools: 3 (12288 bytes)")
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("MEMPOOL_POLICY", "mmap")

	cmd := configCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "policy:         mmap")
	assert.Contains(t, out.String(), "initial_size:   4096")
}
