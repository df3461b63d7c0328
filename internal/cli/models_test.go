package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func seedCachedModel(t *testing.T, dir, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".pt"), bytes.Repeat([]byte{0xAB}, size), 0o644))
}

func TestModelsListEmptyCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out, err := runCLI(t, "models", "list", "--cache-dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "No models downloaded")
	require.Contains(t, out, "tiny")
}

func TestModelsListShowsSizes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedCachedModel(t, dir, "base", 2048)
	seedCachedModel(t, dir, "tiny", 1024)

	out, err := runCLI(t, "models", "list", "--cache-dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "base")
	require.Contains(t, out, "2.0 KiB")
	require.Contains(t, out, "tiny")
	require.Contains(t, out, "1.0 KiB")
	require.Contains(t, out, "total")
	require.Contains(t, out, "3.0 KiB")
}

func TestModelsDeleteRemovesWeights(t *testing.T) {
	dir := t.TempDir()
	seedCachedModel(t, dir, "base", 512)
	t.Setenv("WHISPERVIOLINS_LOCK_PATH", filepath.Join(t.TempDir(), "instance.lock"))

	out, err := runCLI(t, "models", "delete", "base", "--cache-dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "Deleted base")
	require.NoFileExists(t, filepath.Join(dir, "base.pt"))
}

func TestModelsDeleteUnknownModelFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WHISPERVIOLINS_LOCK_PATH", filepath.Join(t.TempDir(), "instance.lock"))

	_, err := runCLI(t, "models", "delete", "medium", "--cache-dir", dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not downloaded")
}

func TestTranscribeMissingAudioFileFails(t *testing.T) {
	t.Setenv("WHISPERVIOLINS_LOCK_PATH", filepath.Join(t.TempDir(), "instance.lock"))

	_, err := runCLI(t, "transcribe", filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not readable")
}

func TestTranscribeRejectsUnknownLanguage(t *testing.T) {
	t.Setenv("WHISPERVIOLINS_LOCK_PATH", filepath.Join(t.TempDir(), "instance.lock"))

	audio := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0o644))

	_, err := runCLI(t, "transcribe", audio, "--language", "klingon")
	require.Error(t, err)
	require.Contains(t, err.Error(), "language")
}
